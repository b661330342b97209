package repository

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/maheshrc27/social-publisher/internal/models"
)

type PostRepository interface {
	GetByID(ctx context.Context, id int64) (*models.Post, error)
	GetActiveByProductID(ctx context.Context, productID int) (*models.Post, error)
	Create(ctx context.Context, tx *sql.Tx, post *models.Post) (int64, error)
	Update(ctx context.Context, tx *sql.Tx, post *models.Post) error
}

type postRepository struct {
	db *sql.DB
}

func NewPostRepository(db *sql.DB) PostRepository {
	return &postRepository{db: db}
}

const postColumns = `post_id, product_id, title, caption, language_code, created_at, desired_publish_time, is_active, notes`

// Create inserts the post and fills in the server-assigned id and created_at.
func (r *postRepository) Create(ctx context.Context, tx *sql.Tx, post *models.Post) (int64, error) {
	query := `
		INSERT INTO posts.post (product_id, title, caption, language_code, desired_publish_time, is_active, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING post_id, created_at
	`
	args := []any{post.ProductID, post.Title, post.Caption, post.LanguageCode, post.DesiredPublishTime, post.Active, post.Notes}

	var row *sql.Row
	if tx != nil {
		row = tx.QueryRowContext(ctx, query, args...)
	} else {
		row = r.db.QueryRowContext(ctx, query, args...)
	}
	if err := row.Scan(&post.ID, &post.CreatedAt); err != nil {
		slog.Info(err.Error())
		return 0, err
	}

	return post.ID, nil
}

func (r *postRepository) GetByID(ctx context.Context, id int64) (*models.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts.post WHERE post_id = $1`
	return r.getOne(ctx, query, id)
}

func (r *postRepository) GetActiveByProductID(ctx context.Context, productID int) (*models.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts.post WHERE product_id = $1 AND is_active = TRUE ORDER BY post_id DESC LIMIT 1`
	return r.getOne(ctx, query, productID)
}

func (r *postRepository) getOne(ctx context.Context, query string, arg any) (*models.Post, error) {
	var post models.Post
	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&post.ID, &post.ProductID, &post.Title, &post.Caption, &post.LanguageCode,
		&post.CreatedAt, &post.DesiredPublishTime, &post.Active, &post.Notes,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}

	return &post, nil
}

// Update rewrites the mutable columns. created_at is never touched.
func (r *postRepository) Update(ctx context.Context, tx *sql.Tx, post *models.Post) error {
	query := `
		UPDATE posts.post
		SET title = $1,
			caption = $2,
			language_code = $3,
			desired_publish_time = $4,
			is_active = $5,
			notes = $6
		WHERE post_id = $7
	`
	args := []any{post.Title, post.Caption, post.LanguageCode, post.DesiredPublishTime, post.Active, post.Notes, post.ID}

	var err error
	if tx != nil {
		_, err = tx.ExecContext(ctx, query, args...)
	} else {
		_, err = r.db.ExecContext(ctx, query, args...)
	}
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

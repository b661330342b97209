package repository

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/maheshrc27/social-publisher/internal/models"
)

type PostPhotoRepository interface {
	Create(ctx context.Context, tx *sql.Tx, pp *models.PostPhoto) (int64, error)
	ListByPostID(ctx context.Context, postID int64) ([]*models.PostPhoto, error)
	RemoveByPostID(ctx context.Context, tx *sql.Tx, postID int64) error
}

type postPhotoRepository struct {
	db *sql.DB
}

func NewPostPhotoRepository(db *sql.DB) PostPhotoRepository {
	return &postPhotoRepository{db: db}
}

func (r *postPhotoRepository) Create(ctx context.Context, tx *sql.Tx, pp *models.PostPhoto) (int64, error) {
	query := `
		INSERT INTO posts.post_photo (post_id, photo_id, sort_order, is_primary)
		VALUES ($1, $2, $3, $4)
		RETURNING post_photo_id
	`

	var err error
	if tx != nil {
		err = tx.QueryRowContext(ctx, query, pp.PostID, pp.PhotoID, pp.SortOrder, pp.Primary).Scan(&pp.ID)
	} else {
		err = r.db.QueryRowContext(ctx, query, pp.PostID, pp.PhotoID, pp.SortOrder, pp.Primary).Scan(&pp.ID)
	}
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}

	return pp.ID, nil
}

func (r *postPhotoRepository) ListByPostID(ctx context.Context, postID int64) ([]*models.PostPhoto, error) {
	query := `
		SELECT post_photo_id, post_id, photo_id, sort_order, is_primary
		FROM posts.post_photo
		WHERE post_id = $1
		ORDER BY sort_order, post_photo_id
	`

	rows, err := r.db.QueryContext(ctx, query, postID)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var photos []*models.PostPhoto
	for rows.Next() {
		var pp models.PostPhoto
		if err := rows.Scan(&pp.ID, &pp.PostID, &pp.PhotoID, &pp.SortOrder, &pp.Primary); err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		photos = append(photos, &pp)
	}

	return photos, rows.Err()
}

func (r *postPhotoRepository) RemoveByPostID(ctx context.Context, tx *sql.Tx, postID int64) error {
	query := `DELETE FROM posts.post_photo WHERE post_id = $1`

	var err error
	if tx != nil {
		_, err = tx.ExecContext(ctx, query, postID)
	} else {
		_, err = r.db.ExecContext(ctx, query, postID)
	}
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

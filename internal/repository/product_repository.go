package repository

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/maheshrc27/social-publisher/internal/models"
)

type ProductRepository interface {
	GetByID(ctx context.Context, id int) (*models.Product, error)
}

type productRepository struct {
	db *sql.DB
}

func NewProductRepository(db *sql.DB) ProductRepository {
	return &productRepository{db: db}
}

func (r *productRepository) GetByID(ctx context.Context, id int) (*models.Product, error) {
	query := `SELECT product_id, name, COALESCE(description, ''), COALESCE(price, 0) FROM products.product WHERE product_id = $1`

	var p models.Product
	err := r.db.QueryRowContext(ctx, query, id).Scan(&p.ID, &p.Name, &p.Description, &p.Price)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}

	return &p, nil
}

type PhotoRepository interface {
	GetByID(ctx context.Context, id int64) (*models.Photo, error)
	ListByProductID(ctx context.Context, productID int) ([]*models.Photo, error)
}

type photoRepository struct {
	db *sql.DB
}

func NewPhotoRepository(db *sql.DB) PhotoRepository {
	return &photoRepository{db: db}
}

func (r *photoRepository) GetByID(ctx context.Context, id int64) (*models.Photo, error) {
	query := `SELECT photo_id, product_id, photo FROM products.photo WHERE photo_id = $1`

	var p models.Photo
	err := r.db.QueryRowContext(ctx, query, id).Scan(&p.ID, &p.ProductID, &p.Bytes)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}

	return &p, nil
}

// ListByProductID returns the product's photos ordered by photo id. The image
// bytes are not loaded; use GetByID for those.
func (r *photoRepository) ListByProductID(ctx context.Context, productID int) ([]*models.Photo, error) {
	query := `SELECT photo_id, product_id FROM products.photo WHERE product_id = $1 ORDER BY photo_id`

	rows, err := r.db.QueryContext(ctx, query, productID)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var photos []*models.Photo
	for rows.Next() {
		var p models.Photo
		if err := rows.Scan(&p.ID, &p.ProductID); err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		photos = append(photos, &p)
	}

	return photos, rows.Err()
}

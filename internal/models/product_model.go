package models

// Product and Photo are owned by the catalog; the pipeline only reads them.
type Product struct {
	ID          int     `db:"product_id" json:"id"`
	Name        string  `db:"name" json:"name"`
	Description string  `db:"description" json:"description"`
	Price       float64 `db:"price" json:"price"`
}

type Photo struct {
	ID        int64  `db:"photo_id" json:"id"`
	ProductID int64  `db:"product_id" json:"product_id"`
	Bytes     []byte `db:"photo" json:"-"`
}

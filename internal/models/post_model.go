package models

import "time"

const DefaultLanguageCode = "pt-BR"

type Post struct {
	ID                 int64      `db:"post_id" json:"id"`
	ProductID          int        `db:"product_id" json:"product_id"`
	Title              string     `db:"title" json:"title"`
	Caption            *string    `db:"caption" json:"caption,omitempty"`
	LanguageCode       string     `db:"language_code" json:"language_code"`
	CreatedAt          time.Time  `db:"created_at" json:"created_at"`
	DesiredPublishTime *time.Time `db:"desired_publish_time" json:"desired_publish_time,omitempty"`
	Active             bool       `db:"is_active" json:"active"`
	Notes              *string    `db:"notes" json:"notes,omitempty"`
}

type PostPhoto struct {
	ID        int64 `db:"post_photo_id" json:"id"`
	PostID    int64 `db:"post_id" json:"post_id"`
	PhotoID   int64 `db:"photo_id" json:"photo_id"`
	SortOrder int   `db:"sort_order" json:"sort_order"`
	Primary   bool  `db:"is_primary" json:"primary"`
}

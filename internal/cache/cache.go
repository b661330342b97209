package cache

import (
	"context"
	"time"

	"github.com/maheshrc27/social-publisher/internal/models"
)

// PublishedEntry is what gets remembered about a successful publication.
type PublishedEntry struct {
	PublicationID  int64                 `json:"publicationId"`
	PostID         int64                 `json:"postId"`
	Platform       models.SocialPlatform `json:"platform"`
	PlatformPostID string                `json:"platformPostId"`
	PublishedAt    time.Time             `json:"publishedAt"`
}

type PublicationCache interface {
	StorePublished(ctx context.Context, pub *models.Publication) error
	GetPublished(ctx context.Context, publicationID int64) (*PublishedEntry, error)
	Forget(ctx context.Context, publicationID int64) error
}

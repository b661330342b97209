package publisher

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/maheshrc27/social-publisher/internal/models"
)

// FakePublisher logs what it would publish and always succeeds. It stands in
// for platforms without credentials.
type FakePublisher struct {
	platform models.SocialPlatform
}

func NewFakePublisher(platform models.SocialPlatform) *FakePublisher {
	return &FakePublisher{platform: platform}
}

func (f *FakePublisher) Platform() models.SocialPlatform {
	return f.platform
}

func (f *FakePublisher) Publish(ctx context.Context, post *models.Post, product *models.Product, postPhotos []*models.PostPhoto, productPhotos []*models.Photo, caption string) Result {
	slog.Info("fake publish",
		"platform", f.platform,
		"post_id", post.ID,
		"photos", len(OrderPhotos(postPhotos)),
		"caption", caption,
	)
	return Published(fmt.Sprintf("%s_POST_%d", f.platform, post.ID))
}

func (f *FakePublisher) DeletePost(ctx context.Context, platformPostID string) bool {
	slog.Info("fake delete", "platform", f.platform, "platform_post_id", platformPostID)
	return true
}

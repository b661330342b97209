package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/maheshrc27/social-publisher/internal/models"
)

type FacebookConfig struct {
	GraphURL     string
	PageID       string
	AccessToken  string
	ImageBaseURL string
	Timeout      time.Duration
}

// FacebookPublisher posts to a Facebook Page through the Graph API.
type FacebookPublisher struct {
	cfg   FacebookConfig
	graph *graphClient
}

func NewFacebookPublisher(cfg FacebookConfig) *FacebookPublisher {
	return &FacebookPublisher{
		cfg:   cfg,
		graph: newGraphClient(cfg.GraphURL, cfg.AccessToken, cfg.Timeout),
	}
}

func (f *FacebookPublisher) Platform() models.SocialPlatform {
	return models.PlatformFacebook
}

func (f *FacebookPublisher) Publish(ctx context.Context, post *models.Post, product *models.Product, postPhotos []*models.PostPhoto, productPhotos []*models.Photo, caption string) Result {
	photos := OrderPhotos(postPhotos)
	warnUnknownPhotos(photos, productPhotos)

	var (
		id  string
		err error
	)
	switch len(photos) {
	case 0:
		slog.Info("publishing facebook text post", "post_id", post.ID, "page_id", f.cfg.PageID)
		id, err = f.feedPost(ctx, caption, nil)
	case 1:
		slog.Info("publishing facebook photo post", "post_id", post.ID, "page_id", f.cfg.PageID, "photo_id", photos[0].PhotoID)
		id, err = f.photoPost(ctx, caption, photos[0].PhotoID)
	default:
		slog.Info("publishing facebook multi-photo post", "post_id", post.ID, "page_id", f.cfg.PageID, "photos", len(photos))
		id, err = f.multiPhotoPost(ctx, caption, photos)
	}

	if err != nil {
		slog.Error("facebook publish failed", "post_id", post.ID, "error", err)
		return Failed("Facebook publish error: " + err.Error())
	}
	if id == "" {
		return Failed("Facebook post returned null or no id")
	}

	slog.Info("facebook post created", "post_id", post.ID, "platform_post_id", id)
	return Published(id)
}

func (f *FacebookPublisher) feedPost(ctx context.Context, caption string, mediaIDs []string) (string, error) {
	form := url.Values{}
	form.Set("message", caption)
	for i, mediaID := range mediaIDs {
		attached, err := json.Marshal(map[string]string{"media_fbid": mediaID})
		if err != nil {
			return "", err
		}
		form.Set(fmt.Sprintf("attached_media[%d]", i), string(attached))
	}

	resp, err := f.graph.postForm(ctx, "/"+f.cfg.PageID+"/feed", form)
	if err != nil {
		return "", err
	}
	return resp.ID, nil
}

func (f *FacebookPublisher) photoPost(ctx context.Context, caption string, photoID int64) (string, error) {
	form := url.Values{}
	form.Set("message", caption)
	form.Set("url", PhotoURL(f.cfg.ImageBaseURL, photoID))

	resp, err := f.graph.postForm(ctx, "/"+f.cfg.PageID+"/photos", form)
	if err != nil {
		return "", err
	}
	// The feed post id is the one that can be deleted later.
	if resp.PostID != "" {
		return resp.PostID, nil
	}
	return resp.ID, nil
}

// multiPhotoPost uploads every photo unpublished, then references them all
// from a single feed post. Any failed upload fails the whole post.
func (f *FacebookPublisher) multiPhotoPost(ctx context.Context, caption string, photos []*models.PostPhoto) (string, error) {
	mediaIDs := make([]string, 0, len(photos))
	for _, p := range photos {
		form := url.Values{}
		form.Set("url", PhotoURL(f.cfg.ImageBaseURL, p.PhotoID))
		form.Set("published", "false")

		resp, err := f.graph.postForm(ctx, "/"+f.cfg.PageID+"/photos", form)
		if err != nil {
			return "", fmt.Errorf("upload of photo %d failed: %w", p.PhotoID, err)
		}
		if resp.ID == "" {
			return "", fmt.Errorf("upload of photo %d returned no id", p.PhotoID)
		}
		mediaIDs = append(mediaIDs, resp.ID)
	}

	return f.feedPost(ctx, caption, mediaIDs)
}

func (f *FacebookPublisher) DeletePost(ctx context.Context, platformPostID string) bool {
	if platformPostID == "" {
		return false
	}

	resp, err := f.graph.delete(ctx, "/"+url.PathEscape(platformPostID))
	if err != nil {
		slog.Error("facebook delete failed", "platform_post_id", platformPostID, "error", err)
		return false
	}
	return resp.Success
}

func warnUnknownPhotos(photos []*models.PostPhoto, productPhotos []*models.Photo) {
	known := make(map[int64]struct{}, len(productPhotos))
	for _, p := range productPhotos {
		known[p.ID] = struct{}{}
	}
	for _, p := range photos {
		if _, ok := known[p.PhotoID]; !ok {
			slog.Warn("post photo not among product photos", "photo_id", p.PhotoID, "post_id", p.PostID)
		}
	}
}

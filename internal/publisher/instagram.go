package publisher

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/maheshrc27/social-publisher/internal/models"
)

type InstagramConfig struct {
	GraphURL     string
	AccountID    string
	AccessToken  string
	ImageBaseURL string
	Timeout      time.Duration
}

// InstagramPublisher uses the container flow of the Instagram Graph API:
// create media containers, then publish the top-level one.
type InstagramPublisher struct {
	cfg   InstagramConfig
	graph *graphClient
}

func NewInstagramPublisher(cfg InstagramConfig) *InstagramPublisher {
	return &InstagramPublisher{
		cfg:   cfg,
		graph: newGraphClient(cfg.GraphURL, cfg.AccessToken, cfg.Timeout),
	}
}

func (ig *InstagramPublisher) Platform() models.SocialPlatform {
	return models.PlatformInstagram
}

func (ig *InstagramPublisher) Publish(ctx context.Context, post *models.Post, product *models.Product, postPhotos []*models.PostPhoto, productPhotos []*models.Photo, caption string) Result {
	photos := OrderPhotos(postPhotos)

	var (
		containerID string
		err         error
	)
	switch len(photos) {
	case 0:
		return Failed("Instagram does not support text-only posts")
	case 1:
		containerID, err = ig.createContainer(ctx, url.Values{
			"image_url": {PhotoURL(ig.cfg.ImageBaseURL, photos[0].PhotoID)},
			"caption":   {caption},
		})
	default:
		containerID, err = ig.createCarousel(ctx, caption, photos)
	}
	if err != nil {
		slog.Error("instagram container failed", "post_id", post.ID, "error", err)
		return Failed("Instagram publish error: " + err.Error())
	}

	mediaID, err := ig.publishContainer(ctx, containerID)
	if err != nil {
		slog.Error("instagram media_publish failed", "post_id", post.ID, "container_id", containerID, "error", err)
		return Failed("Instagram publish error: " + err.Error())
	}

	slog.Info("instagram media published", "post_id", post.ID, "platform_post_id", mediaID)
	return Published(mediaID)
}

func (ig *InstagramPublisher) createCarousel(ctx context.Context, caption string, photos []*models.PostPhoto) (string, error) {
	children := make([]string, 0, len(photos))
	for _, p := range photos {
		id, err := ig.createContainer(ctx, url.Values{
			"image_url":        {PhotoURL(ig.cfg.ImageBaseURL, p.PhotoID)},
			"is_carousel_item": {"true"},
		})
		if err != nil {
			return "", fmt.Errorf("carousel item for photo %d: %w", p.PhotoID, err)
		}
		children = append(children, id)
	}

	return ig.createContainer(ctx, url.Values{
		"media_type": {"CAROUSEL"},
		"caption":    {caption},
		"children":   {strings.Join(children, ",")},
	})
}

func (ig *InstagramPublisher) createContainer(ctx context.Context, form url.Values) (string, error) {
	resp, err := ig.graph.postForm(ctx, "/"+ig.cfg.AccountID+"/media", form)
	if err != nil {
		return "", err
	}
	if resp.ID == "" {
		return "", fmt.Errorf("no media ID returned from Instagram")
	}
	return resp.ID, nil
}

func (ig *InstagramPublisher) publishContainer(ctx context.Context, containerID string) (string, error) {
	resp, err := ig.graph.postForm(ctx, "/"+ig.cfg.AccountID+"/media_publish", url.Values{
		"creation_id": {containerID},
	})
	if err != nil {
		return "", err
	}
	if resp.ID == "" {
		return "", fmt.Errorf("no media ID returned from Instagram")
	}
	return resp.ID, nil
}

// DeletePost always fails: the Instagram Graph API cannot delete feed media.
func (ig *InstagramPublisher) DeletePost(ctx context.Context, platformPostID string) bool {
	slog.Warn("instagram does not support deleting media", "platform_post_id", platformPostID)
	return false
}

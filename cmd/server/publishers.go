package main

import (
	"log/slog"

	config "github.com/maheshrc27/social-publisher/configs"
	"github.com/maheshrc27/social-publisher/internal/models"
	"github.com/maheshrc27/social-publisher/internal/publisher"
)

// buildRegistry picks the adapter per platform. In live mode a platform
// without credentials gets no adapter, so its publications fail with a clear
// message instead of calling the Graph API unauthenticated.
func buildRegistry(cfg *config.Config) publisher.Registry {
	if cfg.PublisherMode == config.PublisherModeFake {
		slog.Info("using fake publishers")
		return publisher.Registry{
			Instagram: publisher.NewFakePublisher(models.PlatformInstagram),
			Facebook:  publisher.NewFakePublisher(models.PlatformFacebook),
		}
	}

	var reg publisher.Registry
	if cfg.Facebook.PageID != "" && cfg.Facebook.AccessToken != "" {
		reg.Facebook = publisher.NewFacebookPublisher(publisher.FacebookConfig{
			GraphURL:     cfg.Facebook.GraphURL,
			PageID:       cfg.Facebook.PageID,
			AccessToken:  cfg.Facebook.AccessToken,
			ImageBaseURL: cfg.ImageBaseURL,
			Timeout:      cfg.PublishTimeout,
		})
	} else {
		slog.Warn("facebook credentials missing, facebook publications will fail")
	}

	if cfg.Instagram.AccountID != "" && cfg.Instagram.AccessToken != "" {
		reg.Instagram = publisher.NewInstagramPublisher(publisher.InstagramConfig{
			GraphURL:     cfg.Instagram.GraphURL,
			AccountID:    cfg.Instagram.AccountID,
			AccessToken:  cfg.Instagram.AccessToken,
			ImageBaseURL: cfg.ImageBaseURL,
			Timeout:      cfg.PublishTimeout,
		})
	} else {
		slog.Warn("instagram credentials missing, instagram publications will fail")
	}

	return reg
}

// Package publisher holds the per-platform adapters the dispatcher publishes
// through.
package publisher

import (
	"context"
	"sort"
	"strconv"
	"strings"

	"github.com/maheshrc27/social-publisher/internal/models"
)

// MaxPhotos caps how many photos a single publication carries.
const MaxPhotos = 10

// SocialPublisher publishes a resolved post to one platform. Implementations
// never return errors: every failure is reported through Result.
type SocialPublisher interface {
	Platform() models.SocialPlatform
	Publish(ctx context.Context, post *models.Post, product *models.Product, postPhotos []*models.PostPhoto, productPhotos []*models.Photo, caption string) Result
	DeletePost(ctx context.Context, platformPostID string) bool
}

type Result struct {
	Success        bool
	PlatformPostID string
	ErrorMessage   string
}

func Published(platformPostID string) Result {
	return Result{Success: true, PlatformPostID: platformPostID}
}

func Failed(msg string) Result {
	return Result{ErrorMessage: msg}
}

// OrderPhotos returns the photos to publish: primary first, then ascending
// sort order, then ascending photo id, duplicates collapsed, capped at
// MaxPhotos. The input slice is not modified.
func OrderPhotos(photos []*models.PostPhoto) []*models.PostPhoto {
	sorted := make([]*models.PostPhoto, 0, len(photos))
	for _, p := range photos {
		if p != nil {
			sorted = append(sorted, p)
		}
	}

	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.Primary != b.Primary {
			return a.Primary
		}
		if a.SortOrder != b.SortOrder {
			return a.SortOrder < b.SortOrder
		}
		return a.PhotoID < b.PhotoID
	})

	seen := make(map[int64]struct{}, len(sorted))
	out := sorted[:0]
	for _, p := range sorted {
		if _, dup := seen[p.PhotoID]; dup {
			continue
		}
		seen[p.PhotoID] = struct{}{}
		out = append(out, p)
		if len(out) == MaxPhotos {
			break
		}
	}
	return out
}

// PhotoURL builds the public address of a photo from the serving base URL.
func PhotoURL(base string, photoID int64) string {
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	return base + strconv.FormatInt(photoID, 10)
}

// Registry maps platforms to adapters. A nil field means the platform is not
// configured.
type Registry struct {
	Instagram SocialPublisher
	Facebook  SocialPublisher
}

func (r Registry) For(platform models.SocialPlatform) (SocialPublisher, bool) {
	var p SocialPublisher
	switch platform {
	case models.PlatformInstagram:
		p = r.Instagram
	case models.PlatformFacebook:
		p = r.Facebook
	}
	return p, p != nil
}

package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/h2non/filetype"
	"github.com/h2non/filetype/types"
	"github.com/maheshrc27/social-publisher/internal/repository"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

type PhotoContent struct {
	Bytes       []byte
	ContentType string
	Extension   string
}

type MirroredPhoto struct {
	PhotoID int64  `json:"photo_id"`
	URL     string `json:"url"`
}

type PhotoService interface {
	GetPhoto(ctx context.Context, photoID int64) (*PhotoContent, error)
	MirrorPostPhotos(ctx context.Context, postID int64) ([]MirroredPhoto, error)
}

type photoService struct {
	ph    repository.PhotoRepository
	pp    repository.PostPhotoRepository
	store ObjectStore
}

// NewPhotoService wires photo serving. store may be nil, in which case
// mirroring is rejected.
func NewPhotoService(ph repository.PhotoRepository, pp repository.PostPhotoRepository, store ObjectStore) PhotoService {
	return &photoService{ph: ph, pp: pp, store: store}
}

var allowedImageTypes = map[string]struct{}{
	"jpg": {}, "png": {}, "webp": {}, "gif": {},
}

func (s *photoService) GetPhoto(ctx context.Context, photoID int64) (*PhotoContent, error) {
	photo, err := s.ph.GetByID(ctx, photoID)
	if err != nil {
		return nil, fmt.Errorf("error fetching photo %d: %w", photoID, err)
	}
	if photo == nil || len(photo.Bytes) == 0 {
		return nil, fmt.Errorf("%w: photo not found id=%d", ErrNotFound, photoID)
	}

	kind, err := filetype.Match(photo.Bytes)
	if err != nil || kind == types.Unknown {
		return &PhotoContent{Bytes: photo.Bytes, ContentType: "application/octet-stream", Extension: "bin"}, nil
	}

	return &PhotoContent{Bytes: photo.Bytes, ContentType: kind.MIME.Value, Extension: kind.Extension}, nil
}

// MirrorPostPhotos copies every photo of the post to the object store.
func (s *photoService) MirrorPostPhotos(ctx context.Context, postID int64) ([]MirroredPhoto, error) {
	if s.store == nil {
		return nil, fmt.Errorf("%w: object storage is not configured", ErrValidation)
	}

	postPhotos, err := s.pp.ListByPostID(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("error fetching photos of post %d: %w", postID, err)
	}

	mirrored := make([]MirroredPhoto, 0, len(postPhotos))
	for _, pp := range postPhotos {
		content, err := s.GetPhoto(ctx, pp.PhotoID)
		if err != nil {
			return mirrored, err
		}
		if _, ok := allowedImageTypes[content.Extension]; !ok {
			return mirrored, fmt.Errorf("%w: photo %d has unsupported type %s", ErrValidation, pp.PhotoID, content.Extension)
		}

		id, err := gonanoid.New()
		if err != nil {
			return mirrored, err
		}
		key := fmt.Sprintf("posts/%d/%d-%s.%s", postID, pp.PhotoID, id, content.Extension)

		url, err := s.store.Upload(ctx, key, content.Bytes, content.ContentType)
		if err != nil {
			return mirrored, fmt.Errorf("error uploading photo %d: %w", pp.PhotoID, err)
		}
		mirrored = append(mirrored, MirroredPhoto{PhotoID: pp.PhotoID, URL: url})
	}

	slog.Info("post photos mirrored", "post_id", postID, "count", len(mirrored))
	return mirrored, nil
}

package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/maheshrc27/social-publisher/internal/models"
	"github.com/maheshrc27/social-publisher/internal/repository"
)

const CancelledByDeactivation = "Cancelled because post was deactivated"

type PostWithPhotos struct {
	Post   *models.Post        `json:"post"`
	Photos []*models.PostPhoto `json:"photos"`
}

type PostService interface {
	EnsurePostForProduct(ctx context.Context, productID int) (*PostWithPhotos, error)
	DeactivatePost(ctx context.Context, postID int64) (int, error)
	DeactivatePostByProduct(ctx context.Context, productID int) (int, error)
}

type postService struct {
	tx   repository.Transactor
	pr   repository.PostRepository
	pp   repository.PostPhotoRepository
	prod repository.ProductRepository
	ph   repository.PhotoRepository
	pub  repository.PublicationRepository
	now  func() time.Time
}

func NewPostService(
	tx repository.Transactor,
	pr repository.PostRepository,
	pp repository.PostPhotoRepository,
	prod repository.ProductRepository,
	ph repository.PhotoRepository,
	pub repository.PublicationRepository,
	now func() time.Time) PostService {
	if now == nil {
		now = time.Now
	}
	return &postService{
		tx:   tx,
		pr:   pr,
		pp:   pp,
		prod: prod,
		ph:   ph,
		pub:  pub,
		now:  now,
	}
}

func (s *postService) EnsurePostForProduct(ctx context.Context, productID int) (*PostWithPhotos, error) {
	product, err := s.prod.GetByID(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("error fetching product %d: %w", productID, err)
	}
	if product == nil {
		err := fmt.Errorf("%w: product not found productId=%d", ErrNotFound, productID)
		slog.Info(err.Error())
		return nil, err
	}

	photos, err := s.ph.ListByProductID(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("error fetching photos for product %d: %w", productID, err)
	}

	existing, err := s.pr.GetActiveByProductID(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("error fetching active post for product %d: %w", productID, err)
	}

	desired := s.now()
	var post *models.Post
	if existing != nil {
		post = existing
		post.Title = product.Name
		post.Caption = nil
		post.LanguageCode = models.DefaultLanguageCode
		post.DesiredPublishTime = &desired
		post.Active = true
	} else {
		post = &models.Post{
			ProductID:          productID,
			Title:              product.Name,
			LanguageCode:       models.DefaultLanguageCode,
			DesiredPublishTime: &desired,
			Active:             true,
		}
	}

	var postPhotos []*models.PostPhoto
	err = s.tx.WithinTx(ctx, func(tx *sql.Tx) error {
		if existing != nil {
			if err := s.pr.Update(ctx, tx, post); err != nil {
				return fmt.Errorf("error updating post %d: %w", post.ID, err)
			}
			if err := s.pp.RemoveByPostID(ctx, tx, post.ID); err != nil {
				return fmt.Errorf("error removing photos of post %d: %w", post.ID, err)
			}
		} else {
			if _, err := s.pr.Create(ctx, tx, post); err != nil {
				return fmt.Errorf("error creating post: %w", err)
			}
		}

		postPhotos, err = s.linkPhotos(ctx, tx, post.ID, photos)
		return err
	})
	if err != nil {
		return nil, err
	}

	slog.Info("post ensured for product",
		"product_id", productID,
		"post_id", post.ID,
		"updated", existing != nil,
		"photos", len(postPhotos),
	)
	return &PostWithPhotos{Post: post, Photos: postPhotos}, nil
}

// linkPhotos inserts the photos in the given order; the first one is primary.
func (s *postService) linkPhotos(ctx context.Context, tx *sql.Tx, postID int64, photos []*models.Photo) ([]*models.PostPhoto, error) {
	postPhotos := make([]*models.PostPhoto, 0, len(photos))
	for i, photo := range photos {
		pp := &models.PostPhoto{
			PostID:    postID,
			PhotoID:   photo.ID,
			SortOrder: i,
			Primary:   i == 0,
		}
		if _, err := s.pp.Create(ctx, tx, pp); err != nil {
			return nil, fmt.Errorf("error linking photo %d to post %d: %w", photo.ID, postID, err)
		}
		postPhotos = append(postPhotos, pp)
	}
	return postPhotos, nil
}

// DeactivatePost soft-deletes the post and cancels its pending-like
// publications. It returns how many publications were cancelled.
func (s *postService) DeactivatePost(ctx context.Context, postID int64) (int, error) {
	post, err := s.pr.GetByID(ctx, postID)
	if err != nil {
		return 0, fmt.Errorf("error fetching post %d: %w", postID, err)
	}
	if post == nil {
		err := fmt.Errorf("%w: post not found id=%d", ErrNotFound, postID)
		slog.Info(err.Error())
		return 0, err
	}

	return s.deactivate(ctx, post)
}

func (s *postService) DeactivatePostByProduct(ctx context.Context, productID int) (int, error) {
	post, err := s.pr.GetActiveByProductID(ctx, productID)
	if err != nil {
		return 0, fmt.Errorf("error fetching active post for product %d: %w", productID, err)
	}
	if post == nil {
		err := fmt.Errorf("%w: no active post for productId=%d", ErrNotFound, productID)
		slog.Info(err.Error())
		return 0, err
	}

	return s.deactivate(ctx, post)
}

func (s *postService) deactivate(ctx context.Context, post *models.Post) (int, error) {
	if post.Active {
		post.Active = false
		if err := s.pr.Update(ctx, nil, post); err != nil {
			return 0, fmt.Errorf("error deactivating post %d: %w", post.ID, err)
		}
	}

	pubs, err := s.pub.ListByPost(ctx, post.ID)
	if err != nil {
		return 0, fmt.Errorf("error listing publications of post %d: %w", post.ID, err)
	}

	msg := CancelledByDeactivation
	cancelled := 0
	for _, pub := range pubs {
		if !pub.Status.IsPendingLike() {
			continue
		}

		prev := pub.Status
		pub.Status = models.StatusCancelled
		pub.ErrorMessage = &msg

		err := s.pub.UpdateIfStatus(ctx, pub, prev)
		if errors.Is(err, repository.ErrStatusConflict) {
			slog.Info("publication changed while cancelling, left as is", "publication_id", pub.ID)
			continue
		}
		if err != nil {
			return cancelled, fmt.Errorf("error cancelling publication %d: %w", pub.ID, err)
		}
		cancelled++
	}

	slog.Info("post deactivated", "post_id", post.ID, "cancelled_publications", cancelled)
	return cancelled, nil
}

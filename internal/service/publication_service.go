package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/maheshrc27/social-publisher/internal/metrics"
	"github.com/maheshrc27/social-publisher/internal/models"
	"github.com/maheshrc27/social-publisher/internal/publisher"
	"github.com/maheshrc27/social-publisher/internal/repository"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

const (
	DefaultProcessLimit   = 10
	DefaultListLimit      = 20
	DefaultPublishTimeout = 30 * time.Second

	DeletedFromPlatform = "Deleted from platform"
)

type OutcomeResult string

const (
	OutcomePublished OutcomeResult = "published"
	OutcomeFailed    OutcomeResult = "failed"
	OutcomeSkipped   OutcomeResult = "skipped"
)

// Outcome is what happened to one publication during a dispatch.
type Outcome struct {
	PublicationID int64                    `json:"publication_id"`
	PostID        int64                    `json:"post_id"`
	Platform      models.SocialPlatform    `json:"platform"`
	Result        OutcomeResult            `json:"result"`
	Status        models.PublicationStatus `json:"status"`
	Message       string                   `json:"message,omitempty"`
}

type BatchReport struct {
	RunID      string    `json:"run_id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Outcomes   []Outcome `json:"outcomes"`
	Published  int       `json:"published"`
	Failed     int       `json:"failed"`
	Skipped    int       `json:"skipped"`
}

func (r *BatchReport) add(o Outcome) {
	r.Outcomes = append(r.Outcomes, o)
	switch o.Result {
	case OutcomePublished:
		r.Published++
	case OutcomeFailed:
		r.Failed++
	case OutcomeSkipped:
		r.Skipped++
	}
}

type ScheduleInput struct {
	PostID          int64
	Platform        models.SocialPlatform
	TargetAccount   string
	CaptionOverride *string
	ScheduledTime   *time.Time
}

type PublicationServiceConfig struct {
	PublishTimeout time.Duration
	Now            func() time.Time
	// OnPublished runs after a PUBLISHED row is persisted. Its error is
	// logged and does not change the outcome.
	OnPublished func(ctx context.Context, pub *models.Publication) error
	Metrics     *metrics.Metrics
}

type PublicationService interface {
	ProcessDue(ctx context.Context, limit int) (*BatchReport, error)
	PublishSingle(ctx context.Context, pub *models.Publication) (Outcome, error)
	Schedule(ctx context.Context, in ScheduleInput) (*models.Publication, error)
	ListByStatus(ctx context.Context, status models.PublicationStatus, limit int) ([]*models.Publication, error)
	Get(ctx context.Context, id int64) (*models.Publication, error)
	DeletePublished(ctx context.Context, id int64) (*models.Publication, error)
}

type publicationService struct {
	pub  repository.PublicationRepository
	pr   repository.PostRepository
	pp   repository.PostPhotoRepository
	prod repository.ProductRepository
	ph   repository.PhotoRepository
	reg  publisher.Registry
	cfg  PublicationServiceConfig
}

func NewPublicationService(
	pub repository.PublicationRepository,
	pr repository.PostRepository,
	pp repository.PostPhotoRepository,
	prod repository.ProductRepository,
	ph repository.PhotoRepository,
	reg publisher.Registry,
	cfg PublicationServiceConfig) PublicationService {
	if cfg.PublishTimeout <= 0 {
		cfg.PublishTimeout = DefaultPublishTimeout
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &publicationService{
		pub:  pub,
		pr:   pr,
		pp:   pp,
		prod: prod,
		ph:   ph,
		reg:  reg,
		cfg:  cfg,
	}
}

// ProcessDue dispatches due publications one after another. A failure on one
// row is recorded on that row and never stops the batch; only a failure to
// select the batch is returned.
func (s *publicationService) ProcessDue(ctx context.Context, limit int) (*BatchReport, error) {
	if limit <= 0 {
		limit = DefaultProcessLimit
	}

	runID, err := gonanoid.New()
	if err != nil {
		return nil, fmt.Errorf("error generating run id: %w", err)
	}

	now := s.cfg.Now()
	report := &BatchReport{RunID: runID, StartedAt: now, Outcomes: []Outcome{}}
	s.cfg.Metrics.ObserveBatch()

	due, err := s.pub.FindDue(ctx, now, limit)
	if err != nil {
		slog.Error("failed to load due publications", "run_id", runID, "error", err)
		return nil, fmt.Errorf("error loading due publications: %w", err)
	}

	for _, pub := range due {
		report.add(s.processOne(ctx, pub))
	}

	report.FinishedAt = s.cfg.Now()
	slog.Info("dispatch batch finished",
		"run_id", runID,
		"due", len(due),
		"published", report.Published,
		"failed", report.Failed,
		"skipped", report.Skipped,
	)
	return report, nil
}

// processOne runs PublishSingle and turns any error or panic into a FAILED row.
func (s *publicationService) processOne(ctx context.Context, pub *models.Publication) (out Outcome) {
	attemptsBefore := pub.AttemptCount

	defer func() {
		if r := recover(); r != nil {
			slog.Error("panic while publishing", "publication_id", pub.ID, "panic", r)
			out = s.failUnexpected(ctx, pub, attemptsBefore, fmt.Sprint(r))
		}
	}()

	out, err := s.PublishSingle(ctx, pub)
	if err != nil {
		slog.Error("unexpected error while publishing", "publication_id", pub.ID, "error", err)
		return s.failUnexpected(ctx, pub, attemptsBefore, err.Error())
	}
	return out
}

func (s *publicationService) failUnexpected(ctx context.Context, pub *models.Publication, attemptsBefore int, msg string) Outcome {
	bump := pub.AttemptCount == attemptsBefore
	out, err := s.markFailed(ctx, pub, "Unexpected error: "+msg, bump)
	if err != nil {
		slog.Error("could not record failure", "publication_id", pub.ID, "error", err)
		return s.outcome(pub, OutcomeFailed, "Unexpected error: "+msg)
	}
	return out
}

func (s *publicationService) PublishSingle(ctx context.Context, pub *models.Publication) (Outcome, error) {
	if pub.Status.IsTerminal() {
		return s.outcome(pub, OutcomeSkipped, "already "+string(pub.Status)), nil
	}
	if !pub.Status.IsPendingLike() {
		return s.outcome(pub, OutcomeSkipped, "in flight"), nil
	}

	post, err := s.pr.GetByID(ctx, pub.PostID)
	if err != nil {
		return Outcome{}, fmt.Errorf("error fetching post %d: %w", pub.PostID, err)
	}
	if post == nil {
		return s.markFailed(ctx, pub, fmt.Sprintf("Post not found id=%d", pub.PostID), true)
	}

	product, err := s.prod.GetByID(ctx, post.ProductID)
	if err != nil {
		return Outcome{}, fmt.Errorf("error fetching product %d: %w", post.ProductID, err)
	}
	if product == nil {
		return s.markFailed(ctx, pub, fmt.Sprintf("Product not found id=%d", post.ProductID), true)
	}

	postPhotos, err := s.pp.ListByPostID(ctx, post.ID)
	if err != nil {
		return Outcome{}, fmt.Errorf("error fetching photos of post %d: %w", post.ID, err)
	}
	productPhotos, err := s.ph.ListByProductID(ctx, product.ID)
	if err != nil {
		return Outcome{}, fmt.Errorf("error fetching photos of product %d: %w", product.ID, err)
	}

	caption := resolveCaption(pub, post, product)

	adapter, ok := s.reg.For(pub.Platform)
	if !ok {
		return s.markFailed(ctx, pub, fmt.Sprintf("No SocialPublisher registered for platform %s", pub.Platform), true)
	}

	claimed := *pub
	attemptAt := s.cfg.Now()
	claimed.Status = models.StatusPublishing
	claimed.AttemptCount++
	claimed.LastAttemptAt = &attemptAt
	if err := s.pub.UpdateIfStatus(ctx, &claimed, pub.Status); err != nil {
		if errors.Is(err, repository.ErrStatusConflict) {
			slog.Info("publication claimed by another dispatcher", "publication_id", pub.ID)
			return s.outcome(pub, OutcomeSkipped, "claimed by another dispatcher"), nil
		}
		return Outcome{}, fmt.Errorf("error claiming publication %d: %w", pub.ID, err)
	}
	*pub = claimed

	started := time.Now()
	res := s.publish(ctx, adapter, post, product, postPhotos, productPhotos, caption)
	elapsed := time.Since(started)

	// Once PUBLISHING is persisted the row is finished even if the caller gave up.
	ctx = context.WithoutCancel(ctx)

	if !res.Success {
		msg := res.ErrorMessage
		if strings.TrimSpace(msg) == "" {
			msg = "publish failed without a message"
		}
		s.cfg.Metrics.ObservePublish(string(pub.Platform), string(OutcomeFailed), elapsed)
		return s.markFailed(ctx, pub, msg, false)
	}

	done := *pub
	publishedAt := s.cfg.Now()
	platformPostID := res.PlatformPostID
	done.Status = models.StatusPublished
	done.PublishedAt = &publishedAt
	done.PlatformPostID = &platformPostID
	done.ErrorMessage = nil
	if err := s.pub.UpdateIfStatus(ctx, &done, models.StatusPublishing); err != nil {
		return Outcome{}, fmt.Errorf("error recording publish of %d as %s: %w", pub.ID, platformPostID, err)
	}
	*pub = done

	s.cfg.Metrics.ObservePublish(string(pub.Platform), string(OutcomePublished), elapsed)
	slog.Info("publication published",
		"publication_id", pub.ID,
		"platform", pub.Platform,
		"platform_post_id", platformPostID,
		"attempt", pub.AttemptCount,
	)

	if s.cfg.OnPublished != nil {
		if err := s.cfg.OnPublished(ctx, pub); err != nil {
			slog.Warn("on-published hook failed", "publication_id", pub.ID, "error", err)
		}
	}

	return s.outcome(pub, OutcomePublished, ""), nil
}

// publish calls the adapter under the publish timeout. A timeout or a panic
// in the adapter is reported as a failed result.
func (s *publicationService) publish(
	ctx context.Context,
	adapter publisher.SocialPublisher,
	post *models.Post,
	product *models.Product,
	postPhotos []*models.PostPhoto,
	productPhotos []*models.Photo,
	caption string) publisher.Result {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.PublishTimeout)
	defer cancel()

	done := make(chan publisher.Result, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- publisher.Failed(fmt.Sprintf("Unexpected error: %v", r))
			}
		}()
		done <- adapter.Publish(ctx, post, product, postPhotos, productPhotos, caption)
	}()

	select {
	case res := <-done:
		return res
	case <-ctx.Done():
		return publisher.Failed(fmt.Sprintf("publish to %s timed out after %s: %v", adapter.Platform(), s.cfg.PublishTimeout, ctx.Err()))
	}
}

// markFailed moves pub to FAILED with msg. bumpAttempt is set when the
// attempt has not been counted yet.
func (s *publicationService) markFailed(ctx context.Context, pub *models.Publication, msg string, bumpAttempt bool) (Outcome, error) {
	failed := *pub
	failed.Status = models.StatusFailed
	failed.ErrorMessage = &msg
	if bumpAttempt {
		at := s.cfg.Now()
		failed.AttemptCount++
		failed.LastAttemptAt = &at
	}

	if err := s.pub.UpdateIfStatus(ctx, &failed, pub.Status); err != nil {
		if errors.Is(err, repository.ErrStatusConflict) {
			slog.Info("publication changed before failure was recorded", "publication_id", pub.ID)
			return s.outcome(pub, OutcomeSkipped, "claimed by another dispatcher"), nil
		}
		return Outcome{}, fmt.Errorf("error marking publication %d failed: %w", pub.ID, err)
	}
	*pub = failed

	slog.Info("publication failed", "publication_id", pub.ID, "platform", pub.Platform, "attempt", pub.AttemptCount, "error", msg)
	return s.outcome(pub, OutcomeFailed, msg), nil
}

func (s *publicationService) outcome(pub *models.Publication, result OutcomeResult, msg string) Outcome {
	return Outcome{
		PublicationID: pub.ID,
		PostID:        pub.PostID,
		Platform:      pub.Platform,
		Result:        result,
		Status:        pub.Status,
		Message:       msg,
	}
}

// Schedule creates or resets the publication of a post on one platform.
func (s *publicationService) Schedule(ctx context.Context, in ScheduleInput) (*models.Publication, error) {
	platform, err := models.ParseSocialPlatform(string(in.Platform))
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrValidation, err.Error())
	}
	in.Platform = platform

	post, err := s.pr.GetByID(ctx, in.PostID)
	if err != nil {
		return nil, fmt.Errorf("error fetching post %d: %w", in.PostID, err)
	}
	if post == nil {
		return nil, fmt.Errorf("%w: post not found id=%d", ErrNotFound, in.PostID)
	}
	if !post.Active {
		return nil, fmt.Errorf("%w: post %d is not active", ErrValidation, in.PostID)
	}

	existing, err := s.pub.GetByPostAndPlatform(ctx, in.PostID, in.Platform)
	if err != nil {
		return nil, fmt.Errorf("error fetching publication of post %d on %s: %w", in.PostID, in.Platform, err)
	}

	if existing == nil {
		pub := &models.Publication{
			PostID:          in.PostID,
			Platform:        in.Platform,
			TargetAccount:   in.TargetAccount,
			CaptionOverride: in.CaptionOverride,
			Status:          models.StatusPending,
			ScheduledTime:   in.ScheduledTime,
		}
		if _, err := s.pub.Create(ctx, pub); err != nil {
			return nil, fmt.Errorf("error creating publication: %w", err)
		}
		slog.Info("publication scheduled", "publication_id", pub.ID, "post_id", pub.PostID, "platform", pub.Platform)
		return pub, nil
	}

	if existing.Status == models.StatusPublishing && !s.staleClaim(existing) {
		return nil, fmt.Errorf("%w: publication %d is being published", ErrValidation, existing.ID)
	}

	reset := *existing
	reset.TargetAccount = in.TargetAccount
	reset.CaptionOverride = in.CaptionOverride
	reset.ScheduledTime = in.ScheduledTime
	reset.Status = models.StatusPending
	reset.ErrorMessage = nil
	reset.PublishedAt = nil
	reset.PlatformPostID = nil
	if err := s.pub.UpdateIfStatus(ctx, &reset, existing.Status); err != nil {
		if errors.Is(err, repository.ErrStatusConflict) {
			return nil, fmt.Errorf("%w: publication %d changed concurrently", ErrValidation, existing.ID)
		}
		return nil, fmt.Errorf("error rescheduling publication %d: %w", existing.ID, err)
	}

	slog.Info("publication rescheduled", "publication_id", reset.ID, "previous_status", existing.Status, "attempts", reset.AttemptCount)
	return &reset, nil
}

// staleClaim reports whether a PUBLISHING row outlived the publish timeout,
// which only happens when the dispatcher died before recording the result.
func (s *publicationService) staleClaim(pub *models.Publication) bool {
	if pub.LastAttemptAt == nil {
		return true
	}
	return s.cfg.Now().Sub(*pub.LastAttemptAt) > s.cfg.PublishTimeout
}

func (s *publicationService) ListByStatus(ctx context.Context, status models.PublicationStatus, limit int) ([]*models.Publication, error) {
	if status == "" {
		status = models.StatusPending
	}
	if limit <= 0 {
		limit = DefaultListLimit
	}
	pubs, err := s.pub.ListByStatus(ctx, status, limit)
	if err != nil {
		return nil, err
	}
	if pubs == nil {
		pubs = []*models.Publication{}
	}
	return pubs, nil
}

func (s *publicationService) Get(ctx context.Context, id int64) (*models.Publication, error) {
	pub, err := s.pub.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if pub == nil {
		return nil, fmt.Errorf("%w: publication not found id=%d", ErrNotFound, id)
	}
	return pub, nil
}

// DeletePublished removes a published post from its platform and cancels the row.
func (s *publicationService) DeletePublished(ctx context.Context, id int64) (*models.Publication, error) {
	pub, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if pub.Status != models.StatusPublished || pub.PlatformPostID == nil {
		return nil, fmt.Errorf("%w: publication %d is %s, not published", ErrValidation, id, pub.Status)
	}

	adapter, ok := s.reg.For(pub.Platform)
	if !ok {
		return nil, fmt.Errorf("%w: no SocialPublisher registered for platform %s", ErrAdapterFailure, pub.Platform)
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.PublishTimeout)
	defer cancel()

	if !adapter.DeletePost(ctx, *pub.PlatformPostID) {
		return nil, fmt.Errorf("%w: %s refused to delete %s", ErrAdapterFailure, pub.Platform, *pub.PlatformPostID)
	}

	msg := DeletedFromPlatform
	deleted := *pub
	deleted.Status = models.StatusCancelled
	deleted.ErrorMessage = &msg
	if err := s.pub.UpdateIfStatus(context.WithoutCancel(ctx), &deleted, models.StatusPublished); err != nil {
		return nil, fmt.Errorf("error recording deletion of publication %d: %w", id, err)
	}

	slog.Info("publication deleted from platform", "publication_id", id, "platform", pub.Platform)
	return &deleted, nil
}

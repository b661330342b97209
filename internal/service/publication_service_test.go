package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/maheshrc27/social-publisher/internal/models"
	"github.com/maheshrc27/social-publisher/internal/publisher"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestPublishSingle_FacebookTextOnly(t *testing.T) {
	f := newFixture()
	post := f.seed(1, nil)
	pub := f.pubs.put(models.Publication{PostID: post.ID, Platform: models.PlatformFacebook, Status: models.StatusPending})

	fb := &mockPublisher{platform: models.PlatformFacebook}
	fb.On("Publish", mock.Anything, mock.Anything, mock.Anything,
		mock.MatchedBy(func(pp []*models.PostPhoto) bool { return len(pp) == 0 }),
		mock.Anything, mock.Anything,
	).Return(publisher.Published("page_123")).Once()

	svc := f.publications(publisher.Registry{Facebook: fb}, PublicationServiceConfig{})

	out, err := svc.PublishSingle(context.Background(), pub)
	require.NoError(t, err)
	assert.Equal(t, OutcomePublished, out.Result)
	fb.AssertExpectations(t)

	stored := f.pubs.get(pub.ID)
	assert.Equal(t, models.StatusPublished, stored.Status)
	require.NotNil(t, stored.PublishedAt)
	require.NotNil(t, stored.PlatformPostID)
	assert.Equal(t, "page_123", *stored.PlatformPostID)
	assert.Nil(t, stored.ErrorMessage)
	assert.Equal(t, 1, stored.AttemptCount)
	require.NotNil(t, stored.LastAttemptAt)
	assert.True(t, stored.LastAttemptAt.Equal(f.now))
}

func TestPublishSingle_FailureThenNoop(t *testing.T) {
	f := newFixture()
	post := f.seed(1, nil)
	pub := f.pubs.put(models.Publication{PostID: post.ID, Platform: models.PlatformFacebook, Status: models.StatusPending})

	fb := &mockPublisher{platform: models.PlatformFacebook}
	fb.On("Publish", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(publisher.Failed("rate limited")).Once()

	svc := f.publications(publisher.Registry{Facebook: fb}, PublicationServiceConfig{})

	out, err := svc.PublishSingle(context.Background(), pub)
	require.NoError(t, err)
	assert.Equal(t, OutcomeFailed, out.Result)
	assert.Equal(t, "rate limited", out.Message)

	stored := f.pubs.get(pub.ID)
	assert.Equal(t, models.StatusFailed, stored.Status)
	require.NotNil(t, stored.ErrorMessage)
	assert.Equal(t, "rate limited", *stored.ErrorMessage)
	assert.Equal(t, 1, stored.AttemptCount)
	assert.Nil(t, stored.PublishedAt)
	assert.Nil(t, stored.PlatformPostID)

	again, err := svc.PublishSingle(context.Background(), stored)
	require.NoError(t, err)
	assert.Equal(t, OutcomeSkipped, again.Result)
	assert.Equal(t, 1, f.pubs.get(pub.ID).AttemptCount)
	fb.AssertNumberOfCalls(t, "Publish", 1)
}

func TestPublishSingle_AttemptCountedOnEveryFailure(t *testing.T) {
	f := newFixture()
	post := f.seed(1, nil)
	orphan := f.posts.put(models.Post{ProductID: 99, Title: "ghost", Active: true})

	missingPost := f.pubs.put(models.Publication{PostID: 4242, Platform: models.PlatformFacebook, Status: models.StatusPending, AttemptCount: 2})
	missingProduct := f.pubs.put(models.Publication{PostID: orphan.ID, Platform: models.PlatformFacebook, Status: models.StatusQueued})
	noAdapter := f.pubs.put(models.Publication{PostID: post.ID, Platform: models.PlatformInstagram, Status: models.StatusPending})

	svc := f.publications(publisher.Registry{Facebook: publisher.NewFakePublisher(models.PlatformFacebook)}, PublicationServiceConfig{})

	tests := []struct {
		pub      *models.Publication
		wantMsg  string
		attempts int
	}{
		{missingPost, "Post not found id=4242", 3},
		{missingProduct, "Product not found id=99", 1},
		{noAdapter, "No SocialPublisher registered for platform INSTAGRAM", 1},
	}

	for _, tt := range tests {
		out, err := svc.PublishSingle(context.Background(), tt.pub)
		require.NoError(t, err)
		assert.Equal(t, OutcomeFailed, out.Result)

		stored := f.pubs.get(tt.pub.ID)
		assert.Equal(t, models.StatusFailed, stored.Status)
		require.NotNil(t, stored.ErrorMessage)
		assert.Equal(t, tt.wantMsg, *stored.ErrorMessage)
		assert.Equal(t, tt.attempts, stored.AttemptCount)
		assert.NotNil(t, stored.LastAttemptAt)
	}
}

func TestPublishSingle_CaptionPrecedence(t *testing.T) {
	f := newFixture()
	withOwn := f.seed(1, strPtr("post caption"))
	plain := f.seed(2, nil)

	a := f.pubs.put(models.Publication{PostID: withOwn.ID, Platform: models.PlatformFacebook, Status: models.StatusPending, CaptionOverride: strPtr("override")})
	b := f.pubs.put(models.Publication{PostID: withOwn.ID, Platform: models.PlatformInstagram, Status: models.StatusPending})
	c := f.pubs.put(models.Publication{PostID: plain.ID, Platform: models.PlatformFacebook, Status: models.StatusPending})

	rec := &recordingPublisher{platform: models.PlatformFacebook}
	svc := f.publications(publisher.Registry{Facebook: rec, Instagram: rec}, PublicationServiceConfig{})

	for _, pub := range []*models.Publication{a, b, c} {
		_, err := svc.PublishSingle(context.Background(), pub)
		require.NoError(t, err)
	}

	calls := rec.Calls()
	require.Len(t, calls, 3)
	assert.Equal(t, "override", calls[0].Caption)
	assert.Equal(t, "post caption", calls[1].Caption)
	assert.Equal(t, "Sofa\n\nThree seats\n\nPreço: R$ 450.00\n"+footer, calls[2].Caption)
}

func TestPublishSingle_PhotoOrder(t *testing.T) {
	f := newFixture()
	post := f.seed(1, nil)
	for _, pp := range []models.PostPhoto{
		{PostID: post.ID, PhotoID: 12, SortOrder: 2},
		{PostID: post.ID, PhotoID: 10, SortOrder: 0},
		{PostID: post.ID, PhotoID: 11, SortOrder: 1},
	} {
		pp := pp
		_, err := f.photos.Create(context.Background(), nil, &pp)
		require.NoError(t, err)
	}
	pub := f.pubs.put(models.Publication{PostID: post.ID, Platform: models.PlatformFacebook, Status: models.StatusPending})

	rec := &recordingPublisher{platform: models.PlatformFacebook}
	svc := f.publications(publisher.Registry{Facebook: rec}, PublicationServiceConfig{})

	_, err := svc.PublishSingle(context.Background(), pub)
	require.NoError(t, err)

	calls := rec.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, []int64{10, 11, 12}, calls[0].Photos)
}

func TestPublishSingle_LosesClaimRace(t *testing.T) {
	f := newFixture()
	post := f.seed(1, nil)
	pub := f.pubs.put(models.Publication{PostID: post.ID, Platform: models.PlatformFacebook, Status: models.StatusPending})

	// Another dispatcher claims the row between our read and our write.
	f.pubs.beforeCAS = func(id int64) {
		f.pubs.beforeCAS = nil
		f.pubs.setStatus(id, models.StatusPublishing)
	}

	rec := &recordingPublisher{platform: models.PlatformFacebook}
	svc := f.publications(publisher.Registry{Facebook: rec}, PublicationServiceConfig{})

	out, err := svc.PublishSingle(context.Background(), pub)
	require.NoError(t, err)
	assert.Equal(t, OutcomeSkipped, out.Result)
	assert.Empty(t, rec.Calls())

	stored := f.pubs.get(pub.ID)
	assert.Equal(t, models.StatusPublishing, stored.Status)
	assert.Equal(t, 0, stored.AttemptCount)
}

func TestPublishSingle_InFlightIsSkipped(t *testing.T) {
	f := newFixture()
	post := f.seed(1, nil)
	pub := f.pubs.put(models.Publication{PostID: post.ID, Platform: models.PlatformFacebook, Status: models.StatusPublishing, AttemptCount: 1})

	rec := &recordingPublisher{platform: models.PlatformFacebook}
	svc := f.publications(publisher.Registry{Facebook: rec}, PublicationServiceConfig{})

	out, err := svc.PublishSingle(context.Background(), pub)
	require.NoError(t, err)
	assert.Equal(t, OutcomeSkipped, out.Result)
	assert.Empty(t, rec.Calls())
}

type slowPublisher struct {
	delay time.Duration
}

func (p slowPublisher) Platform() models.SocialPlatform { return models.PlatformFacebook }

func (p slowPublisher) Publish(ctx context.Context, post *models.Post, product *models.Product, postPhotos []*models.PostPhoto, productPhotos []*models.Photo, caption string) publisher.Result {
	time.Sleep(p.delay)
	return publisher.Published("late")
}

func (p slowPublisher) DeletePost(ctx context.Context, platformPostID string) bool { return false }

func TestPublishSingle_TimeoutIsFailure(t *testing.T) {
	f := newFixture()
	post := f.seed(1, nil)
	pub := f.pubs.put(models.Publication{PostID: post.ID, Platform: models.PlatformFacebook, Status: models.StatusPending})

	svc := f.publications(
		publisher.Registry{Facebook: slowPublisher{delay: 500 * time.Millisecond}},
		PublicationServiceConfig{PublishTimeout: 20 * time.Millisecond},
	)

	out, err := svc.PublishSingle(context.Background(), pub)
	require.NoError(t, err)
	assert.Equal(t, OutcomeFailed, out.Result)
	assert.Contains(t, out.Message, "timed out")

	stored := f.pubs.get(pub.ID)
	assert.Equal(t, models.StatusFailed, stored.Status)
	assert.Equal(t, 1, stored.AttemptCount)
}

func TestPublishSingle_OnPublishedHook(t *testing.T) {
	f := newFixture()
	post := f.seed(1, nil)
	pub := f.pubs.put(models.Publication{PostID: post.ID, Platform: models.PlatformFacebook, Status: models.StatusPending})

	var hooked *models.Publication
	svc := f.publications(publisher.Registry{Facebook: publisher.NewFakePublisher(models.PlatformFacebook)}, PublicationServiceConfig{
		OnPublished: func(ctx context.Context, p *models.Publication) error {
			hooked = p
			return errors.New("cache down")
		},
	})

	out, err := svc.PublishSingle(context.Background(), pub)
	require.NoError(t, err)
	assert.Equal(t, OutcomePublished, out.Result)
	require.NotNil(t, hooked)
	assert.Equal(t, models.StatusPublished, hooked.Status)
	assert.Equal(t, "FACEBOOK_POST_1", *hooked.PlatformPostID)
}

type panickyPublisher struct{}

func (panickyPublisher) Platform() models.SocialPlatform { return models.PlatformInstagram }

func (panickyPublisher) Publish(ctx context.Context, post *models.Post, product *models.Product, postPhotos []*models.PostPhoto, productPhotos []*models.Photo, caption string) publisher.Result {
	panic("boom")
}

func (panickyPublisher) DeletePost(ctx context.Context, platformPostID string) bool { return false }

func TestProcessDue_ContinuesPastBrokenRows(t *testing.T) {
	f := newFixture()
	good := f.seed(1, nil)
	broken := f.seed(2, nil)
	f.posts.errFor[broken.ID] = errors.New("connection reset")

	past := f.now.Add(-time.Minute)
	future := f.now.Add(time.Hour)

	p1 := f.pubs.put(models.Publication{PostID: broken.ID, Platform: models.PlatformFacebook, Status: models.StatusPending, ScheduledTime: &past})
	p2 := f.pubs.put(models.Publication{PostID: good.ID, Platform: models.PlatformInstagram, Status: models.StatusQueued})
	p3 := f.pubs.put(models.Publication{PostID: good.ID, Platform: models.PlatformFacebook, Status: models.StatusPending})
	p4 := f.pubs.put(models.Publication{PostID: good.ID, Platform: models.PlatformFacebook, Status: models.StatusPending, ScheduledTime: &future})
	p5 := f.pubs.put(models.Publication{PostID: good.ID, Platform: models.PlatformFacebook, Status: models.StatusCancelled})

	svc := f.publications(publisher.Registry{
		Facebook:  publisher.NewFakePublisher(models.PlatformFacebook),
		Instagram: panickyPublisher{},
	}, PublicationServiceConfig{})

	report, err := svc.ProcessDue(context.Background(), 10)
	require.NoError(t, err)
	assert.NotEmpty(t, report.RunID)

	var order []int64
	for _, o := range report.Outcomes {
		order = append(order, o.PublicationID)
	}
	assert.Equal(t, []int64{p2.ID, p3.ID, p1.ID}, order)
	assert.Equal(t, 1, report.Published)
	assert.Equal(t, 2, report.Failed)

	assert.Equal(t, models.StatusFailed, f.pubs.get(p1.ID).Status)
	assert.Equal(t, "Unexpected error: error fetching post 2: connection reset", *f.pubs.get(p1.ID).ErrorMessage)
	assert.Equal(t, 1, f.pubs.get(p1.ID).AttemptCount)

	assert.Equal(t, models.StatusFailed, f.pubs.get(p2.ID).Status)
	assert.Equal(t, "Unexpected error: boom", *f.pubs.get(p2.ID).ErrorMessage)
	assert.Equal(t, 1, f.pubs.get(p2.ID).AttemptCount)

	assert.Equal(t, models.StatusPublished, f.pubs.get(p3.ID).Status)
	assert.Equal(t, models.StatusPending, f.pubs.get(p4.ID).Status)
	assert.Equal(t, models.StatusCancelled, f.pubs.get(p5.ID).Status)
}

func TestProcessDue_LimitAndDefault(t *testing.T) {
	f := newFixture()
	post := f.seed(1, nil)
	for i := 0; i < 15; i++ {
		f.pubs.put(models.Publication{PostID: post.ID, Platform: models.PlatformFacebook, Status: models.StatusPending})
	}

	svc := f.publications(publisher.Registry{Facebook: publisher.NewFakePublisher(models.PlatformFacebook)}, PublicationServiceConfig{})

	report, err := svc.ProcessDue(context.Background(), 3)
	require.NoError(t, err)
	assert.Len(t, report.Outcomes, 3)

	report, err = svc.ProcessDue(context.Background(), 0)
	require.NoError(t, err)
	assert.Len(t, report.Outcomes, DefaultProcessLimit)
}

func TestProcessDue_SelectionError(t *testing.T) {
	f := newFixture()
	f.pubs.findDueErr = errors.New("db gone")

	svc := f.publications(publisher.Registry{}, PublicationServiceConfig{})

	_, err := svc.ProcessDue(context.Background(), 5)
	assert.Error(t, err)
}

func TestSchedule(t *testing.T) {
	f := newFixture()
	post := f.seed(1, nil)
	svc := f.publications(publisher.Registry{}, PublicationServiceConfig{})
	ctx := context.Background()

	at := f.now.Add(time.Hour)
	pub, err := svc.Schedule(ctx, ScheduleInput{PostID: post.ID, Platform: models.PlatformFacebook, TargetAccount: "page", ScheduledTime: &at})
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, pub.Status)
	assert.NotZero(t, pub.ID)

	// Simulate a failed attempt, then reschedule the same row.
	failed := f.pubs.get(pub.ID)
	failed.Status = models.StatusFailed
	failed.AttemptCount = 2
	failed.ErrorMessage = strPtr("rate limited")
	require.NoError(t, f.pubs.Update(ctx, failed))

	again, err := svc.Schedule(ctx, ScheduleInput{PostID: post.ID, Platform: models.PlatformFacebook, TargetAccount: "other", CaptionOverride: strPtr("new")})
	require.NoError(t, err)
	assert.Equal(t, pub.ID, again.ID)

	stored := f.pubs.get(pub.ID)
	assert.Equal(t, models.StatusPending, stored.Status)
	assert.Equal(t, 2, stored.AttemptCount)
	assert.Nil(t, stored.ErrorMessage)
	assert.Nil(t, stored.ScheduledTime)
	assert.Equal(t, "other", stored.TargetAccount)
	assert.Equal(t, "new", *stored.CaptionOverride)
}

func TestSchedule_Rejections(t *testing.T) {
	f := newFixture()
	post := f.seed(1, nil)
	inactive := f.posts.put(models.Post{ProductID: 5, Title: "old", Active: false})
	claimedAt := f.now.Add(-10 * time.Second)
	busy := f.pubs.put(models.Publication{PostID: post.ID, Platform: models.PlatformInstagram, Status: models.StatusPublishing, LastAttemptAt: &claimedAt})
	svc := f.publications(publisher.Registry{}, PublicationServiceConfig{})
	ctx := context.Background()

	_, err := svc.Schedule(ctx, ScheduleInput{PostID: 999, Platform: models.PlatformFacebook})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.Schedule(ctx, ScheduleInput{PostID: post.ID, Platform: "TIKTOK"})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.Schedule(ctx, ScheduleInput{PostID: inactive.ID, Platform: models.PlatformFacebook})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.Schedule(ctx, ScheduleInput{PostID: post.ID, Platform: models.PlatformInstagram})
	assert.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, models.StatusPublishing, f.pubs.get(busy.ID).Status)
}

func TestSchedule_ResetsStaleClaim(t *testing.T) {
	f := newFixture()
	post := f.seed(1, nil)
	claimedAt := f.now.Add(-24 * time.Hour)
	stuck := f.pubs.put(models.Publication{PostID: post.ID, Platform: models.PlatformFacebook, Status: models.StatusPublishing, AttemptCount: 1, LastAttemptAt: &claimedAt})
	reg := publisher.Registry{Facebook: publisher.NewFakePublisher(models.PlatformFacebook)}
	svc := f.publications(reg, PublicationServiceConfig{PublishTimeout: time.Minute})
	ctx := context.Background()

	out, err := svc.PublishSingle(ctx, f.pubs.get(stuck.ID))
	require.NoError(t, err)
	assert.Equal(t, OutcomeSkipped, out.Result)

	reset, err := svc.Schedule(ctx, ScheduleInput{PostID: post.ID, Platform: models.PlatformFacebook, TargetAccount: "page"})
	require.NoError(t, err)
	assert.Equal(t, stuck.ID, reset.ID)
	assert.Equal(t, models.StatusPending, f.pubs.get(stuck.ID).Status)
	assert.Equal(t, 1, f.pubs.get(stuck.ID).AttemptCount)

	report, err := svc.ProcessDue(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Published)
	assert.Equal(t, models.StatusPublished, f.pubs.get(stuck.ID).Status)
}

func TestSchedule_KeepsFreshClaim(t *testing.T) {
	f := newFixture()
	post := f.seed(1, nil)
	claimedAt := f.now.Add(-30 * time.Second)
	busy := f.pubs.put(models.Publication{PostID: post.ID, Platform: models.PlatformFacebook, Status: models.StatusPublishing, LastAttemptAt: &claimedAt})
	svc := f.publications(publisher.Registry{}, PublicationServiceConfig{PublishTimeout: time.Minute})

	_, err := svc.Schedule(context.Background(), ScheduleInput{PostID: post.ID, Platform: models.PlatformFacebook, TargetAccount: "page"})
	assert.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, models.StatusPublishing, f.pubs.get(busy.ID).Status)
}

func TestSchedule_NormalizesPlatform(t *testing.T) {
	f := newFixture()
	post := f.seed(1, nil)
	reg := publisher.Registry{Facebook: publisher.NewFakePublisher(models.PlatformFacebook)}
	svc := f.publications(reg, PublicationServiceConfig{})
	ctx := context.Background()

	pub, err := svc.Schedule(ctx, ScheduleInput{PostID: post.ID, Platform: "facebook", TargetAccount: "page"})
	require.NoError(t, err)
	assert.Equal(t, models.PlatformFacebook, f.pubs.get(pub.ID).Platform)

	out, err := svc.PublishSingle(ctx, f.pubs.get(pub.ID))
	require.NoError(t, err)
	assert.Equal(t, OutcomePublished, out.Result)
}

func TestListByStatus_Defaults(t *testing.T) {
	f := newFixture()
	post := f.seed(1, nil)
	for i := 0; i < 25; i++ {
		f.pubs.put(models.Publication{PostID: post.ID, Platform: models.PlatformFacebook, Status: models.StatusPending})
	}
	f.pubs.put(models.Publication{PostID: post.ID, Platform: models.PlatformFacebook, Status: models.StatusFailed})

	svc := f.publications(publisher.Registry{}, PublicationServiceConfig{})

	pubs, err := svc.ListByStatus(context.Background(), "", 0)
	require.NoError(t, err)
	assert.Len(t, pubs, DefaultListLimit)
	assert.Equal(t, int64(1), pubs[0].ID)

	failed, err := svc.ListByStatus(context.Background(), models.StatusFailed, 5)
	require.NoError(t, err)
	assert.Len(t, failed, 1)

	none, err := svc.ListByStatus(context.Background(), models.StatusSkipped, 5)
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestDeletePublished(t *testing.T) {
	f := newFixture()
	post := f.seed(1, nil)
	published := f.pubs.put(models.Publication{PostID: post.ID, Platform: models.PlatformFacebook, Status: models.StatusPublished, PlatformPostID: strPtr("fb_1")})
	refused := f.pubs.put(models.Publication{PostID: post.ID, Platform: models.PlatformInstagram, Status: models.StatusPublished, PlatformPostID: strPtr("ig_1")})
	pending := f.pubs.put(models.Publication{PostID: post.ID, Platform: models.PlatformFacebook, Status: models.StatusPending})

	fb := &mockPublisher{platform: models.PlatformFacebook}
	fb.On("DeletePost", mock.Anything, "fb_1").Return(true).Once()
	ig := &mockPublisher{platform: models.PlatformInstagram}
	ig.On("DeletePost", mock.Anything, "ig_1").Return(false).Once()

	svc := f.publications(publisher.Registry{Facebook: fb, Instagram: ig}, PublicationServiceConfig{})
	ctx := context.Background()

	got, err := svc.DeletePublished(ctx, published.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, got.Status)
	assert.Equal(t, DeletedFromPlatform, *f.pubs.get(published.ID).ErrorMessage)

	_, err = svc.DeletePublished(ctx, refused.ID)
	assert.ErrorIs(t, err, ErrAdapterFailure)
	assert.Equal(t, models.StatusPublished, f.pubs.get(refused.ID).Status)

	_, err = svc.DeletePublished(ctx, pending.ID)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.DeletePublished(ctx, 999)
	assert.ErrorIs(t, err, ErrNotFound)

	fb.AssertExpectations(t)
	ig.AssertExpectations(t)
}

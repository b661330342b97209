package service

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/maheshrc27/social-publisher/internal/models"
	"github.com/maheshrc27/social-publisher/internal/publisher"
	"github.com/maheshrc27/social-publisher/internal/repository"
	"github.com/stretchr/testify/mock"
)

var (
	_ repository.Transactor            = (*fakeTx)(nil)
	_ repository.PostRepository        = (*fakePostRepo)(nil)
	_ repository.PostPhotoRepository   = (*fakePostPhotoRepo)(nil)
	_ repository.ProductRepository     = (*fakeProductRepo)(nil)
	_ repository.PhotoRepository       = (*fakePhotoRepo)(nil)
	_ repository.PublicationRepository = (*fakePublicationRepo)(nil)
	_ publisher.SocialPublisher        = (*mockPublisher)(nil)
)

type fakeTx struct{}

func (fakeTx) WithinTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	return fn(nil)
}

type fakePostRepo struct {
	mu     sync.Mutex
	nextID int64
	posts  map[int64]*models.Post
	errFor map[int64]error
}

func newFakePostRepo() *fakePostRepo {
	return &fakePostRepo{posts: map[int64]*models.Post{}, errFor: map[int64]error{}}
}

func (r *fakePostRepo) put(p models.Post) *models.Post {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p.ID == 0 {
		r.nextID++
		p.ID = r.nextID
	} else if p.ID > r.nextID {
		r.nextID = p.ID
	}
	r.posts[p.ID] = &p
	cp := p
	return &cp
}

func (r *fakePostRepo) GetByID(ctx context.Context, id int64) (*models.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.errFor[id]; err != nil {
		return nil, err
	}
	p, ok := r.posts[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (r *fakePostRepo) GetActiveByProductID(ctx context.Context, productID int) (*models.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var found *models.Post
	for _, p := range r.posts {
		if p.ProductID == productID && p.Active && (found == nil || p.ID > found.ID) {
			found = p
		}
	}
	if found == nil {
		return nil, nil
	}
	cp := *found
	return &cp, nil
}

func (r *fakePostRepo) Create(ctx context.Context, tx *sql.Tx, post *models.Post) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	post.ID = r.nextID
	post.CreatedAt = time.Now()
	cp := *post
	r.posts[post.ID] = &cp
	return post.ID, nil
}

func (r *fakePostRepo) Update(ctx context.Context, tx *sql.Tx, post *models.Post) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	old, ok := r.posts[post.ID]
	if !ok {
		return fmt.Errorf("post %d does not exist", post.ID)
	}
	cp := *post
	cp.CreatedAt = old.CreatedAt
	r.posts[post.ID] = &cp
	return nil
}

func (r *fakePostRepo) activeCount(productID int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, p := range r.posts {
		if p.ProductID == productID && p.Active {
			n++
		}
	}
	return n
}

type fakePostPhotoRepo struct {
	mu     sync.Mutex
	nextID int64
	rows   []*models.PostPhoto
}

func (r *fakePostPhotoRepo) Create(ctx context.Context, tx *sql.Tx, pp *models.PostPhoto) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	pp.ID = r.nextID
	cp := *pp
	r.rows = append(r.rows, &cp)
	return pp.ID, nil
}

func (r *fakePostPhotoRepo) ListByPostID(ctx context.Context, postID int64) ([]*models.PostPhoto, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.PostPhoto
	for _, pp := range r.rows {
		if pp.PostID == postID {
			cp := *pp
			out = append(out, &cp)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].SortOrder != out[j].SortOrder {
			return out[i].SortOrder < out[j].SortOrder
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *fakePostPhotoRepo) RemoveByPostID(ctx context.Context, tx *sql.Tx, postID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.rows[:0]
	for _, pp := range r.rows {
		if pp.PostID != postID {
			kept = append(kept, pp)
		}
	}
	r.rows = kept
	return nil
}

type fakeProductRepo struct {
	products map[int]*models.Product
}

func (r *fakeProductRepo) GetByID(ctx context.Context, id int) (*models.Product, error) {
	p, ok := r.products[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

type fakePhotoRepo struct {
	photos []*models.Photo
}

func (r *fakePhotoRepo) GetByID(ctx context.Context, id int64) (*models.Photo, error) {
	for _, p := range r.photos {
		if p.ID == id {
			cp := *p
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *fakePhotoRepo) ListByProductID(ctx context.Context, productID int) ([]*models.Photo, error) {
	var out []*models.Photo
	for _, p := range r.photos {
		if p.ProductID == int64(productID) {
			cp := *p
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type fakePublicationRepo struct {
	mu     sync.Mutex
	nextID int64
	rows   map[int64]*models.Publication

	findDueErr error
	// beforeCAS runs before every UpdateIfStatus with the lock released.
	beforeCAS func(id int64)
}

func newFakePublicationRepo() *fakePublicationRepo {
	return &fakePublicationRepo{rows: map[int64]*models.Publication{}}
}

func (r *fakePublicationRepo) put(p models.Publication) *models.Publication {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	p.ID = r.nextID
	r.rows[p.ID] = &p
	cp := p
	return &cp
}

func (r *fakePublicationRepo) get(id int64) *models.Publication {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.rows[id]
	if !ok {
		return nil
	}
	cp := *p
	return &cp
}

func (r *fakePublicationRepo) setStatus(id int64, st models.PublicationStatus) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[id].Status = st
}

func (r *fakePublicationRepo) GetByID(ctx context.Context, id int64) (*models.Publication, error) {
	return r.get(id), nil
}

func (r *fakePublicationRepo) GetByPostAndPlatform(ctx context.Context, postID int64, platform models.SocialPlatform) (*models.Publication, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.rows {
		if p.PostID == postID && p.Platform == platform {
			cp := *p
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *fakePublicationRepo) filter(keep func(*models.Publication) bool) []*models.Publication {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Publication
	for _, p := range r.rows {
		if keep(p) {
			cp := *p
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r *fakePublicationRepo) ListByPost(ctx context.Context, postID int64) ([]*models.Publication, error) {
	return r.filter(func(p *models.Publication) bool { return p.PostID == postID }), nil
}

func (r *fakePublicationRepo) ListByStatus(ctx context.Context, status models.PublicationStatus, limit int) ([]*models.Publication, error) {
	out := r.filter(func(p *models.Publication) bool { return p.Status == status })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *fakePublicationRepo) FindDue(ctx context.Context, now time.Time, limit int) ([]*models.Publication, error) {
	if r.findDueErr != nil {
		return nil, r.findDueErr
	}
	out := r.filter(func(p *models.Publication) bool {
		return p.Status.IsPendingLike() && (p.ScheduledTime == nil || !p.ScheduledTime.After(now))
	})
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].ScheduledTime, out[j].ScheduledTime
		switch {
		case a == nil && b != nil:
			return true
		case a != nil && b == nil:
			return false
		case a != nil && b != nil && !a.Equal(*b):
			return a.Before(*b)
		}
		return out[i].ID < out[j].ID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *fakePublicationRepo) Create(ctx context.Context, pub *models.Publication) (int64, error) {
	stored := r.put(*pub)
	pub.ID = stored.ID
	return pub.ID, nil
}

func (r *fakePublicationRepo) Update(ctx context.Context, pub *models.Publication) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *pub
	r.rows[pub.ID] = &cp
	return nil
}

func (r *fakePublicationRepo) UpdateIfStatus(ctx context.Context, pub *models.Publication, expected models.PublicationStatus) error {
	if r.beforeCAS != nil {
		r.beforeCAS(pub.ID)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.rows[pub.ID]
	if !ok || cur.Status != expected {
		return repository.ErrStatusConflict
	}
	cp := *pub
	r.rows[pub.ID] = &cp
	return nil
}

type mockPublisher struct {
	mock.Mock
	platform models.SocialPlatform
}

func (m *mockPublisher) Platform() models.SocialPlatform {
	return m.platform
}

func (m *mockPublisher) Publish(ctx context.Context, post *models.Post, product *models.Product, postPhotos []*models.PostPhoto, productPhotos []*models.Photo, caption string) publisher.Result {
	args := m.Called(ctx, post, product, postPhotos, productPhotos, caption)
	return args.Get(0).(publisher.Result)
}

func (m *mockPublisher) DeletePost(ctx context.Context, platformPostID string) bool {
	args := m.Called(ctx, platformPostID)
	return args.Bool(0)
}

// recordingPublisher remembers every call and answers with respond.
type recordingPublisher struct {
	mu       sync.Mutex
	platform models.SocialPlatform
	calls    []recordedCall
	respond  func(post *models.Post) publisher.Result
}

type recordedCall struct {
	PostID  int64
	Photos  []int64
	Caption string
}

func (p *recordingPublisher) Platform() models.SocialPlatform { return p.platform }

func (p *recordingPublisher) Publish(ctx context.Context, post *models.Post, product *models.Product, postPhotos []*models.PostPhoto, productPhotos []*models.Photo, caption string) publisher.Result {
	ids := []int64{}
	for _, pp := range publisher.OrderPhotos(postPhotos) {
		ids = append(ids, pp.PhotoID)
	}
	p.mu.Lock()
	p.calls = append(p.calls, recordedCall{PostID: post.ID, Photos: ids, Caption: caption})
	p.mu.Unlock()
	if p.respond != nil {
		return p.respond(post)
	}
	return publisher.Published(fmt.Sprintf("%s_%d", p.platform, post.ID))
}

func (p *recordingPublisher) DeletePost(ctx context.Context, platformPostID string) bool { return true }

func (p *recordingPublisher) Calls() []recordedCall {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]recordedCall(nil), p.calls...)
}

// fixture wires a publication service over the fakes.
type fixture struct {
	posts    *fakePostRepo
	photos   *fakePostPhotoRepo
	products *fakeProductRepo
	catalog  *fakePhotoRepo
	pubs     *fakePublicationRepo
	now      time.Time
}

func newFixture() *fixture {
	return &fixture{
		posts:    newFakePostRepo(),
		photos:   &fakePostPhotoRepo{},
		products: &fakeProductRepo{products: map[int]*models.Product{}},
		catalog:  &fakePhotoRepo{},
		pubs:     newFakePublicationRepo(),
		now:      time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC),
	}
}

func (f *fixture) clock() time.Time { return f.now }

func (f *fixture) publications(reg publisher.Registry, cfg PublicationServiceConfig) PublicationService {
	if cfg.Now == nil {
		cfg.Now = f.clock
	}
	return NewPublicationService(f.pubs, f.posts, f.photos, f.products, f.catalog, reg, cfg)
}

func (f *fixture) postService() PostService {
	return NewPostService(fakeTx{}, f.posts, f.photos, f.products, f.catalog, f.pubs, f.clock)
}

// seed creates a product with an active post and returns the post.
func (f *fixture) seed(productID int, caption *string) *models.Post {
	f.products.products[productID] = &models.Product{ID: productID, Name: "Sofa", Description: "Three seats", Price: 450}
	return f.posts.put(models.Post{ProductID: productID, Title: "Sofa", Caption: caption, LanguageCode: models.DefaultLanguageCode, Active: true})
}

func strPtr(s string) *string { return &s }

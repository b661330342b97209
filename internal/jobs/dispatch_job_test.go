package job

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/maheshrc27/social-publisher/internal/models"
	"github.com/maheshrc27/social-publisher/internal/service"
	"github.com/stretchr/testify/assert"
)

type stubPublications struct {
	service.PublicationService

	mu      sync.Mutex
	calls   []int
	err     error
	block   chan struct{}
	started chan struct{}
}

func (s *stubPublications) ProcessDue(ctx context.Context, limit int) (*service.BatchReport, error) {
	s.mu.Lock()
	s.calls = append(s.calls, limit)
	s.mu.Unlock()
	if s.started != nil {
		close(s.started)
	}
	if s.block != nil {
		<-s.block
	}
	if s.err != nil {
		return nil, s.err
	}
	return &service.BatchReport{RunID: "run", Outcomes: []service.Outcome{{Result: service.OutcomePublished, Status: models.StatusPublished}}, Published: 1}, nil
}

func (s *stubPublications) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

func TestDispatchJob_RunPassesLimit(t *testing.T) {
	ps := &stubPublications{}
	NewDispatchJob(ps, 25, time.Second).Run()

	assert.Equal(t, []int{25}, ps.calls)
}

func TestDispatchJob_SurvivesErrors(t *testing.T) {
	ps := &stubPublications{err: errors.New("db down")}
	job := NewDispatchJob(ps, 10, 0)

	job.Run()
	job.Run()
	assert.Equal(t, 2, ps.callCount())
}

func TestDispatchJob_SkipsOverlappingTick(t *testing.T) {
	ps := &stubPublications{block: make(chan struct{}), started: make(chan struct{})}
	job := NewDispatchJob(ps, 10, 0)

	done := make(chan struct{})
	go func() {
		job.Run()
		close(done)
	}()
	<-ps.started

	job.Run()
	assert.Equal(t, 1, ps.callCount())

	close(ps.block)
	<-done
}

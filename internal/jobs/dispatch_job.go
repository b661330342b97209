package job

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/maheshrc27/social-publisher/internal/service"
)

type DispatchJob struct {
	ps      service.PublicationService
	limit   int
	timeout time.Duration

	mu      sync.Mutex
	running bool
}

// NewDispatchJob builds the periodic dispatcher. timeout bounds one run; zero
// means no bound.
func NewDispatchJob(ps service.PublicationService, limit int, timeout time.Duration) *DispatchJob {
	return &DispatchJob{ps: ps, limit: limit, timeout: timeout}
}

// Run is the cron entry point. A tick that arrives while the previous run is
// still going is dropped.
func (j *DispatchJob) Run() {
	j.mu.Lock()
	if j.running {
		j.mu.Unlock()
		slog.Info("dispatch still running, skipping tick")
		return
	}
	j.running = true
	j.mu.Unlock()

	defer func() {
		j.mu.Lock()
		j.running = false
		j.mu.Unlock()
	}()

	ctx := context.Background()
	if j.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.timeout)
		defer cancel()
	}

	report, err := j.ps.ProcessDue(ctx, j.limit)
	if err != nil {
		slog.Error("dispatch run failed", "error", err)
		return
	}

	if len(report.Outcomes) > 0 {
		slog.Info("dispatch run finished",
			"run_id", report.RunID,
			"published", report.Published,
			"failed", report.Failed,
			"skipped", report.Skipped,
		)
	}
}

package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"
	"github.com/maheshrc27/social-publisher/internal/service"
)

func (j *Queue) HandleProcessDueTask(ctx context.Context, task *asynq.Task) error {
	var payload ProcessDuePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("invalid process-due payload: %v: %w", err, asynq.SkipRetry)
	}

	limit := payload.Limit
	if limit <= 0 {
		limit = j.defaultLimit
	}

	report, err := j.ps.ProcessDue(ctx, limit)
	if err != nil {
		return err
	}

	slog.Info("process-due task finished",
		"run_id", report.RunID,
		"published", report.Published,
		"failed", report.Failed,
		"skipped", report.Skipped,
	)
	return nil
}

// HandlePublishPublicationTask dispatches one scheduled publication. A row
// that is gone, no longer pending or not yet due is left alone.
func (j *Queue) HandlePublishPublicationTask(ctx context.Context, task *asynq.Task) error {
	var payload PublishPublicationPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("invalid publish payload: %v: %w", err, asynq.SkipRetry)
	}

	pub, err := j.ps.Get(ctx, payload.PublicationID)
	if errors.Is(err, service.ErrNotFound) {
		slog.Info("publication no longer exists", "publication_id", payload.PublicationID)
		return nil
	}
	if err != nil {
		return err
	}
	if !pub.Status.IsPendingLike() {
		slog.Info("publication not pending, skipping task", "publication_id", pub.ID, "status", pub.Status)
		return nil
	}
	// A reschedule leaves the earlier task queued; the newer one or the
	// periodic job picks the row up when it is due.
	if pub.ScheduledTime != nil && pub.ScheduledTime.After(j.now()) {
		slog.Info("publication not due yet, skipping task", "publication_id", pub.ID, "scheduled_time", *pub.ScheduledTime)
		return nil
	}

	outcome, err := j.ps.PublishSingle(ctx, pub)
	if err != nil {
		return err
	}

	slog.Info("publish task finished", "publication_id", pub.ID, "result", outcome.Result, "status", outcome.Status)
	return nil
}

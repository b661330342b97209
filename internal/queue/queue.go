package queue

import (
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
)

// Enqueuer is the part of *asynq.Client used here.
type Enqueuer interface {
	Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

func EnqueueProcessDue(client Enqueuer, payload ProcessDuePayload, delay time.Duration) error {
	return enqueue(client, TaskTypeProcessDue, payload, delay)
}

func EnqueuePublication(client Enqueuer, payload PublishPublicationPayload, delay time.Duration) error {
	return enqueue(client, TaskTypePublishPublication, payload, delay)
}

func enqueue(client Enqueuer, taskType string, payload any, delay time.Duration) error {
	taskPayload, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	if delay < 0 {
		delay = 0
	}
	task := asynq.NewTask(taskType, taskPayload)

	_, err = client.Enqueue(task, asynq.ProcessIn(delay))
	if err != nil {
		return err
	}

	slog.Info("task scheduled", "type", taskType, "payload", string(taskPayload), "delay", delay)
	return nil
}

package queue

import (
	"time"

	"github.com/maheshrc27/social-publisher/internal/service"
)

type Queue struct {
	ps           service.PublicationService
	defaultLimit int
	now          func() time.Time
}

func NewQueue(ps service.PublicationService, defaultLimit int) *Queue {
	if defaultLimit <= 0 {
		defaultLimit = service.DefaultProcessLimit
	}
	return &Queue{ps: ps, defaultLimit: defaultLimit, now: time.Now}
}

const (
	TaskTypeProcessDue         = "publication:process-due"
	TaskTypePublishPublication = "publication:publish"
)

type ProcessDuePayload struct {
	Limit int `json:"limit"`
}

type PublishPublicationPayload struct {
	PublicationID int64 `json:"publication_id"`
}

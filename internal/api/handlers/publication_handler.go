package handlers

import (
	"log/slog"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/maheshrc27/social-publisher/internal/cache"
	"github.com/maheshrc27/social-publisher/internal/models"
	"github.com/maheshrc27/social-publisher/internal/queue"
	"github.com/maheshrc27/social-publisher/internal/service"
	"github.com/maheshrc27/social-publisher/internal/transfer"
)

type PublicationHandler struct {
	s      service.PublicationService
	cache  cache.PublicationCache
	client queue.Enqueuer
	now    func() time.Time
}

// NewPublicationHandler wires the dispatcher endpoints. cache and client may
// be nil.
func NewPublicationHandler(s service.PublicationService, pc cache.PublicationCache, client queue.Enqueuer) *PublicationHandler {
	return &PublicationHandler{s: s, cache: pc, client: client, now: time.Now}
}

func (h *PublicationHandler) Schedule(c *fiber.Ctx) error {
	var req transfer.ScheduleRequest
	if ok, err := parseBody(c, &req); !ok {
		return err
	}

	platform, err := models.ParseSocialPlatform(req.Platform)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	pub, err := h.s.Schedule(c.Context(), service.ScheduleInput{
		PostID:          req.PostID,
		Platform:        platform,
		TargetAccount:   req.TargetAccount,
		CaptionOverride: req.CaptionOverride,
		ScheduledTime:   req.ScheduledTime,
	})
	if err != nil {
		return respondError(c, err)
	}
	h.forget(c, pub.ID)

	queued := false
	if h.client != nil {
		var delay time.Duration
		if pub.ScheduledTime != nil {
			delay = pub.ScheduledTime.Sub(h.now())
		}
		err = queue.EnqueuePublication(h.client, queue.PublishPublicationPayload{PublicationID: pub.ID}, delay)
		if err != nil {
			slog.Error("unable to enqueue publication, periodic dispatch will pick it up", "publication_id", pub.ID, "error", err)
		} else {
			queued = true
		}
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"publication": pub,
		"queued":      queued,
	})
}

func (h *PublicationHandler) ProcessDue(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", service.DefaultProcessLimit)

	report, err := h.s.ProcessDue(c.Context(), limit)
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(report)
}

func (h *PublicationHandler) List(c *fiber.Ctx) error {
	status := models.StatusPending
	if raw := strings.TrimSpace(c.Query("status")); raw != "" {
		parsed, err := models.ParsePublicationStatus(raw)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": err.Error(),
			})
		}
		status = parsed
	}
	limit := c.QueryInt("limit", service.DefaultListLimit)

	pubs, err := h.s.ListByStatus(c.Context(), status, limit)
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(pubs)
}

// Get answers from the published cache when it can.
func (h *PublicationHandler) Get(c *fiber.Ctx) error {
	id, ok := paramInt64(c, "id")
	if !ok {
		return badParam(c, "id")
	}

	if h.cache != nil {
		entry, err := h.cache.GetPublished(c.Context(), id)
		if err != nil {
			slog.Info("published cache lookup failed", "publication_id", id, "error", err)
		} else if entry != nil {
			return c.Status(fiber.StatusOK).JSON(fiber.Map{
				"publication_id":   entry.PublicationID,
				"post_id":          entry.PostID,
				"platform":         entry.Platform,
				"status":           models.StatusPublished,
				"platform_post_id": entry.PlatformPostID,
				"published_at":     entry.PublishedAt,
				"cached":           true,
			})
		}
	}

	pub, err := h.s.Get(c.Context(), id)
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(pub)
}

func (h *PublicationHandler) DeleteRemote(c *fiber.Ctx) error {
	id, ok := paramInt64(c, "id")
	if !ok {
		return badParam(c, "id")
	}

	pub, err := h.s.DeletePublished(c.Context(), id)
	if err != nil {
		return respondError(c, err)
	}
	h.forget(c, id)

	return c.Status(fiber.StatusOK).JSON(pub)
}

func (h *PublicationHandler) forget(c *fiber.Ctx, id int64) {
	if h.cache == nil {
		return
	}
	if err := h.cache.Forget(c.Context(), id); err != nil {
		slog.Info("unable to drop published cache entry", "publication_id", id, "error", err)
	}
}

package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/maheshrc27/social-publisher/internal/service"
)

type PhotoHandler struct {
	s service.PhotoService
}

func NewPhotoHandler(s service.PhotoService) *PhotoHandler {
	return &PhotoHandler{s: s}
}

// GetPhoto serves the raw product photo. Platform adapters reference these
// URLs, so the route is public.
func (h *PhotoHandler) GetPhoto(c *fiber.Ctx) error {
	photoID, ok := paramInt64(c, "id")
	if !ok {
		return badParam(c, "id")
	}

	photo, err := h.s.GetPhoto(c.Context(), photoID)
	if err != nil {
		return respondError(c, err)
	}

	c.Set(fiber.HeaderContentType, photo.ContentType)
	c.Set(fiber.HeaderCacheControl, "public, max-age=3600")
	return c.Send(photo.Bytes)
}

func Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/maheshrc27/social-publisher/internal/service"
	"github.com/maheshrc27/social-publisher/internal/transfer"
)

type PostHandler struct {
	s  service.PostService
	ph service.PhotoService
}

func NewPostHandler(s service.PostService, ph service.PhotoService) *PostHandler {
	return &PostHandler{s: s, ph: ph}
}

func (h *PostHandler) CreateFromProduct(c *fiber.Ctx) error {
	var req transfer.PostFromProductRequest
	if ok, err := parseBody(c, &req); !ok {
		return err
	}

	post, err := h.s.EnsurePostForProduct(c.Context(), req.ProductID)
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(post)
}

func (h *PostHandler) Deactivate(c *fiber.Ctx) error {
	postID, ok := paramInt64(c, "postId")
	if !ok {
		return badParam(c, "postId")
	}

	if _, err := h.s.DeactivatePost(c.Context(), postID); err != nil {
		return respondError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *PostHandler) DeactivateByProduct(c *fiber.Ctx) error {
	productID, ok := paramInt64(c, "productId")
	if !ok {
		return badParam(c, "productId")
	}

	if _, err := h.s.DeactivatePostByProduct(c.Context(), int(productID)); err != nil {
		return respondError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *PostHandler) MirrorPhotos(c *fiber.Ctx) error {
	postID, ok := paramInt64(c, "postId")
	if !ok {
		return badParam(c, "postId")
	}

	mirrored, err := h.ph.MirrorPostPhotos(c.Context(), postID)
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"photos": mirrored,
	})
}

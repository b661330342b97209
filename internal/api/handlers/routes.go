package handlers

import (
	"github.com/gofiber/fiber/v2"
)

type Routes struct {
	Auth         fiber.Handler
	Posts        *PostHandler
	Publications *PublicationHandler
	Photos       *PhotoHandler
	Metrics      fiber.Handler
}

// Register mounts the public routes and the guarded /api/social group.
func Register(app fiber.Router, r Routes) {
	app.Get("/health", Health)
	if r.Metrics != nil {
		app.Get("/metrics", r.Metrics)
	}
	app.Get("/product/photo/:id", r.Photos.GetPhoto)

	api := app.Group("/api/social")
	if r.Auth != nil {
		api.Use(r.Auth)
	}

	api.Post("/post-from-product", r.Posts.CreateFromProduct)
	api.Delete("/post/:postId", r.Posts.Deactivate)
	api.Delete("/post-by-product/:productId", r.Posts.DeactivateByProduct)
	api.Post("/post/:postId/mirror-photos", r.Posts.MirrorPhotos)

	api.Post("/schedule", r.Publications.Schedule)
	api.Post("/process-due", r.Publications.ProcessDue)
	api.Get("/publications", r.Publications.List)
	api.Get("/publications/:id", r.Publications.Get)
	api.Delete("/publications/:id/remote", r.Publications.DeleteRemote)
}

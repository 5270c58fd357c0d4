package handlers

import (
	"github.com/gofiber/fiber/v2"
	fiberSwagger "github.com/swaggo/fiber-swagger"
)

// StreamPath is where the stream proxy is mounted.
const StreamPath = "/api/v1/proxy-stream"

// Register mounts every route on app.
func (h *ApplicationHandler) Register(app *fiber.App) {
	app.Get("/health", h.Health)
	app.Get("/swagger/*", fiberSwagger.WrapHandler)
	app.Static("/uploads", h.UploadDir)

	apiV1 := app.Group("/api/v1")

	apiV1.Get("/proxy-stream", h.ProxyStream)

	videos := apiV1.Group("/videos")
	videos.Post("/download", h.DownloadVideo)
	videos.Post("/upload", h.UploadVideo)
	videos.Get("/:videoId", h.GetVideo)
	videos.Post("/:videoId/narration", h.CreateNarration)

	sessions := apiV1.Group("/sessions")
	sessions.Post("", h.CreateSession)
	sessions.Get("/:id", h.GetSession)
	sessions.Delete("/:id", h.DeleteSession)
	sessions.Post("/:id/events", h.PostEvents)
	sessions.Get("/:id/audio/:index", h.GetSessionAudio)
}

// HealthResponse is returned by the health check.
type HealthResponse struct {
	Status   string `json:"status" example:"ok"`
	Message  string `json:"message"`
	Sessions int    `json:"sessions"`
}

// Health reports liveness and the number of open sessions.
func (h *ApplicationHandler) Health(c *fiber.Ctx) error {
	n := 0
	if h.Sessions != nil {
		n = h.Sessions.Len()
	}
	return c.Status(fiber.StatusOK).JSON(HealthResponse{
		Status:   "ok",
		Message:  "API Gateway is healthy",
		Sessions: n,
	})
}

package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
)

type Routes struct {
	Upload *UploadHandler
	Audit  *AuditHandler
	Jobs   *JobHandler
	Report *ReportHandler
}

// RegisterRoutes mounts the API under /api/v1.
func RegisterRoutes(app *fiber.App, r Routes) {
	api := app.Group("/api/v1")

	// Health check
	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now(),
		})
	})

	api.Get("/parameters", r.Upload.HandleParameters)
	api.Post("/upload", r.Upload.HandleUpload)

	api.Post("/audit", r.Audit.HandleAudit)
	api.Post("/audit/combined", r.Audit.HandleCombinedAudit)
	api.Post("/audit/stream", r.Audit.HandleStream)
	api.Post("/audit/async", r.Audit.HandleSubmit)
	api.Get("/audit/jobs/:id", r.Jobs.HandleStatus)
	api.Get("/audit/jobs/:id/result", r.Jobs.HandleResult)

	api.Get("/reports/:id", r.Report.HandleGetReport)
}

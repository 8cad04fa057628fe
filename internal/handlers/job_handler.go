package handlers

import (
	"github.com/gofiber/fiber/v2"

	"alfredoptarigan/call-auditor/internal/models"
	"alfredoptarigan/call-auditor/internal/services"
)

type JobHandler struct {
	tracker services.JobTracker
}

func NewJobHandler(tracker services.JobTracker) *JobHandler {
	return &JobHandler{
		tracker: tracker,
	}
}

// HandleStatus handles GET /audit/jobs/:id
func (h *JobHandler) HandleStatus(c *fiber.Ctx) error {
	job, err := h.tracker.GetStatus(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}

	response := models.JobStatusResponse{
		JobID:          job.ID,
		Status:         string(job.Status),
		Progress:       job.Progress,
		CurrentFile:    job.CurrentFile,
		ProcessedFiles: job.ProcessedFiles,
		TotalFiles:     job.TotalFiles,
		ElapsedTime:    job.ElapsedTime,
	}

	if job.Status == models.JobStatusFailed && job.ErrorMessage != "" {
		response.ErrorMessage = &job.ErrorMessage
	}

	return c.JSON(response)
}

// HandleResult handles GET /audit/jobs/:id/result
func (h *JobHandler) HandleResult(c *fiber.Ctx) error {
	result, err := h.tracker.GetResult(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(result)
}

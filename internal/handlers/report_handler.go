package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"alfredoptarigan/call-auditor/internal/repositories"
)

type ReportHandler struct {
	reports repositories.ReportRepository
}

func NewReportHandler(reports repositories.ReportRepository) *ReportHandler {
	return &ReportHandler{
		reports: reports,
	}
}

// HandleGetReport handles GET /reports/:id
func (h *ReportHandler) HandleGetReport(c *fiber.Ctx) error {
	if h.reports == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "report archive is disabled",
			"code":  fiber.StatusNotFound,
		})
	}

	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "Invalid audit ID format")
	}

	report, err := h.reports.FindByID(c.UserContext(), id)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(report.ToBatchResult())
}

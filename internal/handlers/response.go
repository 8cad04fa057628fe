package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"

	"github.com/gofiber/fiber/v2"

	"alfredoptarigan/call-auditor/internal/models"
	"alfredoptarigan/call-auditor/internal/repositories"
	"alfredoptarigan/call-auditor/internal/services"
)

// statusFor maps service errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case services.IsValidationError(err):
		return fiber.StatusBadRequest
	case errors.Is(err, services.ErrJobNotFound), errors.Is(err, repositories.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, services.ErrJobNotReady):
		return fiber.StatusConflict
	default:
		return fiber.StatusInternalServerError
	}
}

func respondError(c *fiber.Ctx, err error) error {
	code := statusFor(err)
	return c.Status(code).JSON(fiber.Map{
		"error": err.Error(),
		"code":  code,
	})
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"error": msg,
		"code":  fiber.StatusBadRequest,
	})
}

// parseSubmission reads the multipart body shared by every audit endpoint:
// a "request" field holding the JSON audit request and the audio under "files".
func parseSubmission(c *fiber.Ctx) (models.AuditRequest, []*multipart.FileHeader, error) {
	var req models.AuditRequest

	form, err := c.MultipartForm()
	if err != nil {
		return req, nil, &services.ValidationError{Message: "failed to parse multipart form"}
	}

	raw := form.Value["request"]
	if len(raw) == 0 || raw[0] == "" {
		return req, nil, &services.ValidationError{Message: "request field is required"}
	}
	if err := json.Unmarshal([]byte(raw[0]), &req); err != nil {
		return req, nil, &services.ValidationError{Message: fmt.Sprintf("Invalid JSON in request: %v", err)}
	}

	return req, form.File["files"], nil
}

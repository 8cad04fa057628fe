package handlers

import (
	"fmt"

	"github.com/gofiber/fiber/v2"

	"alfredoptarigan/call-auditor/internal/models"
	"alfredoptarigan/call-auditor/internal/services"
)

type UploadHandler struct {
	storage services.StorageService
	catalog *services.CriterionCatalog
}

func NewUploadHandler(storage services.StorageService, catalog *services.CriterionCatalog) *UploadHandler {
	return &UploadHandler{
		storage: storage,
		catalog: catalog,
	}
}

// HandleUpload handles POST /upload. It runs the same checks as the audit
// endpoints and reports what would be audited; nothing is kept.
func (h *UploadHandler) HandleUpload(c *fiber.Ctx) error {
	form, err := c.MultipartForm()
	if err != nil {
		return badRequest(c, "failed to parse multipart form")
	}

	files, err := h.storage.SaveAudioFiles(form.File["files"])
	if err != nil {
		return respondError(c, err)
	}
	defer h.storage.Discard(files)

	var totalSize int64
	names := make([]string, 0, len(files))
	for _, f := range files {
		totalSize += f.Size
		names = append(names, f.Name)
	}

	return c.JSON(models.UploadResponse{
		Message:       fmt.Sprintf("Successfully uploaded %d files", len(files)),
		UploadedFiles: names,
		TotalSize:     totalSize,
		FileCount:     len(files),
	})
}

// HandleParameters handles GET /parameters
func (h *UploadHandler) HandleParameters(c *fiber.Ctx) error {
	return c.JSON(models.ParametersResponse{Parameters: h.catalog.List()})
}

package handlers

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"alfredoptarigan/call-auditor/internal/models"
	"alfredoptarigan/call-auditor/internal/services"
)

type AuditHandler struct {
	storage  services.StorageService
	audits   *services.AuditService
	streamer *services.ProgressStreamer
	tracker  services.JobTracker
	logger   *zap.Logger
}

func NewAuditHandler(
	storage services.StorageService,
	audits *services.AuditService,
	streamer *services.ProgressStreamer,
	tracker services.JobTracker,
	logger *zap.Logger,
) *AuditHandler {
	return &AuditHandler{
		storage:  storage,
		audits:   audits,
		streamer: streamer,
		tracker:  tracker,
		logger:   logger,
	}
}

// stage validates the request and persists its files. The caller owns the
// returned files.
func (h *AuditHandler) stage(c *fiber.Ctx, strategy services.Strategy) (models.AuditRequest, []services.StoredFile, error) {
	req, headers, err := parseSubmission(c)
	if err != nil {
		return req, nil, err
	}
	if err := services.ValidateRequest(req, strategy); err != nil {
		return req, nil, err
	}

	files, err := h.storage.SaveAudioFiles(headers)
	if err != nil {
		return req, nil, err
	}
	return req, files, nil
}

// HandleAudit handles POST /audit
func (h *AuditHandler) HandleAudit(c *fiber.Ctx) error {
	return h.runSync(c, services.StrategyAuto)
}

// HandleCombinedAudit handles POST /audit/combined
func (h *AuditHandler) HandleCombinedAudit(c *fiber.Ctx) error {
	return h.runSync(c, services.StrategyCombined)
}

func (h *AuditHandler) runSync(c *fiber.Ctx, strategy services.Strategy) error {
	req, files, err := h.stage(c, strategy)
	if err != nil {
		return respondError(c, err)
	}
	defer h.storage.Discard(files)

	batch, err := h.audits.Run(c.UserContext(), services.NewAuditID(), files, req, services.BatchObserver{})
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(batch)
}

// HandleStream handles POST /audit/stream as server-sent events.
func (h *AuditHandler) HandleStream(c *fiber.Ctx) error {
	req, files, err := h.stage(c, services.StrategyAuto)
	if err != nil {
		return respondError(c, err)
	}

	// The run outlives the request if the client goes away.
	events := h.streamer.Stream(context.Background(), files, req, func() {
		h.storage.Discard(files)
	})

	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")

	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		for event := range events {
			if err := writeEvent(w, event); err != nil {
				h.logger.Info("stream consumer disconnected", zap.Error(err))
				return
			}
		}
	}))

	return nil
}

func writeEvent(w *bufio.Writer, event models.ProgressEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Type, payload); err != nil {
		return err
	}
	return w.Flush()
}

// HandleSubmit handles POST /audit/async
func (h *AuditHandler) HandleSubmit(c *fiber.Ctx) error {
	req, files, err := h.stage(c, services.StrategyAuto)
	if err != nil {
		return respondError(c, err)
	}

	jobID, err := h.tracker.Submit(c.UserContext(), files, req, func() {
		h.storage.Discard(files)
	})
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusAccepted).JSON(models.SubmitJobResponse{
		JobID:  jobID,
		Status: string(models.JobStatusProcessing),
	})
}

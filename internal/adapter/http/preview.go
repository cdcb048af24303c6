package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"portlens/internal/domain"
)

// Preview runs extraction and scoring synchronously without persisting
// anything. Because the engine is deterministic, saving later reproduces
// exactly what the preview showed.
func (h *Handler) Preview(c *fiber.Ctx) error {
	if err := validateSubmitBody(c.Body()); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	var req submitURLReq
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid payload"})
	}
	if err := validateSourceURL(req.SourceURL); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	signals, err := h.extractor.ExtractURL(c.Context(), req.SourceURL)
	if err != nil {
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "could not fetch the portfolio"})
	}

	res := h.scorer.Score(signals)
	return c.JSON(fiber.Map{
		"result": res,
		"save": fiber.Map{
			"method": fiber.MethodPost,
			"path":   "/api/v1/analysis/preview/save",
			"body":   req,
		},
	})
}

// PreviewSave persists a previewed analysis as an already-completed job.
// It re-derives the result server side rather than trusting scores from
// the client body.
func (h *Handler) PreviewSave(c *fiber.Ctx) error {
	if err := validateSubmitBody(c.Body()); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	var req submitURLReq
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid payload"})
	}
	if err := validateSourceURL(req.SourceURL); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	signals, err := h.extractor.ExtractURL(c.Context(), req.SourceURL)
	if err != nil {
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "could not fetch the portfolio"})
	}

	now := time.Now().UTC()
	job := &domain.Job{
		ID:            uuid.New(),
		SubmitterID:   submitterID(c),
		SourceType:    domain.SourceURL,
		SourceURL:     req.SourceURL,
		Title:         req.Title,
		CandidateName: req.CandidateName,
		Status:        domain.StatusCompleted,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	res := h.scorer.Score(signals)
	res.JobID = job.ID
	res.CompletedAt = now

	if err := h.store.SaveCompleted(c.Context(), job, res); err != nil {
		h.logger.Error("saving previewed analysis failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to save analysis"})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"job_id": job.ID.String(),
		"status": job.Status,
		"result": res,
	})
}

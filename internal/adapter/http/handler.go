package http

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"portlens/internal/domain"
	"portlens/internal/usecase"
)

// Handler exposes the intake gateway, the status/results pollers and the
// stateless preview. It owns nothing past job creation: once a row is
// committed and the dispatcher is woken, the request is done.
type Handler struct {
	store     usecase.JobStore
	extractor usecase.SignalExtractor
	scorer    usecase.Scorer
	wake      func()
	uploadDir string
	logger    *zap.Logger
}

func NewHandler(store usecase.JobStore, ex usecase.SignalExtractor, scorer usecase.Scorer, wake func(), uploadDir string, logger *zap.Logger) *Handler {
	if wake == nil {
		wake = func() {}
	}
	return &Handler{store: store, extractor: ex, scorer: scorer, wake: wake, uploadDir: uploadDir, logger: logger}
}

// Register mounts all routes on the app.
func (h *Handler) Register(app *fiber.App) {
	app.Get("/health", h.Health)

	v1 := app.Group("/api/v1")
	v1.Post("/portfolios", h.SubmitURL)
	v1.Post("/portfolios/upload", h.SubmitFiles)
	v1.Get("/portfolios", h.ListJobs)
	v1.Get("/portfolios/:id", h.GetJob)
	v1.Delete("/portfolios/:id", h.DeleteJob)

	v1.Get("/analysis/:id/status", h.Status)
	v1.Get("/analysis/:id/results", h.Results)
	v1.Post("/analysis/:id/retry", h.Retry)
	v1.Post("/analysis/preview", h.Preview)
	v1.Post("/analysis/preview/save", h.PreviewSave)
}

func (h *Handler) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "healthy"})
}

type submitURLReq struct {
	SourceURL     string `json:"source_url"`
	Title         string `json:"title,omitempty"`
	CandidateName string `json:"candidate_name,omitempty"`
}

// SubmitURL accepts a portfolio URL, creates a pending job and returns its
// id immediately. The call never waits for extraction or scoring.
func (h *Handler) SubmitURL(c *fiber.Ctx) error {
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

	now := time.Now().UTC()
	job := &domain.Job{
		ID:            uuid.New(),
		SubmitterID:   submitterID(c),
		SourceType:    domain.SourceURL,
		SourceURL:     req.SourceURL,
		Title:         req.Title,
		CandidateName: req.CandidateName,
		Status:        domain.StatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := h.store.Create(c.Context(), job); err != nil {
		h.logger.Error("creating job failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to create job"})
	}

	h.wake()
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"job_id": job.ID.String(),
		"status": job.Status,
	})
}

var allowedUploadExts = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".webp": true, ".pdf": true,
}

// SubmitFiles accepts an uploaded file set as the submission source.
func (h *Handler) SubmitFiles(c *fiber.Ctx) error {
	form, err := c.MultipartForm()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid multipart form"})
	}
	files := form.File["files"]
	if len(files) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "no files provided"})
	}
	for _, f := range files {
		if !allowedUploadExts[strings.ToLower(filepath.Ext(f.Filename))] {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": fmt.Sprintf("file type not allowed: %s", f.Filename),
			})
		}
	}

	now := time.Now().UTC()
	job := &domain.Job{
		ID:          uuid.New(),
		SubmitterID: submitterID(c),
		SourceType:  domain.SourceFiles,
		Title:       files[0].Filename,
		Status:      domain.StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	dir := filepath.Join(h.uploadDir, job.ID.String())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		h.logger.Error("creating upload dir failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to store files"})
	}
	for _, f := range files {
		dst := filepath.Join(dir, uuid.New().String()+strings.ToLower(filepath.Ext(f.Filename)))
		if err := c.SaveFile(f, dst); err != nil {
			h.logger.Error("saving upload failed", zap.Error(err))
			_ = os.RemoveAll(dir)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to store files"})
		}
		job.FilePaths = append(job.FilePaths, dst)
	}

	if err := h.store.Create(c.Context(), job); err != nil {
		h.logger.Error("creating job failed", zap.Error(err))
		// Files without a job row are unreachable; drop them.
		_ = os.RemoveAll(dir)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to create job"})
	}

	h.wake()
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"job_id": job.ID.String(),
		"status": job.Status,
	})
}

// ListJobs returns the caller's jobs, newest first.
func (h *Handler) ListJobs(c *fiber.Ctx) error {
	jobs, err := h.store.ListBySubmitter(c.Context(), submitterID(c))
	if err != nil {
		h.logger.Error("listing jobs failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to list jobs"})
	}
	return c.JSON(jobs)
}

// GetJob returns the caller's single job record. Like list and delete, the
// read is scoped to the submitter; someone else's job reads as not found.
func (h *Handler) GetJob(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid job id"})
	}
	job, err := h.store.Get(c.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "job not found"})
		}
		h.logger.Error("fetching job failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to fetch job"})
	}
	if job.SubmitterID != submitterID(c) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "job not found"})
	}
	return c.JSON(job)
}

// DeleteJob removes a job at any time. A worker racing the delete finishes
// on its own and treats the missing row as a no-op.
func (h *Handler) DeleteJob(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid job id"})
	}
	if err := h.store.Delete(c.Context(), id, submitterID(c)); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "job not found"})
		}
		h.logger.Error("deleting job failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to delete job"})
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Status reports the job's coarse state. Internal error detail never leaves
// the process; callers only see the status and a reason category.
func (h *Handler) Status(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid job id"})
	}
	job, err := h.store.Get(c.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "job not found"})
		}
		h.logger.Error("fetching job failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to fetch job"})
	}

	resp := fiber.Map{
		"job_id":      job.ID.String(),
		"status":      job.Status,
		"retry_count": job.RetryCount,
	}
	if job.FailureReason != "" {
		resp["failure_reason"] = job.FailureReason
	}
	return c.JSON(resp)
}

// Results returns the full analysis for a completed job, 404 otherwise.
func (h *Handler) Results(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid job id"})
	}
	res, err := h.store.GetResult(c.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "results not found"})
		}
		h.logger.Error("fetching results failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to fetch results"})
	}
	return c.JSON(res)
}

// Retry requeues a failed job. Losing the status guard (the job is not in
// failed anymore) reads as a conflict, not an error.
func (h *Handler) Retry(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid job id"})
	}
	ok, err := h.store.Retry(c.Context(), id)
	if err != nil {
		h.logger.Error("retrying job failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to retry job"})
	}
	if !ok {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "job is not in a retryable state"})
	}
	h.wake()
	return c.JSON(fiber.Map{"job_id": id.String(), "status": domain.StatusPending})
}

func submitterID(c *fiber.Ctx) uuid.UUID {
	// Identity is owned elsewhere; the gateway only carries the reference.
	id, err := uuid.Parse(c.Get("X-User-ID"))
	if err != nil {
		return uuid.Nil
	}
	return id
}

func validateSourceURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil || !u.IsAbs() || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("source_url must be an absolute http(s) URL")
	}
	return nil
}

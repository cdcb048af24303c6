package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"portlens/internal/domain"
	"portlens/internal/extractor"
)

// Processor runs the extraction-and-scoring pipeline for one claimed job.
// Each invocation owns a fresh resource scope: a deadline context derived
// from context.Background and store access through the injected pool-backed
// repository. Nothing is borrowed from the request that created the job -
// a worker tied to a caller's context is exactly how jobs end up stuck in
// processing forever.
type Processor struct {
	store     JobStore
	extractor SignalExtractor
	scorer    Scorer
	deadline  time.Duration
	logger    *zap.Logger
	onUpdate  func()
}

func NewProcessor(store JobStore, ex SignalExtractor, scorer Scorer, deadline time.Duration, logger *zap.Logger) *Processor {
	return &Processor{
		store:     store,
		extractor: ex,
		scorer:    scorer,
		deadline:  deadline,
		logger:    logger,
		onUpdate:  func() {},
	}
}

// SetOnUpdate installs a callback invoked after every finalized transition
// (used for the websocket feed). Must be called before workers start.
func (p *Processor) SetOnUpdate(fn func()) {
	if fn != nil {
		p.onUpdate = fn
	}
}

// Process runs the whole pipeline for an already-claimed job and always
// finalizes it before returning. The error return is informational; claim
// races and deleted jobs are normal no-ops.
func (p *Processor) Process(job *domain.Job) error {
	ctx, cancel := context.WithTimeout(context.Background(), p.deadline)
	defer cancel()

	defer p.onUpdate()

	signals, err := p.extract(ctx, job)
	if err != nil {
		return p.fail(job, err)
	}

	res := p.scorer.Score(signals)
	res.JobID = job.ID
	res.CompletedAt = time.Now().UTC()

	if err := p.store.Complete(ctx, job.ID, res); err != nil {
		if ctx.Err() != nil {
			// Deadline expired between extraction and the commit: the job
			// must still finalize as a timeout, on a fresh context.
			return p.fail(job, fmt.Errorf("%w: %v", domain.ErrWorkerTimeout, err))
		}
		// PersistenceFailure: leave the job at its last committed state
		// for the sweeper instead of force-finalizing on a broken store.
		p.logger.Error("persisting result failed, leaving job for sweeper",
			zap.String("job_id", job.ID.String()), zap.Error(err))
		return err
	}

	p.logger.Info("job completed",
		zap.String("job_id", job.ID.String()),
		zap.Int("overall_score", res.OverallScore))
	return nil
}

func (p *Processor) extract(ctx context.Context, job *domain.Job) (*extractor.Signals, error) {
	if job.SourceType == domain.SourceFiles {
		return p.extractor.FromFiles(job.Title, job.FilePaths), nil
	}
	signals, err := p.extractor.ExtractURL(ctx, job.SourceURL)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrWorkerTimeout, err)
		}
		return nil, err
	}
	return signals, nil
}

// fail finalizes the job with a coarse reason. The write runs on a fresh
// short-lived context: the worker's own context may already be past its
// deadline, and the terminal transition must still commit.
func (p *Processor) fail(job *domain.Job, cause error) error {
	reason := domain.FailureReasonFor(cause)
	p.logger.Warn("job failed",
		zap.String("job_id", job.ID.String()),
		zap.String("reason", reason),
		zap.Error(cause))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := p.store.Fail(ctx, job.ID, reason); err != nil {
		p.logger.Error("finalizing failed job did not commit, leaving for sweeper",
			zap.String("job_id", job.ID.String()), zap.Error(err))
		return errors.Join(cause, err)
	}
	return cause
}

package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	"portlens/internal/domain"
	"portlens/internal/extractor"
)

// JobStore is the persistence contract for the pipeline. The conditional
// update semantics documented on the repository are part of this contract:
// claim and finalize calls are guarded by expected prior status, and a
// failed guard is a no-op rather than an error.
type JobStore interface {
	Create(ctx context.Context, j *domain.Job) error
	Get(ctx context.Context, id uuid.UUID) (*domain.Job, error)
	ListBySubmitter(ctx context.Context, submitterID uuid.UUID) ([]domain.Job, error)
	Delete(ctx context.Context, id, submitterID uuid.UUID) error

	ClaimNext(ctx context.Context) (*domain.Job, error)
	Complete(ctx context.Context, id uuid.UUID, res *domain.AnalysisResult) error
	Fail(ctx context.Context, id uuid.UUID, reason string) error
	Retry(ctx context.Context, id uuid.UUID) (bool, error)

	GetResult(ctx context.Context, id uuid.UUID) (*domain.AnalysisResult, error)
	SaveCompleted(ctx context.Context, j *domain.Job, res *domain.AnalysisResult) error

	RequeueStale(ctx context.Context, cutoff time.Time, maxRetries int) (int64, error)
	FailStale(ctx context.Context, cutoff time.Time, maxRetries int) (int64, error)
}

// SignalExtractor derives normalized signals from a submission source.
type SignalExtractor interface {
	ExtractURL(ctx context.Context, sourceURL string) (*extractor.Signals, error)
	FromFiles(title string, paths []string) *extractor.Signals
}

// Scorer is the narrow signals-to-result seam. The default implementation
// is the deterministic heuristic engine; a remote provider can be swapped
// in here without touching the dispatcher or the state machine.
type Scorer interface {
	Score(s *extractor.Signals) *domain.AnalysisResult
}

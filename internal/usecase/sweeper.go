package usecase

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Sweeper reconciles orphaned in-flight jobs: anything sitting in
// processing whose updated_at predates the liveness threshold lost its
// worker (crash, kill, restart) and will never finalize on its own. Within
// retry budget the job is requeued; past it, it is finalized as failed.
// The threshold and budget are deployment configuration.
type Sweeper struct {
	store      JobStore
	threshold  time.Duration
	interval   time.Duration
	maxRetries int
	logger     *zap.Logger
	onRequeue  func()
}

func NewSweeper(store JobStore, threshold, interval time.Duration, maxRetries int, logger *zap.Logger) *Sweeper {
	return &Sweeper{
		store:      store,
		threshold:  threshold,
		interval:   interval,
		maxRetries: maxRetries,
		logger:     logger,
		onRequeue:  func() {},
	}
}

// SetOnRequeue installs a callback fired when a sweep requeued anything,
// normally the dispatcher's Wake. Must be called before Run.
func (s *Sweeper) SetOnRequeue(fn func()) {
	if fn != nil {
		s.onRequeue = fn
	}
}

// Run sweeps once immediately, then periodically until ctx is cancelled.
// Runs detached so intake never waits on a sweep.
func (s *Sweeper) Run(ctx context.Context) {
	s.Sweep(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep performs one reconciliation pass. Jobs updated within the
// threshold are left untouched; each stale job is handled exactly once per
// pass because both updates refresh updated_at.
func (s *Sweeper) Sweep(ctx context.Context) {
	cutoff := time.Now().Add(-s.threshold)

	requeued, err := s.store.RequeueStale(ctx, cutoff, s.maxRetries)
	if err != nil {
		s.logger.Error("requeueing stale jobs failed", zap.Error(err))
		return
	}
	failed, err := s.store.FailStale(ctx, cutoff, s.maxRetries)
	if err != nil {
		s.logger.Error("failing stale jobs failed", zap.Error(err))
		return
	}

	if requeued > 0 || failed > 0 {
		s.logger.Info("sweep reconciled orphaned jobs",
			zap.Int64("requeued", requeued),
			zap.Int64("failed", failed))
	}
	if requeued > 0 {
		s.onRequeue()
	}
}

package usecase

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Dispatcher claims pending jobs and hands each to an isolated worker
// goroutine. Intake wakes it through a signal channel; a poll ticker
// backstops missed wakeups (and picks up jobs the sweeper requeues).
// Workers never talk to each other; the store's conditional claim is the
// only synchronization in the pipeline.
type Dispatcher struct {
	store     JobStore
	processor *Processor
	poll      time.Duration
	wake      chan struct{}
	sem       chan struct{}
	logger    *zap.Logger
}

func NewDispatcher(store JobStore, processor *Processor, poll time.Duration, maxWorkers int, logger *zap.Logger) *Dispatcher {
	if maxWorkers < 1 {
		maxWorkers = 1
	}
	return &Dispatcher{
		store:     store,
		processor: processor,
		poll:      poll,
		wake:      make(chan struct{}, 1),
		sem:       make(chan struct{}, maxWorkers),
		logger:    logger,
	}
}

// Wake nudges the dispatcher that a pending job exists. Non-blocking; a
// pending wakeup coalesces with any number of further ones.
func (d *Dispatcher) Wake() {
	select {
	case d.wake <- struct{}{}:
	default:
	}
}

// Run claims and dispatches until ctx is cancelled. Intended to run as its
// own goroutine from main.
func (d *Dispatcher) Run(ctx context.Context) {
	ticker := time.NewTicker(d.poll)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-d.wake:
		case <-ticker.C:
		}
		d.drain(ctx)
	}
}

// drain claims pending jobs until the store runs dry or ctx ends. Claiming
// happens before the semaphore is released to a worker, so at most one
// worker ever holds a given job's processing claim.
func (d *Dispatcher) drain(ctx context.Context) {
	for {
		select {
		case d.sem <- struct{}{}:
		case <-ctx.Done():
			return
		}

		job, err := d.store.ClaimNext(ctx)
		if err != nil {
			<-d.sem
			d.logger.Error("claiming next job failed", zap.Error(err))
			return
		}
		if job == nil {
			<-d.sem
			return
		}

		d.logger.Info("job claimed",
			zap.String("job_id", job.ID.String()),
			zap.String("source_type", string(job.SourceType)))

		go func() {
			defer func() { <-d.sem }()
			_ = d.processor.Process(job)
		}()
	}
}

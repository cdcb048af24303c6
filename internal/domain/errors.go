package domain

import "errors"

// Failure categories surfaced to callers. Everything the worker records on a
// failed job collapses to one of these; internal error detail never leaves
// the process.
var (
	// ErrInvalidInput means the submission itself is unusable (malformed
	// URL, empty file set). Rejected at intake, never retried.
	ErrInvalidInput = errors.New("invalid input")

	// ErrFetchFailed covers network errors, fetch timeouts and non-2xx
	// responses. Retryable.
	ErrFetchFailed = errors.New("fetch failed")

	// ErrWorkerTimeout means the whole pipeline ran past the worker
	// deadline. Retryable.
	ErrWorkerTimeout = errors.New("worker timeout")

	// ErrNotFound is returned by the store for unknown job ids.
	ErrNotFound = errors.New("not found")
)

// Failure reasons persisted on the jobs row.
const (
	ReasonFetchFailed  = "fetch_failed"
	ReasonTimeout      = "timeout"
	ReasonStaleWorker  = "stale_worker"
	ReasonInvalidInput = "invalid_input"
)

// FailureReasonFor maps a worker error onto the coarse reason stored with
// the failed job.
func FailureReasonFor(err error) string {
	switch {
	case errors.Is(err, ErrWorkerTimeout):
		return ReasonTimeout
	case errors.Is(err, ErrInvalidInput):
		return ReasonInvalidInput
	default:
		return ReasonFetchFailed
	}
}

package usecase

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"portlens/internal/domain"
)

// fakeStore is an in-memory JobStore honouring the conditional-update
// contract, recording every observed status transition per job.
type fakeStore struct {
	mu          sync.Mutex
	jobs        map[uuid.UUID]*domain.Job
	results     map[uuid.UUID]*domain.AnalysisResult
	transitions map[uuid.UUID][]domain.Status
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		jobs:        map[uuid.UUID]*domain.Job{},
		results:     map[uuid.UUID]*domain.AnalysisResult{},
		transitions: map[uuid.UUID][]domain.Status{},
	}
}

func (f *fakeStore) record(id uuid.UUID, st domain.Status) {
	f.transitions[id] = append(f.transitions[id], st)
}

func (f *fakeStore) Create(_ context.Context, j *domain.Job) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *j
	f.jobs[j.ID] = &cp
	f.record(j.ID, j.Status)
	return nil
}

func (f *fakeStore) Get(_ context.Context, id uuid.UUID) (*domain.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	j, ok := f.jobs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *j
	return &cp, nil
}

func (f *fakeStore) ListBySubmitter(_ context.Context, submitterID uuid.UUID) ([]domain.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []domain.Job{}
	for _, j := range f.jobs {
		if j.SubmitterID == submitterID {
			out = append(out, *j)
		}
	}
	sort.Slice(out, func(i, k int) bool { return out[i].CreatedAt.After(out[k].CreatedAt) })
	return out, nil
}

func (f *fakeStore) Delete(_ context.Context, id, _ uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.jobs[id]; !ok {
		return domain.ErrNotFound
	}
	delete(f.jobs, id)
	delete(f.results, id)
	return nil
}

func (f *fakeStore) ClaimNext(_ context.Context) (*domain.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var oldest *domain.Job
	for _, j := range f.jobs {
		if j.Status != domain.StatusPending {
			continue
		}
		if oldest == nil || j.CreatedAt.Before(oldest.CreatedAt) {
			oldest = j
		}
	}
	if oldest == nil {
		return nil, nil
	}
	oldest.Status = domain.StatusProcessing
	oldest.UpdatedAt = time.Now()
	f.record(oldest.ID, domain.StatusProcessing)
	cp := *oldest
	return &cp, nil
}

func (f *fakeStore) Complete(_ context.Context, id uuid.UUID, res *domain.AnalysisResult) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	j, ok := f.jobs[id]
	if !ok || j.Status != domain.StatusProcessing {
		return nil // lost the guard: deleted or raced, a normal no-op
	}
	j.Status = domain.StatusCompleted
	j.UpdatedAt = time.Now()
	f.results[id] = res
	f.record(id, domain.StatusCompleted)
	return nil
}

func (f *fakeStore) Fail(_ context.Context, id uuid.UUID, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	j, ok := f.jobs[id]
	if !ok || j.Status != domain.StatusProcessing {
		return nil
	}
	j.Status = domain.StatusFailed
	j.FailureReason = reason
	j.RetryCount++
	j.UpdatedAt = time.Now()
	f.record(id, domain.StatusFailed)
	return nil
}

func (f *fakeStore) Retry(_ context.Context, id uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	j, ok := f.jobs[id]
	if !ok || j.Status != domain.StatusFailed {
		return false, nil
	}
	j.Status = domain.StatusPending
	j.FailureReason = ""
	j.UpdatedAt = time.Now()
	f.record(id, domain.StatusPending)
	return true, nil
}

func (f *fakeStore) GetResult(_ context.Context, id uuid.UUID) (*domain.AnalysisResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	j, ok := f.jobs[id]
	if !ok || j.Status != domain.StatusCompleted {
		return nil, domain.ErrNotFound
	}
	return f.results[id], nil
}

func (f *fakeStore) SaveCompleted(_ context.Context, j *domain.Job, res *domain.AnalysisResult) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *j
	cp.Status = domain.StatusCompleted
	f.jobs[j.ID] = &cp
	f.results[j.ID] = res
	f.record(j.ID, domain.StatusCompleted)
	return nil
}

func (f *fakeStore) RequeueStale(_ context.Context, cutoff time.Time, maxRetries int) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, j := range f.jobs {
		if j.Status == domain.StatusProcessing && j.UpdatedAt.Before(cutoff) && j.RetryCount < maxRetries {
			j.Status = domain.StatusPending
			j.RetryCount++
			j.UpdatedAt = time.Now()
			f.record(j.ID, domain.StatusPending)
			n++
		}
	}
	return n, nil
}

func (f *fakeStore) FailStale(_ context.Context, cutoff time.Time, maxRetries int) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, j := range f.jobs {
		if j.Status == domain.StatusProcessing && j.UpdatedAt.Before(cutoff) && j.RetryCount >= maxRetries {
			j.Status = domain.StatusFailed
			j.FailureReason = domain.ReasonStaleWorker
			j.UpdatedAt = time.Now()
			f.record(j.ID, domain.StatusFailed)
			n++
		}
	}
	return n, nil
}

// status reads the current status under lock.
func (f *fakeStore) status(id uuid.UUID) (domain.Status, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	j, ok := f.jobs[id]
	if !ok {
		return "", false
	}
	return j.Status, true
}

func (f *fakeStore) transitionsFor(id uuid.UUID) []domain.Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.Status, len(f.transitions[id]))
	copy(out, f.transitions[id])
	return out
}

package usecase

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"portlens/internal/domain"
	"portlens/internal/extractor"
	"portlens/internal/scoring"
)

const portfolioPage = `<html><head>
<title>Minimalist Checkout Studio</title>
<meta name="description" content="minimalist e-commerce case studies">
</head><body>
<h1>Work</h1><h2>Checkout case study</h2>
<img src="a.png"><img src="b.png"><img src="c.png">
<p>Usability research, testing and iteration improved the checkout experience.</p>
</body></html>`

func newPendingJob(sourceURL string) *domain.Job {
	now := time.Now()
	return &domain.Job{
		ID:          uuid.New(),
		SubmitterID: uuid.New(),
		SourceType:  domain.SourceURL,
		SourceURL:   sourceURL,
		Status:      domain.StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func newProcessor(store JobStore, deadline time.Duration) *Processor {
	ex := extractor.New(2*time.Second, 1<<20, zap.NewNop())
	return NewProcessor(store, ex, scoring.NewEngine(), deadline, zap.NewNop())
}

func TestProcessCompletesJob(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(portfolioPage))
	}))
	defer srv.Close()

	store := newFakeStore()
	p := newProcessor(store, 5*time.Second)

	job := newPendingJob(srv.URL)
	_ = store.Create(context.Background(), job)
	claimed, _ := store.ClaimNext(context.Background())

	if err := p.Process(claimed); err != nil {
		t.Fatalf("Process: %v", err)
	}

	if st, _ := store.status(job.ID); st != domain.StatusCompleted {
		t.Fatalf("status = %s, want completed", st)
	}
	res, err := store.GetResult(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("GetResult: %v", err)
	}
	if res.OverallScore < 0 || res.OverallScore > 100 {
		t.Errorf("overall score %d out of range", res.OverallScore)
	}
	if !strings.Contains(strings.Join(res.Strengths, " "), "minimalist") {
		t.Errorf("critique should reference the page's own vocabulary, got %v", res.Strengths)
	}

	want := []domain.Status{domain.StatusPending, domain.StatusProcessing, domain.StatusCompleted}
	got := store.transitionsFor(job.ID)
	if len(got) != len(want) {
		t.Fatalf("transitions = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("transitions = %v, want %v", got, want)
		}
	}
}

func TestProcessFetchFailureFinalizesFailed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	store := newFakeStore()
	p := newProcessor(store, 5*time.Second)

	job := newPendingJob(srv.URL)
	_ = store.Create(context.Background(), job)
	claimed, _ := store.ClaimNext(context.Background())

	if err := p.Process(claimed); err == nil {
		t.Fatal("expected an error for a failing fetch")
	}

	got, _ := store.Get(context.Background(), job.ID)
	if got.Status != domain.StatusFailed {
		t.Fatalf("status = %s, want failed", got.Status)
	}
	if got.FailureReason != domain.ReasonFetchFailed {
		t.Errorf("failure reason = %q, want %q", got.FailureReason, domain.ReasonFetchFailed)
	}
	if got.RetryCount != 1 {
		t.Errorf("retry count = %d, want 1", got.RetryCount)
	}
}

func TestProcessDeadlineFinalizesTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
	}))
	defer srv.Close()

	store := newFakeStore()
	p := newProcessor(store, 30*time.Millisecond)

	job := newPendingJob(srv.URL)
	_ = store.Create(context.Background(), job)
	claimed, _ := store.ClaimNext(context.Background())

	_ = p.Process(claimed)

	got, _ := store.Get(context.Background(), job.ID)
	if got.Status != domain.StatusFailed {
		t.Fatalf("status = %s, want failed", got.Status)
	}
	if got.FailureReason != domain.ReasonTimeout {
		t.Errorf("failure reason = %q, want %q", got.FailureReason, domain.ReasonTimeout)
	}
}

// deadlineStore honours the worker context inside Complete the way the
// pgx-backed repository does: once the deadline has passed, the commit
// cannot happen on that context.
type deadlineStore struct {
	*fakeStore
}

func (s *deadlineStore) Complete(ctx context.Context, id uuid.UUID, res *domain.AnalysisResult) error {
	<-ctx.Done()
	return ctx.Err()
}

func TestProcessDeadlineAfterExtractionStillFinalizes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(portfolioPage))
	}))
	defer srv.Close()

	store := &deadlineStore{fakeStore: newFakeStore()}
	p := newProcessor(store, 50*time.Millisecond)

	job := newPendingJob(srv.URL)
	_ = store.Create(context.Background(), job)
	claimed, _ := store.ClaimNext(context.Background())

	_ = p.Process(claimed)

	got, _ := store.Get(context.Background(), job.ID)
	if got.Status != domain.StatusFailed {
		t.Fatalf("status = %s, want failed (a job must never sit in processing after its worker returns)", got.Status)
	}
	if got.FailureReason != domain.ReasonTimeout {
		t.Errorf("failure reason = %q, want %q", got.FailureReason, domain.ReasonTimeout)
	}
}

func TestProcessAfterDeleteIsNoOp(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(portfolioPage))
	}))
	defer srv.Close()

	store := newFakeStore()
	p := newProcessor(store, 5*time.Second)

	job := newPendingJob(srv.URL)
	_ = store.Create(context.Background(), job)
	claimed, _ := store.ClaimNext(context.Background())

	// Caller deletes while the worker is active.
	_ = store.Delete(context.Background(), job.ID, job.SubmitterID)

	if err := p.Process(claimed); err != nil {
		t.Fatalf("worker racing a delete must not error: %v", err)
	}
	if _, err := store.GetResult(context.Background(), job.ID); err != domain.ErrNotFound {
		t.Fatalf("results for a deleted job must read not-found, got %v", err)
	}
}

func TestConcurrentClaimsAreExclusive(t *testing.T) {
	store := newFakeStore()
	const jobs = 20
	for i := 0; i < jobs; i++ {
		_ = store.Create(context.Background(), newPendingJob("https://example.test"))
	}

	claimedIDs := make(chan uuid.UUID, jobs*4)
	done := make(chan struct{})
	for w := 0; w < 8; w++ {
		go func() {
			defer func() { done <- struct{}{} }()
			for {
				j, _ := store.ClaimNext(context.Background())
				if j == nil {
					return
				}
				claimedIDs <- j.ID
			}
		}()
	}
	for w := 0; w < 8; w++ {
		<-done
	}
	close(claimedIDs)

	seen := map[uuid.UUID]bool{}
	for id := range claimedIDs {
		if seen[id] {
			t.Fatalf("job %s claimed by more than one worker", id)
		}
		seen[id] = true
	}
	if len(seen) != jobs {
		t.Fatalf("claimed %d jobs, want %d", len(seen), jobs)
	}
}

func TestDispatcherProcessesSubmittedJobs(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(portfolioPage))
	}))
	defer srv.Close()

	store := newFakeStore()
	p := newProcessor(store, 5*time.Second)
	d := NewDispatcher(store, p, 50*time.Millisecond, 4, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go d.Run(ctx)

	ids := make([]uuid.UUID, 0, 5)
	for i := 0; i < 5; i++ {
		job := newPendingJob(srv.URL)
		ids = append(ids, job.ID)
		_ = store.Create(context.Background(), job)
	}
	d.Wake()

	deadline := time.After(3 * time.Second)
	for {
		doneCount := 0
		for _, id := range ids {
			if st, ok := store.status(id); ok && st == domain.StatusCompleted {
				doneCount++
			}
		}
		if doneCount == len(ids) {
			return
		}
		select {
		case <-deadline:
			t.Fatalf("only %d/%d jobs completed before deadline", doneCount, len(ids))
		case <-time.After(20 * time.Millisecond):
		}
	}
}

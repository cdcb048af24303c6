package ws

import (
	"context"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"portlens/internal/domain"
)

// feedStore serves a fixed, deliberately large snapshot. Only the list read
// matters to the feed; the rest of the store contract is inert here.
type feedStore struct {
	jobs []domain.Job
}

func (s *feedStore) ListBySubmitter(_ context.Context, _ uuid.UUID) ([]domain.Job, error) {
	return s.jobs, nil
}

func (s *feedStore) Create(context.Context, *domain.Job) error { return nil }
func (s *feedStore) Get(context.Context, uuid.UUID) (*domain.Job, error) {
	return nil, domain.ErrNotFound
}
func (s *feedStore) Delete(context.Context, uuid.UUID, uuid.UUID) error { return nil }
func (s *feedStore) ClaimNext(context.Context) (*domain.Job, error)     { return nil, nil }
func (s *feedStore) Complete(context.Context, uuid.UUID, *domain.AnalysisResult) error {
	return nil
}
func (s *feedStore) Fail(context.Context, uuid.UUID, string) error    { return nil }
func (s *feedStore) Retry(context.Context, uuid.UUID) (bool, error)   { return false, nil }
func (s *feedStore) GetResult(context.Context, uuid.UUID) (*domain.AnalysisResult, error) {
	return nil, domain.ErrNotFound
}
func (s *feedStore) SaveCompleted(context.Context, *domain.Job, *domain.AnalysisResult) error {
	return nil
}
func (s *feedStore) RequeueStale(context.Context, time.Time, int) (int64, error) { return 0, nil }
func (s *feedStore) FailStale(context.Context, time.Time, int) (int64, error)    { return 0, nil }

func largeSnapshot(n int) []domain.Job {
	padding := strings.Repeat("portfolio snapshot payload ", 40)
	jobs := make([]domain.Job, n)
	for i := range jobs {
		jobs[i] = domain.Job{
			ID:     uuid.New(),
			Title:  padding,
			Status: domain.StatusCompleted,
		}
	}
	return jobs
}

// Frames on one connection must serialize even when many pipeline workers
// finalize at once and every broadcast overlaps the connect-time snapshot.
func TestBroadcastSerializesWritesPerConnection(t *testing.T) {
	m := NewManager(&feedStore{jobs: largeSnapshot(200)}, zap.NewNop())
	srv := httptest.NewServer(m)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "?user_id=" + uuid.NewString()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	var wg sync.WaitGroup
	for g := 0; g < 10; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 20; i++ {
				m.Broadcast()
			}
		}()
	}

	received := 0
	for {
		_ = conn.SetReadDeadline(time.Now().Add(500 * time.Millisecond))
		var msg struct {
			Jobs []domain.Job `json:"jobs"`
		}
		if err := conn.ReadJSON(&msg); err != nil {
			break
		}
		if len(msg.Jobs) != 200 {
			t.Fatalf("snapshot frame corrupted: %d jobs, want 200", len(msg.Jobs))
		}
		received++
	}
	wg.Wait()

	// The connect-time snapshot alone guarantees at least one frame.
	if received == 0 {
		t.Fatal("no snapshot frames received")
	}
}

func TestServeHTTPRequiresSubmitterReference(t *testing.T) {
	m := NewManager(&feedStore{}, zap.NewNop())
	srv := httptest.NewServer(m)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	if _, _, err := websocket.DefaultDialer.Dial(url, nil); err == nil {
		t.Fatal("a connection without user_id must be rejected")
	}
}

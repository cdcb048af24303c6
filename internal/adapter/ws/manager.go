package ws

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"portlens/internal/usecase"
)

// client is one connected feed subscriber. The websocket protocol allows a
// single writer at a time, so every write to conn goes through writeMu:
// overlapping broadcasts, or a broadcast racing the connect-time snapshot,
// must serialize instead of corrupting the connection.
type client struct {
	conn      *websocket.Conn
	submitter uuid.UUID
	writeMu   sync.Mutex
}

func (c *client) writeJSON(v interface{}) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteJSON(v)
}

// Manager pushes job-list snapshots to connected clients whenever the
// pipeline finalizes a transition. Observation only - nothing on this path
// can mutate a job.
type Manager struct {
	store     usecase.JobStore
	logger    *zap.Logger
	upgrader  websocket.Upgrader
	clients   map[*client]struct{}
	clientsMu sync.Mutex
}

func NewManager(store usecase.JobStore, logger *zap.Logger) *Manager {
	return &Manager{
		store:  store,
		logger: logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		clients: make(map[*client]struct{}),
	}
}

// ServeHTTP upgrades the connection and registers the client. The submitter
// reference comes from the user_id query parameter; the identity layer that
// vouches for it lives elsewhere.
func (m *Manager) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	submitter, err := uuid.Parse(r.URL.Query().Get("user_id"))
	if err != nil {
		http.Error(w, "user_id query parameter required", http.StatusBadRequest)
		return
	}

	conn, err := m.upgrader.Upgrade(w, r, nil)
	if err != nil {
		m.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	c := &client{conn: conn, submitter: submitter}
	m.clientsMu.Lock()
	m.clients[c] = struct{}{}
	m.clientsMu.Unlock()

	m.sendSnapshot(c)

	go func() {
		defer func() {
			m.clientsMu.Lock()
			delete(m.clients, c)
			m.clientsMu.Unlock()
			conn.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

// Broadcast refreshes every connected client. Wired as the processor and
// sweeper update callback.
func (m *Manager) Broadcast() {
	m.clientsMu.Lock()
	defer m.clientsMu.Unlock()
	for c := range m.clients {
		go m.sendSnapshot(c)
	}
}

func (m *Manager) sendSnapshot(c *client) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	jobs, err := m.store.ListBySubmitter(ctx, c.submitter)
	if err != nil {
		m.logger.Warn("snapshot query failed", zap.Error(err))
		return
	}
	if err := c.writeJSON(map[string]interface{}{"jobs": jobs}); err != nil {
		m.logger.Debug("websocket write failed", zap.Error(err))
	}
}

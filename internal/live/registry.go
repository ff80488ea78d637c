// Package live streams a session's running timer over a websocket and
// accepts pause, resume and complete commands from the client.
package live

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/ashureev/confido/internal/domain"
	"github.com/ashureev/confido/internal/session"
)

// conn is one live connection and the view it drives.
type conn struct {
	ws   *websocket.Conn
	view *session.View
}

// Registry tracks the live connection for each user and session. A session
// has at most one live connection; a newer one replaces the older.
type Registry struct {
	mu     sync.RWMutex
	active map[string]map[string]*conn
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		active: make(map[string]map[string]*conn),
	}
}

// View returns the live view for a user's session, or nil.
func (m *Registry) View(userID, sessionID string) *session.View {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if c, ok := m.active[userID][sessionID]; ok {
		return c.view
	}
	return nil
}

// Live reports whether a user's session has an open connection. It matches
// session.LiveCheck.
func (m *Registry) Live(userID, sessionID string) bool {
	return m.View(userID, sessionID) != nil
}

func (m *Registry) register(userID, sessionID string, c *conn) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.active[userID]; !exists {
		m.active[userID] = make(map[string]*conn)
	}
	if existing, exists := m.active[userID][sessionID]; exists && existing != c {
		_ = existing.ws.Close(websocket.StatusNormalClosure, "session replaced")
	}
	m.active[userID][sessionID] = c
	slog.Info("live session registered", "user_id", userID, "session_id", sessionID)
}

func (m *Registry) unregister(userID, sessionID string, c *conn) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sessions, ok := m.active[userID]
	if !ok {
		return
	}
	if current, exists := sessions[sessionID]; exists && current == c {
		delete(sessions, sessionID)
		if len(sessions) == 0 {
			delete(m.active, userID)
		}
		slog.Info("live session unregistered", "user_id", userID, "session_id", sessionID)
	}
}

// OnSessionCompleted closes the live connection of a session completed
// through another path, such as the REST API or the reconciler. It matches
// session.CompletionHook.
func (m *Registry) OnSessionCompleted(ctx context.Context, s domain.Session) {
	m.mu.Lock()
	c, ok := m.active[s.OwnerID][s.ID]
	if ok && c.view.Status() == domain.StatusCompleted {
		// The connection is completing the session itself.
		ok = false
	}
	if ok {
		delete(m.active[s.OwnerID], s.ID)
		if len(m.active[s.OwnerID]) == 0 {
			delete(m.active, s.OwnerID)
		}
	}
	m.mu.Unlock()
	if !ok {
		return
	}

	writeCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := wsjson.Write(writeCtx, c.ws, completedMessage(&s)); err != nil {
		slog.Debug("failed to notify live session", "session_id", s.ID, "error", err)
	}
	_ = c.ws.Close(websocket.StatusNormalClosure, "session completed")
	slog.Info("live session closed after completion", "user_id", s.OwnerID, "session_id", s.ID)
}

package app

import (
	"log/slog"
	"sync"

	"github.com/readalong/readalong/internal/reading"
)

// SessionManager tracks the live reading session per learner. A learner gets
// one session at a time; connecting again closes the previous controller so
// a stale tab cannot keep speaking or holding the microphone stream.
type SessionManager struct {
	mu     sync.Mutex
	active map[string]*reading.Controller
	log    *slog.Logger
}

// NewSessionManager returns an empty manager.
func NewSessionManager() *SessionManager {
	return &SessionManager{
		active: make(map[string]*reading.Controller),
		log:    slog.Default().With("component", "sessions"),
	}
}

// Replace registers ctrl as the learner's session, closing any previous one.
// The returned release function removes the registration; calling it after a
// newer session has replaced this one is a no-op.
func (m *SessionManager) Replace(learnerID string, ctrl *reading.Controller) (release func()) {
	m.mu.Lock()
	prev := m.active[learnerID]
	m.active[learnerID] = ctrl
	m.mu.Unlock()

	if prev != nil {
		m.log.Info("replacing live session", "learner", learnerID)
		prev.Close()
	}

	return func() {
		m.mu.Lock()
		if m.active[learnerID] == ctrl {
			delete(m.active, learnerID)
		}
		m.mu.Unlock()
	}
}

// Len reports how many sessions are live.
func (m *SessionManager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.active)
}

// CloseAll closes every live session. Called during shutdown.
func (m *SessionManager) CloseAll() {
	m.mu.Lock()
	ctrls := make([]*reading.Controller, 0, len(m.active))
	for _, c := range m.active {
		ctrls = append(ctrls, c)
	}
	m.active = make(map[string]*reading.Controller)
	m.mu.Unlock()

	for _, c := range ctrls {
		c.Close()
	}
}

package stream

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// cleanupInterval is how often idle sessions are checked for eviction.
const cleanupInterval = 30 * time.Second

// Manager tracks all active live sessions for monitoring and evicts
// sessions whose transport has gone quiet past the configured timeout.
type Manager struct {
	sessions map[string]*Session
	logger   *slog.Logger
	timeout  time.Duration

	ctx     context.Context
	cancel  context.CancelFunc
	cleanup chan struct{}

	mu sync.RWMutex
}

// NewManager creates a session manager and starts its cleanup routine.
func NewManager(logger *slog.Logger, timeout time.Duration) *Manager {
	ctx, cancel := context.WithCancel(context.Background())

	m := &Manager{
		sessions: make(map[string]*Session),
		logger:   logger,
		timeout:  timeout,
		ctx:      ctx,
		cancel:   cancel,
		cleanup:  make(chan struct{}),
	}

	go m.startCleanupRoutine()

	return m
}

// Register adds a session to the manager.
func (m *Manager) Register(s *Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = s
}

// Remove removes a session from the manager. It does not close the session;
// the owning connection handler does that.
func (m *Manager) Remove(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
}

// ActiveCount returns the number of registered sessions.
func (m *Manager) ActiveCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Infos returns a monitoring snapshot of all registered sessions.
func (m *Manager) Infos() []SessionInfo {
	m.mu.RLock()
	defer m.mu.RUnlock()

	infos := make([]SessionInfo, 0, len(m.sessions))
	for _, s := range m.sessions {
		infos = append(infos, s.GetSessionInfo())
	}
	return infos
}

// Stop stops the cleanup routine and closes the transports of all
// remaining sessions.
func (m *Manager) Stop() {
	m.cancel()
	<-m.cleanup

	m.mu.RLock()
	remaining := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		remaining = append(remaining, s)
	}
	m.mu.RUnlock()

	for _, s := range remaining {
		s.Abort()
		s.CloseTransport()
	}

	m.logger.Info("Session manager stopped",
		slog.Int("remaining_sessions", len(remaining)),
	)
}

// startCleanupRoutine periodically evicts idle sessions.
func (m *Manager) startCleanupRoutine() {
	defer close(m.cleanup)

	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.ctx.Done():
			return
		case <-ticker.C:
			m.evictIdleSessions()
		}
	}
}

// evictIdleSessions aborts and closes the transport of sessions with no
// recent activity. Aborting first releases a read loop blocked on a full
// chunk queue; the transport close then unwinds the connection handler,
// which closes and unregisters the session.
func (m *Manager) evictIdleSessions() {
	if m.timeout <= 0 {
		return
	}

	now := time.Now()

	m.mu.RLock()
	var idle []*Session
	for _, s := range m.sessions {
		if now.Sub(s.LastActivity()) > m.timeout {
			idle = append(idle, s)
		}
	}
	m.mu.RUnlock()

	for _, s := range idle {
		m.logger.Info("Evicting idle live session",
			slog.String("session_id", s.ID),
			slog.Duration("idle", now.Sub(s.LastActivity())),
		)
		s.Abort()
		s.CloseTransport()
	}
}

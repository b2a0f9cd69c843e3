// FILE: logpulse/src/internal/session/session.go
package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Viewer kinds
const (
	KindRealtime = "realtime"
	KindTail     = "tail"
)

// Session tracks one connected viewer.
type Session struct {
	ID           string
	Kind         string
	RemoteAddr   string
	Username     string
	CreatedAt    time.Time
	LastActivity time.Time
}

// Manager is the registry of connected viewers with idle expiry.
type Manager struct {
	sessions map[string]*Session
	mu       sync.RWMutex

	maxIdleTime   time.Duration
	cleanupTicker *time.Ticker
	done          chan struct{}
	stopOnce      sync.Once

	// Expiry callbacks by viewer kind
	expiryCallbacks map[string]func(sessionID, remoteAddr string)
	callbacksMu     sync.RWMutex
}

// NewManager creates a manager expiring sessions idle for maxIdleTime.
func NewManager(maxIdleTime time.Duration) *Manager {
	if maxIdleTime <= 0 {
		maxIdleTime = 30 * time.Minute
	}

	m := &Manager{
		sessions:        make(map[string]*Session),
		maxIdleTime:     maxIdleTime,
		done:            make(chan struct{}),
		expiryCallbacks: make(map[string]func(sessionID, remoteAddr string)),
	}

	m.startCleanup(cleanupInterval(maxIdleTime))
	return m
}

func cleanupInterval(maxIdle time.Duration) time.Duration {
	interval := maxIdle / 2
	if interval > 5*time.Minute {
		interval = 5 * time.Minute
	}
	if interval < time.Second {
		interval = time.Second
	}
	return interval
}

// Create registers a new viewer session.
func (m *Manager) Create(kind, remoteAddr, username string) *Session {
	now := time.Now()
	s := &Session{
		ID:           generateSessionID(),
		Kind:         kind,
		RemoteAddr:   remoteAddr,
		Username:     username,
		CreatedAt:    now,
		LastActivity: now,
	}

	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()
	return s
}

// Get returns a copy of the session with the given ID.
func (m *Manager) Get(sessionID string) (Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return Session{}, false
	}
	return *s, true
}

func (m *Manager) Remove(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, sessionID)
}

// Touch refreshes the activity timestamp.
func (m *Manager) Touch(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.sessions[sessionID]; ok {
		s.LastActivity = time.Now()
	}
}

// IsActive reports whether a session exists and has not been idle too long.
func (m *Manager) IsActive(sessionID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if s, ok := m.sessions[sessionID]; ok {
		return time.Since(s.LastActivity) < m.maxIdleTime
	}
	return false
}

// Count returns the number of sessions of kind, or all sessions when kind is empty.
func (m *Manager) Count(kind string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if kind == "" {
		return len(m.sessions)
	}
	n := 0
	for _, s := range m.sessions {
		if s.Kind == kind {
			n++
		}
	}
	return n
}

func (m *Manager) GetStats() map[string]any {
	m.mu.RLock()
	defer m.mu.RUnlock()

	byKind := make(map[string]int)
	var oldest time.Time
	for _, s := range m.sessions {
		byKind[s.Kind]++
		if oldest.IsZero() || s.CreatedAt.Before(oldest) {
			oldest = s.CreatedAt
		}
	}

	stats := map[string]any{
		"total_sessions":   len(m.sessions),
		"sessions_by_kind": byKind,
		"max_idle_time":    m.maxIdleTime.String(),
	}
	if !oldest.IsZero() {
		stats["oldest_session_age"] = time.Since(oldest).String()
	}
	return stats
}

// OnExpire registers the callback run when a session of kind expires.
func (m *Manager) OnExpire(kind string, callback func(sessionID, remoteAddr string)) {
	m.callbacksMu.Lock()
	defer m.callbacksMu.Unlock()
	m.expiryCallbacks[kind] = callback
}

// Stop ends the cleanup goroutine.
func (m *Manager) Stop() {
	m.stopOnce.Do(func() {
		close(m.done)
		if m.cleanupTicker != nil {
			m.cleanupTicker.Stop()
		}
	})
}

func (m *Manager) startCleanup(interval time.Duration) {
	m.cleanupTicker = time.NewTicker(interval)

	go func() {
		for {
			select {
			case <-m.cleanupTicker.C:
				m.expireIdle(time.Now())
			case <-m.done:
				return
			}
		}
	}()
}

// expireIdle removes idle sessions and notifies their owners outside the lock.
func (m *Manager) expireIdle(now time.Time) []string {
	m.mu.Lock()
	var expired []*Session
	for id, s := range m.sessions {
		if now.Sub(s.LastActivity) > m.maxIdleTime {
			expired = append(expired, s)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	ids := make([]string, 0, len(expired))
	m.callbacksMu.RLock()
	defer m.callbacksMu.RUnlock()
	for _, s := range expired {
		ids = append(ids, s.ID)
		if cb, ok := m.expiryCallbacks[s.Kind]; ok {
			go cb(s.ID, s.RemoteAddr)
		}
	}
	return ids
}

// Random v4 ids, exposed in client URLs
func generateSessionID() string {
	return uuid.NewString()
}

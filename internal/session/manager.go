// Package session keeps one front-end App per browser.
package session

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/datachat/console/internal/logger"
	"github.com/datachat/console/internal/shell"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// DefaultMaxSessions limits concurrent sessions to bound memory use.
const DefaultMaxSessions = 100

// Session is one browser's control flow. Its App is only touched under mu.
type Session struct {
	ID string

	mu           sync.Mutex
	app          *shell.App
	lastAccessed time.Time
}

// Do runs fn with exclusive access to the session's App.
func (s *Session) Do(fn func(app *shell.App)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.app)
}

func (s *Session) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.app.Close()
}

// Manager handles active browser sessions.
type Manager struct {
	sessions    map[string]*Session
	mu          sync.RWMutex
	newApp      func() *shell.App
	maxSessions int
	now         func() time.Time
	log         *logrus.Entry
}

// NewManager creates a session manager. newApp builds the App of a new session.
func NewManager(newApp func() *shell.App, maxSessions int) *Manager {
	if maxSessions <= 0 {
		maxSessions = DefaultMaxSessions
	}
	return &Manager{
		sessions:    make(map[string]*Session),
		newApp:      newApp,
		maxSessions: maxSessions,
		now:         time.Now,
		log:         logger.WithFields(logrus.Fields{"component": "session"}),
	}
}

// Resolve returns the session with id, creating a new one when id is empty
// or unknown. created reports whether a new session was made.
func (m *Manager) Resolve(id string) (sess *Session, created bool) {
	if s, ok := m.Get(id); ok {
		return s, false
	}
	return m.Create(), true
}

// Get returns a session by ID and marks it as used.
func (m *Manager) Get(id string) (*Session, bool) {
	if id == "" {
		return nil, false
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, false
	}
	s.lastAccessed = m.now()
	return s, true
}

// Create starts a new session, evicting the least recently used one when
// the manager is full.
func (m *Manager) Create() *Session {
	s := &Session{
		ID:  uuid.New().String(),
		app: m.newApp(),
	}

	var evicted []*Session
	m.mu.Lock()
	for len(m.sessions) >= m.maxSessions {
		oldest := m.oldestLocked()
		if oldest == nil {
			break
		}
		delete(m.sessions, oldest.ID)
		evicted = append(evicted, oldest)
	}
	s.lastAccessed = m.now()
	m.sessions[s.ID] = s
	m.mu.Unlock()

	for _, e := range evicted {
		e.close()
		m.log.WithField("session", shortID(e.ID)).Info("evicted least recently used session")
	}
	m.log.WithField("session", shortID(s.ID)).Debug("session created")
	return s
}

func (m *Manager) oldestLocked() *Session {
	var oldest *Session
	for _, s := range m.sessions {
		if oldest == nil || s.lastAccessed.Before(oldest.lastAccessed) {
			oldest = s
		}
	}
	return oldest
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// IDs returns live session ids, most recently used first.
func (m *Manager) IDs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	list := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		list = append(list, s)
	}
	// lastAccessed is written under m.mu, so sort before releasing it.
	sort.Slice(list, func(i, j int) bool {
		return list[i].lastAccessed.After(list[j].lastAccessed)
	})
	ids := make([]string, len(list))
	for i, s := range list {
		ids[i] = s.ID
	}
	return ids
}

// CleanupOldSessions removes sessions idle for longer than maxAge and
// returns how many were removed.
func (m *Manager) CleanupOldSessions(maxAge time.Duration) int {
	cutoff := m.now().Add(-maxAge)

	var expired []*Session
	m.mu.Lock()
	for id, s := range m.sessions {
		if s.lastAccessed.Before(cutoff) {
			expired = append(expired, s)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	for _, s := range expired {
		s.close()
		m.log.WithField("session", shortID(s.ID)).Debug("idle session expired")
	}
	return len(expired)
}

// RunCleanup expires idle sessions every interval until ctx is done.
func (m *Manager) RunCleanup(ctx context.Context, interval, maxAge time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := m.CleanupOldSessions(maxAge); n > 0 {
				m.log.WithField("expired", n).Info("cleaned up idle sessions")
			}
		}
	}
}

// Close ends every session.
func (m *Manager) Close() {
	m.mu.Lock()
	all := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	for _, s := range all {
		s.close()
	}
}

// shortID truncates an ID for logging.
func shortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}

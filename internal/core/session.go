package core

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrSessionNotFound is returned for ids the manager never issued or has
// already expired.
var ErrSessionNotFound = errors.New("session not found")

// Session groups the screens one browser has open.
type Session struct {
	ID string

	mu       sync.Mutex
	screens  map[string]*Screen
	lastUsed time.Time
}

// Screens returns the names of the open screens, sorted.
func (s *Session) Screens() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.screens))
	for name := range s.screens {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	last := s.lastUsed
	for _, sc := range s.screens {
		if t := sc.LastUsed(); t.After(last) {
			last = t
		}
	}
	return last
}

func (s *Session) close() {
	s.mu.Lock()
	screens := s.screens
	s.screens = make(map[string]*Screen)
	s.mu.Unlock()
	for _, sc := range screens {
		sc.Close()
	}
}

// screenFactory opens a screen of collection for session.
type screenFactory func(session, collection string) (*Screen, error)

// SessionManager owns every browser session and expires idle ones.
type SessionManager struct {
	idle time.Duration
	now  func() time.Time
	open screenFactory
	hub  *EventHub

	mu       sync.Mutex
	sessions map[string]*Session
}

func newSessionManager(idle time.Duration, now func() time.Time, hub *EventHub, open screenFactory) *SessionManager {
	return &SessionManager{
		idle:     idle,
		now:      now,
		open:     open,
		hub:      hub,
		sessions: make(map[string]*Session),
	}
}

// Start creates a session and returns its id.
func (m *SessionManager) Start() string {
	id := uuid.New().String()
	m.mu.Lock()
	m.sessions[id] = &Session{ID: id, screens: make(map[string]*Screen), lastUsed: m.now()}
	m.mu.Unlock()
	return id
}

// Get returns the session with id.
func (m *SessionManager) Get(id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return s, nil
}

// Screen returns the session's screen for collection, creating it on first
// visit.
func (m *SessionManager) Screen(sessionID, collection string) (*Screen, error) {
	sess, err := m.Get(sessionID)
	if err != nil {
		return nil, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.lastUsed = m.now()

	if sc, ok := sess.screens[collection]; ok {
		return sc, nil
	}
	sc, err := m.open(sessionID, collection)
	if err != nil {
		return nil, err
	}
	sess.screens[collection] = sc
	return sc, nil
}

// Reset discards a screen so the next visit starts with fresh column, sort
// and query state. It reports whether the screen existed.
func (m *SessionManager) Reset(sessionID, collection string) bool {
	sess, err := m.Get(sessionID)
	if err != nil {
		return false
	}
	sess.mu.Lock()
	sc, ok := sess.screens[collection]
	delete(sess.screens, collection)
	sess.mu.Unlock()
	if ok {
		sc.Close()
	}
	return ok
}

// Broadcast tells every session showing one of collections that its data
// changed. It returns the number of events delivered.
func (m *SessionManager) Broadcast(collections []string, reason EventReason) int {
	m.mu.Lock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.mu.Unlock()

	n := 0
	for _, sess := range sessions {
		sess.mu.Lock()
		var screens []*Screen
		for _, col := range collections {
			if sc, ok := sess.screens[col]; ok {
				screens = append(screens, sc)
			}
		}
		sess.mu.Unlock()

		for _, sc := range screens {
			n += m.hub.Publish(sess.ID, Event{
				Screen: sc.Collection().Name,
				Key:    sc.Key().String(),
				Reason: reason,
			})
		}
	}
	return n
}

// Expire closes sessions idle for longer than the idle timeout at now and
// returns how many were removed. Sessions with an open event stream are kept.
func (m *SessionManager) Expire(now time.Time) int {
	if m.idle <= 0 {
		return 0
	}

	m.mu.Lock()
	var expired []*Session
	for id, s := range m.sessions {
		if m.hub.Subscribers(id) > 0 {
			continue
		}
		if now.Sub(s.idleSince()) > m.idle {
			expired = append(expired, s)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	for _, s := range expired {
		s.close()
	}
	return len(expired)
}

// Len returns the number of live sessions.
func (m *SessionManager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Close closes every session.
func (m *SessionManager) Close() {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()
	for _, s := range sessions {
		s.close()
	}
}

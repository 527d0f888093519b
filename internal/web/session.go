package web

// session.go keeps per-browser view state in memory: the upload coordinator
// and the result handed from the upload view to the results view.
//
// Sessions are keyed by a random cookie value and expire after an idle
// timeout. A session whose extraction is still in flight is never expired
// or evicted. At capacity the least recently used idle session is evicted
// to make room.

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/JonMunkholm/piipreview/internal/pii"
	"github.com/google/uuid"
)

// ErrTooManySessions is returned by Create when every session slot is held
// by an in-flight extraction.
var ErrTooManySessions = errors.New("too many active sessions")

// session is one browser's view state.
type session struct {
	id    string
	coord *pii.Coordinator

	mu     sync.Mutex
	result *pii.Response

	// lastSeen is guarded by SessionStore.mu.
	lastSeen time.Time
}

// setResult stores the response for the results view.
func (s *session) setResult(resp *pii.Response) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.result = resp
}

// Result returns the handed-off response, or nil when there is none.
func (s *session) Result() *pii.Response {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result
}

// clearResult drops the handed-off response.
func (s *session) clearResult() {
	s.setResult(nil)
}

// SessionStore holds live sessions.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[string]*session

	idle           time.Duration
	max            int
	newCoordinator func() *pii.Coordinator
	now            func() time.Time
}

// NewSessionStore creates a store. newCoordinator builds the coordinator of
// each new session.
func NewSessionStore(idle time.Duration, max int, newCoordinator func() *pii.Coordinator) *SessionStore {
	return &SessionStore{
		sessions:       make(map[string]*session),
		idle:           idle,
		max:            max,
		newCoordinator: newCoordinator,
		now:            time.Now,
	}
}

// Get returns the live session with id and marks it used. It returns nil
// for unknown or expired ids.
func (st *SessionStore) Get(id string) *session {
	if id == "" {
		return nil
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	s, ok := st.sessions[id]
	if !ok {
		return nil
	}
	now := st.now()
	if st.expired(s, now) {
		delete(st.sessions, id)
		return nil
	}
	s.lastSeen = now
	return s
}

// Create starts a new session, evicting the least recently used idle
// session when the store is full.
func (st *SessionStore) Create() (*session, error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	now := st.now()
	if st.max > 0 && len(st.sessions) >= st.max {
		st.sweepLocked(now)
	}
	if st.max > 0 && len(st.sessions) >= st.max {
		if !st.evictOldestLocked() {
			return nil, ErrTooManySessions
		}
	}

	s := &session{
		id:       uuid.NewString(),
		coord:    st.newCoordinator(),
		lastSeen: now,
	}
	st.sessions[s.id] = s
	return s, nil
}

// Len returns the number of live sessions.
func (st *SessionStore) Len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.sessions)
}

// Sweep removes expired sessions and returns how many were removed.
func (st *SessionStore) Sweep() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.sweepLocked(st.now())
}

// Run sweeps expired sessions every interval until ctx is done.
func (st *SessionStore) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			st.Sweep()
		}
	}
}

func (st *SessionStore) sweepLocked(now time.Time) int {
	removed := 0
	for id, s := range st.sessions {
		if st.expired(s, now) {
			delete(st.sessions, id)
			removed++
		}
	}
	return removed
}

func (st *SessionStore) evictOldestLocked() bool {
	var oldest *session
	for _, s := range st.sessions {
		if s.coord.Busy() {
			continue
		}
		if oldest == nil || s.lastSeen.Before(oldest.lastSeen) {
			oldest = s
		}
	}
	if oldest == nil {
		return false
	}
	delete(st.sessions, oldest.id)
	return true
}

func (st *SessionStore) expired(s *session, now time.Time) bool {
	return st.idle > 0 && now.Sub(s.lastSeen) > st.idle && !s.coord.Busy()
}

package ui

import (
	"context"
	"sync"
	"time"

	"mldash/domain/core"
	"mldash/internal/browse"
	"mldash/internal/logging"

	"github.com/sirupsen/logrus"
)

// SessionRegistry holds browsing sessions in memory. A session expires
// after ttl without requests.
type SessionRegistry struct {
	mu       sync.Mutex
	sessions map[core.SessionID]*sessionEntry
	ttl      time.Duration
	factory  func() *browse.Session
	now      func() time.Time
	log      logrus.FieldLogger
}

type sessionEntry struct {
	session  *browse.Session
	lastSeen time.Time
}

// NewSessionRegistry creates a registry building sessions with factory
func NewSessionRegistry(ttl time.Duration, factory func() *browse.Session, log logrus.FieldLogger) *SessionRegistry {
	return &SessionRegistry{
		sessions: make(map[core.SessionID]*sessionEntry),
		ttl:      ttl,
		factory:  factory,
		now:      time.Now,
		log:      logging.Component(log, "sessions"),
	}
}

// Create starts a new empty session
func (r *SessionRegistry) Create() (core.SessionID, *browse.Session) {
	id := core.NewSessionID()
	s := r.factory()

	r.mu.Lock()
	r.sessions[id] = &sessionEntry{session: s, lastSeen: r.now()}
	n := len(r.sessions)
	r.mu.Unlock()

	r.log.WithFields(logrus.Fields{"session_id": id, "sessions": n}).Info("session created")
	return id, s
}

// Lookup returns a live session and marks it as used
func (r *SessionRegistry) Lookup(id core.SessionID) (*browse.Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.sessions[id]
	if !ok {
		return nil, false
	}
	now := r.now()
	if r.expired(e, now) {
		delete(r.sessions, id)
		return nil, false
	}
	e.lastSeen = now
	return e.session, true
}

// Delete drops a session. It reports whether the session existed.
func (r *SessionRegistry) Delete(id core.SessionID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[id]; !ok {
		return false
	}
	delete(r.sessions, id)
	return true
}

// Each calls fn for every live session
func (r *SessionRegistry) Each(fn func(*browse.Session)) {
	r.mu.Lock()
	live := make([]*browse.Session, 0, len(r.sessions))
	now := r.now()
	for _, e := range r.sessions {
		if !r.expired(e, now) {
			live = append(live, e.session)
		}
	}
	r.mu.Unlock()

	for _, s := range live {
		fn(s)
	}
}

// Sweep removes expired sessions and returns how many it removed
func (r *SessionRegistry) Sweep() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	removed := 0
	for id, e := range r.sessions {
		if r.expired(e, now) {
			delete(r.sessions, id)
			removed++
		}
	}
	if removed > 0 {
		r.log.WithFields(logrus.Fields{"removed": removed, "sessions": len(r.sessions)}).Info("expired sessions removed")
	}
	return removed
}

// Len returns the number of tracked sessions, expired or not
func (r *SessionRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Run sweeps every interval until ctx is done
func (r *SessionRegistry) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Sweep()
		}
	}
}

func (r *SessionRegistry) expired(e *sessionEntry, now time.Time) bool {
	return r.ttl > 0 && now.Sub(e.lastSeen) > r.ttl
}

// Package session holds per-user state between API calls: the last
// fetched headline set and that user's model call budget. One
// session's quota never affects another's.
package session

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/brewbaked/insights/internal/headline"
	"github.com/brewbaked/insights/internal/quota"
)

const defaultTTL = 12 * time.Hour

// Session is one dashboard user's working state.
type Session struct {
	ID   string
	Gate *quota.Gate

	mu         sync.Mutex
	headlines  []headline.Headline
	exactMatch bool
	fetchedAt  time.Time
}

// SetHeadlines replaces the session's headline set. Each fetch
// overwrites the previous one wholesale.
func (s *Session) SetHeadlines(hs []headline.Headline, exact bool, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.headlines = hs
	s.exactMatch = exact
	s.fetchedAt = at
}

// Headlines returns the current set and whether it was an exact focus
// match. A zero-length set means nothing has been fetched yet or the
// last fetch found nothing.
func (s *Session) Headlines() ([]headline.Headline, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.headlines, s.exactMatch
}

// FetchedAt reports when the current headline set was fetched.
func (s *Session) FetchedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fetchedAt
}

// Manager tracks live sessions and expires idle ones.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*entry

	ttl      time.Duration
	dailyCap int
	cooldown time.Duration
	now      func() time.Time
}

type entry struct {
	session  *Session
	lastSeen time.Time
}

// NewManager builds a manager whose sessions carry gates with the
// given budget settings. Idle sessions are swept in the background.
func NewManager(ttl time.Duration, dailyCap int, cooldown time.Duration) *Manager {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	m := &Manager{
		sessions: make(map[string]*entry),
		ttl:      ttl,
		dailyCap: dailyCap,
		cooldown: cooldown,
		now:      time.Now,
	}

	go m.sweepLoop()

	return m
}

// Get returns the session for id, minting a fresh one when id is
// empty or no longer known. Callers hand the returned ID back to the
// client so the next request finds the same state.
func (m *Manager) Get(id string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()

	if id != "" {
		if e, ok := m.sessions[id]; ok {
			e.lastSeen = now
			return e.session
		}
	}

	s := &Session{
		ID:   uuid.NewString(),
		Gate: quota.NewGate(m.dailyCap, m.cooldown),
	}
	m.sessions[s.ID] = &entry{session: s, lastSeen: now}
	return s
}

// Count reports how many sessions are live.
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

func (m *Manager) sweepLoop() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		m.sweep()
	}
}

func (m *Manager) sweep() {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := m.now().Add(-m.ttl)
	for id, e := range m.sessions {
		if e.lastSeen.Before(cutoff) {
			delete(m.sessions, id)
		}
	}
}

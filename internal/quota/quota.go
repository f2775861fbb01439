// Package quota enforces the daily analysis budget and the cooldown
// between model calls.
package quota

import (
	"fmt"
	"math"
	"sync"
	"time"
)

const (
	defaultDailyLimit = 20
	defaultCooldown   = 30 * time.Second
)

// State is a read-only view of a gate for the allowance endpoint.
type State struct {
	CallsToday      int  `json:"calls_today"`
	Limit           int  `json:"limit"`
	Remaining       int  `json:"remaining"`
	CooldownSeconds int  `json:"cooldown_seconds"`
	CooldownActive  bool `json:"cooldown_active"`
}

// Gate tracks model usage for one session. The day budget resets on
// calendar date change in local time; the cooldown runs from the last
// call regardless of date.
type Gate struct {
	mu         sync.Mutex
	callsToday int
	lastCall   time.Time
	day        string

	limit    int
	cooldown time.Duration
	now      func() time.Time
}

// NewGate builds a gate; non-positive values fall back to defaults.
func NewGate(limit int, cooldown time.Duration) *Gate {
	if limit <= 0 {
		limit = defaultDailyLimit
	}
	if cooldown <= 0 {
		cooldown = defaultCooldown
	}
	return &Gate{
		limit:    limit,
		cooldown: cooldown,
		now:      time.Now,
	}
}

// Allow reports whether a model call may proceed right now. A date
// change rolls the day budget over; beyond that it never records
// usage, so callers that go ahead must follow up with Use.
func (g *Gate) Allow() (bool, string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	g.rollover(now)

	if g.callsToday >= g.limit {
		return false, "quota exhausted"
	}

	if !g.lastCall.IsZero() {
		if wait := g.cooldown - now.Sub(g.lastCall); wait > 0 {
			secs := int(math.Ceil(wait.Seconds()))
			return false, fmt.Sprintf("cooldown remaining: %d seconds", secs)
		}
	}

	return true, ""
}

// Use records one model call. Called exactly once per analysis that
// actually reached a model, never once per allowance check.
func (g *Gate) Use() {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	g.rollover(now)
	g.callsToday++
	g.lastCall = now
}

// Snapshot returns the current usage view.
func (g *Gate) Snapshot() State {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	g.rollover(now)

	remaining := g.limit - g.callsToday
	if remaining < 0 {
		remaining = 0
	}

	st := State{
		CallsToday:      g.callsToday,
		Limit:           g.limit,
		Remaining:       remaining,
		CooldownSeconds: int(g.cooldown.Seconds()),
	}
	if !g.lastCall.IsZero() && now.Sub(g.lastCall) < g.cooldown {
		st.CooldownActive = true
	}
	return st
}

// rollover resets the day budget when the local calendar date changes.
// Callers hold g.mu.
func (g *Gate) rollover(now time.Time) {
	if d := dayOf(now); g.day != d {
		g.day = d
		g.callsToday = 0
	}
}

func dayOf(t time.Time) string {
	return t.Format("2006-01-02")
}

// Package session keeps per-conversation state that lives between messages.
package session

import (
	"sync"
	"time"
)

// State of the clear-all confirmation for one conversation.
type State int

const (
	Idle State = iota
	PendingClear
)

func (s State) String() string {
	if s == PendingClear {
		return "pending_clear"
	}
	return "idle"
}

type pending struct {
	count int64
	at    time.Time
}

// ClearGuard is the two-step confirmation in front of clear-all. Each group
// moves independently between Idle and PendingClear. State is in memory
// only and is lost on restart.
type ClearGuard struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	pending map[int64]pending
}

// NewClearGuard returns a guard whose pending requests expire after ttl.
// A ttl of zero keeps them until the next message.
func NewClearGuard(ttl time.Duration) *ClearGuard {
	return &ClearGuard{
		ttl:     ttl,
		now:     time.Now,
		pending: make(map[int64]pending),
	}
}

// Request moves the group to PendingClear, remembering how many rows the
// user was warned about.
func (g *ClearGuard) Request(groupID, count int64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.pending[groupID] = pending{count: count, at: g.now()}
}

// Confirm consumes a pending request. It reports false when the group was
// Idle, in which case nothing must be cleared.
func (g *ClearGuard) Confirm(groupID int64) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.lookup(groupID)
	delete(g.pending, groupID)
	return ok
}

// Cancel returns the group to Idle. Any message other than a confirmation
// cancels a pending request. It reports whether one was pending.
func (g *ClearGuard) Cancel(groupID int64) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.lookup(groupID)
	delete(g.pending, groupID)
	return ok
}

func (g *ClearGuard) State(groupID int64) State {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.lookup(groupID); ok {
		return PendingClear
	}
	return Idle
}

// PendingCount is the row count announced with the pending request.
func (g *ClearGuard) PendingCount(groupID int64) (int64, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	p, ok := g.lookup(groupID)
	return p.count, ok
}

// lookup expects g.mu held.
func (g *ClearGuard) lookup(groupID int64) (pending, bool) {
	p, ok := g.pending[groupID]
	if !ok {
		return pending{}, false
	}
	if g.ttl > 0 && g.now().Sub(p.at) > g.ttl {
		delete(g.pending, groupID)
		return pending{}, false
	}
	return p, true
}

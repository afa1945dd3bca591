package identity

import (
	"context"
	"sync"
)

// Ticket identifies one issued validation.
type Ticket struct {
	gen uint64
	ctx context.Context
}

// Context is cancelled once the ticket is superseded or its tracker is torn
// down.
func (t Ticket) Context() context.Context { return t.ctx }

// Generation returns the ticket's sequence number.
func (t Ticket) Generation() uint64 { return t.gen }

// Tracker orders validations issued for one target (a mounted view). Only the
// most recently issued ticket may apply its result, and nothing applies after
// Teardown.
type Tracker struct {
	mu     sync.Mutex
	gen    uint64
	cancel context.CancelFunc
	closed bool
}

// NewTracker returns a tracker with no outstanding tickets.
func NewTracker() *Tracker {
	return &Tracker{}
}

// Begin issues a new ticket derived from parent and cancels the previous one.
// After Teardown the returned ticket is already cancelled and can never apply.
func (t *Tracker) Begin(parent context.Context) Ticket {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.cancel != nil {
		t.cancel()
		t.cancel = nil
	}
	t.gen++

	ctx, cancel := context.WithCancel(parent)
	if t.closed {
		cancel()
	} else {
		t.cancel = cancel
	}
	return Ticket{gen: t.gen, ctx: ctx}
}

// Apply runs fn if ticket is still current and reports whether it ran. fn is
// called with the tracker locked and must not call back into the tracker.
func (t *Tracker) Apply(ticket Ticket, fn func()) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed || ticket.gen != t.gen {
		return false
	}
	fn()
	return true
}

// Current reports whether ticket is the latest one and the target is live.
func (t *Tracker) Current(ticket Ticket) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return !t.closed && ticket.gen == t.gen
}

// Teardown drops every outstanding ticket.
func (t *Tracker) Teardown() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.closed = true
	t.gen++
	if t.cancel != nil {
		t.cancel()
		t.cancel = nil
	}
}

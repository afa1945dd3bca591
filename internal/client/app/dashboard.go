package app

import (
	"context"
	"sync"

	"github.com/atinyakov/sessiongate/internal/client/autherr"
	"github.com/atinyakov/sessiongate/internal/client/identity"
	"github.com/atinyakov/sessiongate/internal/models"
	"go.uber.org/zap"
)

const sessionEnded = "Session ended."

// State is the dashboard's render state.
type State int

const (
	Loading State = iota
	Ready
	Failed
)

func (s State) String() string {
	switch s {
	case Ready:
		return "ready"
	case Failed:
		return "failed"
	default:
		return "loading"
	}
}

// Snapshot is a copy of the dashboard state.
type Snapshot struct {
	State    State
	Identity *models.Identity
	Message  string
	// Kind is the failure kind when State is Failed.
	Kind autherr.Kind
	// Redirected is set when the failure already sent the user to login.
	Redirected bool
}

// Dashboard is the protected view. Each mount or refresh issues a new
// validation; only the latest one may update the view.
type Dashboard struct {
	app     *App
	tracker *identity.Tracker

	mu      sync.Mutex
	snap    Snapshot
	settled chan struct{}
}

func newDashboard(a *App) *Dashboard {
	return &Dashboard{
		app:     a,
		tracker: identity.NewTracker(),
		settled: make(chan struct{}),
	}
}

// Refresh re-validates the credential, superseding any validation in flight.
func (d *Dashboard) Refresh(ctx context.Context) {
	d.refresh(ctx)
}

func (d *Dashboard) refresh(ctx context.Context) {
	ticket := d.tracker.Begin(ctx)

	d.mu.Lock()
	if d.snap.State != Loading {
		d.settled = make(chan struct{})
	}
	d.snap = Snapshot{State: Loading}
	d.mu.Unlock()

	go d.validate(ticket)
}

func (d *Dashboard) validate(ticket identity.Ticket) {
	out := d.app.validator.Validate(ticket.Context())

	var redirect bool
	applied := d.tracker.Apply(ticket, func() {
		redirect = d.apply(out)
	})
	if !applied {
		d.app.log.Debug("dropped stale validation", zap.Uint64("generation", ticket.Generation()))
		return
	}
	if redirect {
		d.app.leave(d, false)
	}
}

// apply records out and reports whether the user must be sent to login.
// Runs with the tracker locked.
func (d *Dashboard) apply(out identity.Outcome) bool {
	a := d.app
	if out.Valid() {
		if tok, ok := a.store.Read(); !ok || tok != out.Token {
			// credential changed while the lookup was in flight
			a.log.Debug("discarding identity for replaced credential")
			a.notify.Error(sessionEnded)
			d.settle(Snapshot{State: Failed, Kind: autherr.NoCredential, Message: sessionEnded, Redirected: true})
			return true
		}
		d.settle(Snapshot{State: Ready, Identity: out.Identity})
		return false
	}

	snap := Snapshot{State: Failed, Kind: out.Kind(), Message: out.Err.Message}
	switch out.Kind() {
	case autherr.NoCredential, autherr.Unauthorized:
		if tok, ok := a.store.Read(); ok && tok == out.Token {
			if err := a.store.Clear(); err != nil {
				a.log.Warn("failed to clear rejected credential", zap.Error(err))
			}
		}
		snap.Redirected = true
		a.notify.Error(out.Err.Message)
		d.settle(snap)
		return true
	default:
		// transient failure: keep the credential and let the user decide
		d.settle(snap)
		return false
	}
}

func (d *Dashboard) settle(s Snapshot) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.snap = s
	select {
	case <-d.settled:
	default:
		close(d.settled)
	}
}

// Snapshot returns the current state.
func (d *Dashboard) Snapshot() Snapshot {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.snap
}

// Wait blocks until the current validation settles or ctx is done.
func (d *Dashboard) Wait(ctx context.Context) (Snapshot, error) {
	d.mu.Lock()
	ch := d.settled
	d.mu.Unlock()

	select {
	case <-ch:
		return d.Snapshot(), nil
	case <-ctx.Done():
		return d.Snapshot(), ctx.Err()
	}
}

// ReturnToLogin is the error state's action: it clears the credential and
// shows the login view.
func (d *Dashboard) ReturnToLogin() {
	d.app.leave(d, true)
}

// Teardown detaches the view; results still in flight are dropped and
// pending Wait calls return.
func (d *Dashboard) Teardown() {
	d.tracker.Teardown()

	d.mu.Lock()
	defer d.mu.Unlock()
	select {
	case <-d.settled:
	default:
		close(d.settled)
	}
}

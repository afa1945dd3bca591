// Package gate decides, without touching the network, whether a view may
// render.
package gate

import (
	"github.com/atinyakov/sessiongate/internal/client/credential"
	"github.com/atinyakov/sessiongate/internal/client/nav"
)

// Decision is the gate's verdict for a route.
type Decision int

const (
	// Deny means the caller must redirect to the login view, replacing history.
	Deny Decision = iota
	// Admit means the view may render.
	Admit
)

func (d Decision) String() string {
	if d == Admit {
		return "Admit"
	}
	return "Deny"
}

// Gate admits protected routes whenever a credential is stored. It does not
// check that the credential is still accepted by the service; that is left
// to identity validation after the view renders.
type Gate struct {
	store credential.Reader
}

// New returns a gate over store.
func New(store credential.Reader) *Gate {
	return &Gate{store: store}
}

// CanEnter returns Admit for public routes and for protected routes while a
// credential is present.
func (g *Gate) CanEnter(route nav.Route) Decision {
	if !route.Protected() {
		return Admit
	}
	if _, ok := g.store.Read(); ok {
		return Admit
	}
	return Deny
}

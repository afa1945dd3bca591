// Package nav models the client's views and its navigation history.
package nav

import (
	"strings"
	"sync"
)

// Route identifies a view.
type Route string

const (
	Root      Route = "/"
	Login     Route = "/login"
	Signup    Route = "/signup"
	Dashboard Route = "/dashboard"
	NotFound  Route = "/404"
)

// Protected reports whether r requires a stored credential.
func (r Route) Protected() bool {
	return r == Dashboard
}

// Resolve maps a user-supplied path to a known route. Unknown paths resolve
// to NotFound. The root path resolves to Login with redirect set, meaning the
// caller should replace history rather than push.
func Resolve(path string) (route Route, redirect bool) {
	p := strings.TrimSpace(path)
	if p == "" {
		p = string(Root)
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if len(p) > 1 {
		p = strings.TrimRight(p, "/")
	}

	switch Route(p) {
	case Root:
		return Login, true
	case Login, Signup, Dashboard:
		return Route(p), false
	default:
		return NotFound, false
	}
}

// Navigator performs view transitions. With replace set the current history
// entry is overwritten so back-navigation cannot return to it.
type Navigator interface {
	Navigate(route Route, replace bool)
}

// History is an in-memory Navigator with back support.
type History struct {
	mu      sync.Mutex
	entries []Route
}

// NewHistory returns a history positioned at start.
func NewHistory(start Route) *History {
	return &History{entries: []Route{start}}
}

// Navigate pushes route, or replaces the current entry.
func (h *History) Navigate(route Route, replace bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if replace && len(h.entries) > 0 {
		h.entries[len(h.entries)-1] = route
		return
	}
	h.entries = append(h.entries, route)
}

// Current returns the route on top of the history.
func (h *History) Current() Route {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.entries) == 0 {
		return Root
	}
	return h.entries[len(h.entries)-1]
}

// Back pops the current entry and returns the previous one. It reports false
// when there is nothing to go back to.
func (h *History) Back() (Route, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.entries) < 2 {
		return "", false
	}
	h.entries = h.entries[:len(h.entries)-1]
	return h.entries[len(h.entries)-1], true
}

// Entries returns a copy of the history, oldest first.
func (h *History) Entries() []Route {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]Route(nil), h.entries...)
}

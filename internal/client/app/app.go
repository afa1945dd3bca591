// Package app wires the gate, validator and orchestrator to the client's
// views and performs the navigation their outcomes call for.
package app

import (
	"context"
	"sync"

	"github.com/atinyakov/sessiongate/internal/client/authflow"
	"github.com/atinyakov/sessiongate/internal/client/credential"
	"github.com/atinyakov/sessiongate/internal/client/form"
	"github.com/atinyakov/sessiongate/internal/client/gate"
	"github.com/atinyakov/sessiongate/internal/client/identity"
	"github.com/atinyakov/sessiongate/internal/client/nav"
	"github.com/atinyakov/sessiongate/internal/client/notify"
	"go.uber.org/zap"
)

// Auth is the transaction surface the views use.
type Auth interface {
	Login(ctx context.Context, email, password string) authflow.Outcome
	Signup(ctx context.Context, f form.Signup) authflow.Outcome
	Logout()
}

// Validator resolves the stored credential to an identity.
type Validator interface {
	Validate(ctx context.Context) identity.Outcome
}

// orchestratorAuth adapts *authflow.Orchestrator to Auth.
type orchestratorAuth struct {
	o *authflow.Orchestrator
}

func (a orchestratorAuth) Login(ctx context.Context, email, password string) authflow.Outcome {
	return a.o.Login(ctx, email, password)
}

func (a orchestratorAuth) Signup(ctx context.Context, f form.Signup) authflow.Outcome {
	return a.o.Signup(ctx, f.Name, f.Email, f.Password, f.Role)
}

func (a orchestratorAuth) Logout() { a.o.Logout() }

// FromOrchestrator exposes o as Auth.
func FromOrchestrator(o *authflow.Orchestrator) Auth {
	return orchestratorAuth{o: o}
}

// Deps are the collaborators of an App.
type Deps struct {
	Store     credential.Store
	Validator Validator
	Auth      Auth
	Navigator nav.Navigator
	Notifier  notify.Notifier
	Logger    *zap.Logger
}

// App owns the mounted view and reacts to gate, validation and
// transaction outcomes.
type App struct {
	store     credential.Store
	gate      *gate.Gate
	validator Validator
	auth      Auth
	nav       nav.Navigator
	notify    notify.Notifier
	log       *zap.Logger

	mu        sync.Mutex
	current   nav.Route
	dashboard *Dashboard
}

// New builds an App from deps.
func New(deps Deps) *App {
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &App{
		store:     deps.Store,
		gate:      gate.New(deps.Store),
		validator: deps.Validator,
		auth:      deps.Auth,
		nav:       deps.Navigator,
		notify:    deps.Notifier,
		log:       log,
	}
}

// Gate returns the app's route gate.
func (a *App) Gate() *gate.Gate { return a.gate }

// Current returns the route currently shown.
func (a *App) Current() nav.Route {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.current
}

// Dashboard returns the mounted dashboard, or nil.
func (a *App) Dashboard() *Dashboard {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.dashboard
}

// Visit navigates to path and returns the route that ended up shown.
func (a *App) Visit(ctx context.Context, path string) nav.Route {
	route, redirect := nav.Resolve(path)
	return a.show(ctx, route, redirect)
}

// Replace shows path in place of the current history entry.
func (a *App) Replace(ctx context.Context, path string) nav.Route {
	route, _ := nav.Resolve(path)
	return a.show(ctx, route, true)
}

// SubmitLogin validates f and, when it passes, runs the login transaction.
// On success the dashboard is shown; failures are reported to the notifier.
func (a *App) SubmitLogin(ctx context.Context, f form.Login) (form.Errors, authflow.Outcome) {
	if errs := f.Validate(); !errs.OK() {
		return errs, authflow.Outcome{}
	}
	out := a.auth.Login(ctx, f.Email, f.Password)
	a.afterTransaction(ctx, out)
	return nil, out
}

// SubmitSignup validates f and, when it passes, runs the signup transaction.
func (a *App) SubmitSignup(ctx context.Context, f form.Signup) (form.Errors, authflow.Outcome) {
	if errs := f.Validate(); !errs.OK() {
		return errs, authflow.Outcome{}
	}
	out := a.auth.Signup(ctx, f)
	a.afterTransaction(ctx, out)
	return nil, out
}

// Logout clears the session and lands on the login view.
func (a *App) Logout() {
	a.auth.Logout()

	a.mu.Lock()
	defer a.mu.Unlock()
	a.unmountLocked()
	a.navigateLocked(nav.Login, true)
	a.notify.Info("Logged out")
}

func (a *App) afterTransaction(ctx context.Context, out authflow.Outcome) {
	if !out.Success() {
		a.notify.Error(out.Err.Message)
		return
	}
	a.show(ctx, nav.Dashboard, false)
}

func (a *App) show(ctx context.Context, route nav.Route, replace bool) nav.Route {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.gate.CanEnter(route) == gate.Deny {
		a.log.Debug("route denied", zap.String("route", string(route)))
		route, replace = nav.Login, true
	}

	a.unmountLocked()
	a.navigateLocked(route, replace)

	if route == nav.Dashboard {
		d := newDashboard(a)
		a.dashboard = d
		d.refresh(ctx)
	}
	return route
}

func (a *App) navigateLocked(route nav.Route, replace bool) {
	a.current = route
	a.nav.Navigate(route, replace)
}

func (a *App) unmountLocked() {
	if a.dashboard != nil {
		a.dashboard.Teardown()
		a.dashboard = nil
	}
}

// leave navigates away from d to the login view if d is still mounted.
func (a *App) leave(d *Dashboard, clear bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.dashboard != d {
		return
	}
	if clear {
		a.auth.Logout()
	}
	a.unmountLocked()
	a.navigateLocked(nav.Login, true)
}

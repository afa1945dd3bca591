package app

import (
	"bytes"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/atinyakov/sessiongate/internal/client/authapi"
	"github.com/atinyakov/sessiongate/internal/client/authflow"
	"github.com/atinyakov/sessiongate/internal/client/autherr"
	"github.com/atinyakov/sessiongate/internal/client/credential"
	"github.com/atinyakov/sessiongate/internal/client/form"
	"github.com/atinyakov/sessiongate/internal/client/gate"
	"github.com/atinyakov/sessiongate/internal/client/identity"
	"github.com/atinyakov/sessiongate/internal/client/nav"
	"github.com/atinyakov/sessiongate/internal/client/notify"
	"github.com/atinyakov/sessiongate/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedValidator parks each call until the test answers it. It ignores
// cancellation so that stale answers still arrive.
type scriptedValidator struct {
	mu      sync.Mutex
	calls   []chan identity.Outcome
	started chan int
}

func newScriptedValidator() *scriptedValidator {
	return &scriptedValidator{started: make(chan int, 16)}
}

func (s *scriptedValidator) Validate(_ context.Context) identity.Outcome {
	ch := make(chan identity.Outcome, 1)
	s.mu.Lock()
	s.calls = append(s.calls, ch)
	idx := len(s.calls) - 1
	s.mu.Unlock()
	s.started <- idx
	return <-ch
}

func (s *scriptedValidator) answer(i int, out identity.Outcome) {
	s.mu.Lock()
	ch := s.calls[i]
	s.mu.Unlock()
	ch <- out
}

func (s *scriptedValidator) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

// fakeBackend answers login and signup with fixed values.
type fakeBackend struct {
	token string
	err   error
}

func (f *fakeBackend) Login(context.Context, string, string) (string, error) {
	return f.token, f.err
}

func (f *fakeBackend) Signup(context.Context, authapi.SignupRequest) (string, error) {
	return f.token, f.err
}

type fixture struct {
	app       *App
	store     *credential.MemoryStore
	history   *nav.History
	notes     *notify.Recorder
	validator *scriptedValidator
	backend   *fakeBackend
}

func newFixture(t *testing.T, token string) *fixture {
	t.Helper()
	store := credential.NewMemoryStore()
	if token != "" {
		require.NoError(t, store.Write(token))
	}
	f := &fixture{
		store:     store,
		history:   nav.NewHistory(nav.Root),
		notes:     &notify.Recorder{},
		validator: newScriptedValidator(),
		backend:   &fakeBackend{},
	}
	f.app = New(Deps{
		Store:     store,
		Validator: f.validator,
		Auth:      FromOrchestrator(authflow.New(store, f.backend, nil)),
		Navigator: f.history,
		Notifier:  f.notes,
	})
	return f
}

func waitCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	t.Cleanup(cancel)
	return ctx
}

// eventually polls cond until it holds.
func eventually(t *testing.T, cond func() bool) {
	t.Helper()
	assert.Eventually(t, cond, 2*time.Second, 5*time.Millisecond)
}

func TestVisit_DashboardWithoutCredentialRedirects(t *testing.T) {
	f := newFixture(t, "")

	got := f.app.Visit(context.Background(), "/dashboard")

	assert.Equal(t, nav.Login, got)
	assert.Equal(t, []nav.Route{nav.Login}, f.history.Entries(), "history replaced")
	assert.Nil(t, f.app.Dashboard())
	assert.Equal(t, 0, f.validator.count())
}

func TestVisit_RootAndUnknown(t *testing.T) {
	f := newFixture(t, "")

	assert.Equal(t, nav.Login, f.app.Visit(context.Background(), "/"))
	assert.Equal(t, nav.NotFound, f.app.Visit(context.Background(), "/missing"))
	assert.Equal(t, nav.Signup, f.app.Visit(context.Background(), "/signup"))
	assert.Equal(t, []nav.Route{nav.Login, nav.NotFound, nav.Signup}, f.history.Entries())
}

func TestDashboard_Ready(t *testing.T) {
	f := newFixture(t, "tok1")

	require.Equal(t, nav.Dashboard, f.app.Visit(context.Background(), "/dashboard"))
	d := f.app.Dashboard()
	require.NotNil(t, d)
	assert.Equal(t, Loading, d.Snapshot().State)

	<-f.validator.started
	f.validator.answer(0, identity.Outcome{Token: "tok1", Identity: &models.Identity{Name: "Ann", Role: models.RoleAdmin}})

	snap, err := d.Wait(waitCtx(t))
	require.NoError(t, err)
	assert.Equal(t, Ready, snap.State)
	assert.Equal(t, "Ann", snap.Identity.Name)

	var buf bytes.Buffer
	RenderDashboard(&buf, snap)
	assert.Contains(t, buf.String(), "Welcome, Ann")
	assert.Contains(t, buf.String(), "Admin Dashboard")
}

func TestDashboard_UnauthorizedClearsAndRedirects(t *testing.T) {
	f := newFixture(t, "tok1")
	f.app.Visit(context.Background(), "/dashboard")
	d := f.app.Dashboard()

	<-f.validator.started
	f.validator.answer(0, identity.Outcome{Token: "tok1", Err: autherr.New(autherr.Unauthorized, "expired")})

	snap, err := d.Wait(waitCtx(t))
	require.NoError(t, err)
	assert.Equal(t, Failed, snap.State)
	assert.Equal(t, autherr.Unauthorized, snap.Kind)
	assert.True(t, snap.Redirected)

	eventually(t, func() bool { return f.app.Current() == nav.Login })
	_, ok := f.store.Read()
	assert.False(t, ok)
	assert.Equal(t, gate.Deny, f.app.Gate().CanEnter(nav.Dashboard))
	assert.Equal(t, "expired", f.notes.LastError())
	assert.Nil(t, f.app.Dashboard())
}

func TestDashboard_TransientFailureKeepsCredential(t *testing.T) {
	for _, kind := range []autherr.Kind{autherr.Unreachable, autherr.ServerError} {
		t.Run(kind.String(), func(t *testing.T) {
			f := newFixture(t, "tok1")
			f.app.Visit(context.Background(), "/dashboard")
			d := f.app.Dashboard()

			<-f.validator.started
			f.validator.answer(0, identity.Outcome{Token: "tok1", Err: autherr.New(kind, "down")})

			snap, err := d.Wait(waitCtx(t))
			require.NoError(t, err)
			assert.Equal(t, Failed, snap.State)
			assert.False(t, snap.Redirected)
			assert.Equal(t, nav.Dashboard, f.app.Current())

			tok, ok := f.store.Read()
			assert.True(t, ok)
			assert.Equal(t, "tok1", tok)

			d.ReturnToLogin()
			assert.Equal(t, nav.Login, f.app.Current())
			_, ok = f.store.Read()
			assert.False(t, ok)
		})
	}
}

func TestDashboard_LogoutBeatsPendingValidation(t *testing.T) {
	f := newFixture(t, "tok-old")
	f.app.Visit(context.Background(), "/dashboard")
	d := f.app.Dashboard()
	<-f.validator.started

	f.app.Logout()
	f.validator.answer(0, identity.Outcome{Token: "tok-old", Identity: &models.Identity{Name: "Ann"}})

	// give the late answer time to land
	time.Sleep(20 * time.Millisecond)

	_, ok := f.store.Read()
	assert.False(t, ok)
	assert.Equal(t, nav.Login, f.app.Current())
	assert.NotEqual(t, Ready, d.Snapshot().State)
	assert.Contains(t, f.notes.Infos, "Logged out")
}

func TestDashboard_ReplacedCredentialNotifies(t *testing.T) {
	f := newFixture(t, "tok1")
	f.app.Visit(context.Background(), "/dashboard")
	d := f.app.Dashboard()
	<-f.validator.started

	require.NoError(t, f.store.Write("tok2"))
	f.validator.answer(0, identity.Outcome{Token: "tok1", Identity: &models.Identity{Name: "Ann"}})

	snap, err := d.Wait(waitCtx(t))
	require.NoError(t, err)
	assert.Equal(t, Failed, snap.State)
	assert.True(t, snap.Redirected)
	assert.Equal(t, "Session ended.", f.notes.LastError())

	eventually(t, func() bool { return f.app.Current() == nav.Login })
	tok, ok := f.store.Read()
	assert.True(t, ok, "newer credential is kept")
	assert.Equal(t, "tok2", tok)
}

func TestDashboard_RefreshLatestWins(t *testing.T) {
	f := newFixture(t, "tok1")
	f.app.Visit(context.Background(), "/dashboard")
	d := f.app.Dashboard()
	<-f.validator.started

	d.Refresh(context.Background())
	<-f.validator.started

	f.validator.answer(1, identity.Outcome{Token: "tok1", Identity: &models.Identity{Name: "B"}})
	snap, err := d.Wait(waitCtx(t))
	require.NoError(t, err)
	require.Equal(t, Ready, snap.State)

	f.validator.answer(0, identity.Outcome{Token: "tok1", Identity: &models.Identity{Name: "A"}})
	time.Sleep(20 * time.Millisecond)

	assert.Equal(t, "B", d.Snapshot().Identity.Name)
}

func TestSubmitLogin(t *testing.T) {
	f := newFixture(t, "")
	f.backend.token = "tok1"

	errs, out := f.app.SubmitLogin(context.Background(), form.Login{Email: "a@b.com", Password: "secret1"})

	assert.Nil(t, errs)
	require.True(t, out.Success())
	assert.Equal(t, nav.Dashboard, f.app.Current())
	require.NotNil(t, f.app.Dashboard())
	<-f.validator.started
}

func TestSubmitLogin_FormErrorsSkipBackend(t *testing.T) {
	f := newFixture(t, "")
	f.backend.token = "tok1"

	errs, _ := f.app.SubmitLogin(context.Background(), form.Login{Email: "bad", Password: "1"})

	assert.Len(t, errs, 2)
	_, ok := f.store.Read()
	assert.False(t, ok)
}

func TestSubmitSignup_FailureNotifies(t *testing.T) {
	f := newFixture(t, "")
	f.backend.err = &authapi.StatusError{StatusCode: 409, Message: "email already registered"}

	errs, out := f.app.SubmitSignup(context.Background(), form.Signup{Name: "Ann", Email: "a@b.com", Password: "secret1"})

	assert.Nil(t, errs)
	assert.False(t, out.Success())
	assert.Equal(t, "email already registered", f.notes.LastError())
	assert.NotEqual(t, nav.Dashboard, f.app.Current())
}

func TestRenderNotFoundAndErrors(t *testing.T) {
	var buf bytes.Buffer
	RenderNotFound(&buf)
	assert.Contains(t, buf.String(), "Page Not Found")

	buf.Reset()
	RenderFormErrors(&buf, form.Errors{form.FieldPassword: "p", form.FieldEmail: "e"})
	assert.Equal(t, "  email: e\n  password: p\n", buf.String())

	buf.Reset()
	RenderDashboard(&buf, Snapshot{State: Failed, Message: "No response from server."})
	assert.Contains(t, buf.String(), "Go to Login")
}

func TestReplace(t *testing.T) {
	f := newFixture(t, "")
	f.app.Visit(context.Background(), "/signup")
	f.app.Visit(context.Background(), "/nowhere")

	back, ok := f.history.Back()
	require.True(t, ok)
	assert.Equal(t, nav.Signup, f.app.Replace(context.Background(), string(back)))
	assert.Equal(t, []nav.Route{nav.Root, nav.Signup}, f.history.Entries())
}

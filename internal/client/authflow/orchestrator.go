// Package authflow runs login, signup and logout as client-side transactions
// over the credential store.
package authflow

import (
	"context"
	"sync"

	"github.com/atinyakov/sessiongate/internal/client/authapi"
	"github.com/atinyakov/sessiongate/internal/client/autherr"
	"github.com/atinyakov/sessiongate/internal/client/credential"
	"github.com/atinyakov/sessiongate/internal/models"
	"go.uber.org/zap"
)

const (
	loginFailed     = "Login failed"
	signupFailed    = "Signup failed"
	cancelledReason = "Request cancelled."
)

// Backend issues tokens. *authapi.Client implements it.
type Backend interface {
	Login(ctx context.Context, email, password string) (string, error)
	Signup(ctx context.Context, req authapi.SignupRequest) (string, error)
}

// Outcome is Success with the issued Token, or Failure with Err.
type Outcome struct {
	Token string
	Err   *autherr.Error
}

// Success reports whether the transaction committed.
func (o Outcome) Success() bool {
	return o.Err == nil
}

// Orchestrator is the only writer of the credential store.
type Orchestrator struct {
	store   credential.Store
	backend Backend
	log     *zap.Logger

	mu       sync.Mutex
	epoch    uint64
	inflight map[uint64]context.CancelFunc
	nextID   uint64
}

// New returns an orchestrator. A nil logger discards output.
func New(store credential.Store, backend Backend, log *zap.Logger) *Orchestrator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Orchestrator{
		store:    store,
		backend:  backend,
		log:      log,
		inflight: make(map[uint64]context.CancelFunc),
	}
}

// Login authenticates with email and password. On success the issued token
// is stored; on failure the store is left as it was.
func (o *Orchestrator) Login(ctx context.Context, email, password string) Outcome {
	return o.run(ctx, "login", loginFailed, func(ctx context.Context) (string, error) {
		return o.backend.Login(ctx, email, password)
	})
}

// Signup registers a new account. The service logs the new user in, so the
// returned token is stored exactly as for Login.
func (o *Orchestrator) Signup(ctx context.Context, name, email, password string, role models.Role) Outcome {
	if role == "" {
		role = models.RoleUser
	}
	req := authapi.SignupRequest{Name: name, Email: email, Password: password, Role: role}
	return o.run(ctx, "signup", signupFailed, func(ctx context.Context) (string, error) {
		return o.backend.Signup(ctx, req)
	})
}

// Logout clears the stored credential without contacting the service and
// abandons any login or signup still in flight.
func (o *Orchestrator) Logout() {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.epoch++
	for id, cancel := range o.inflight {
		cancel()
		delete(o.inflight, id)
	}
	if err := o.store.Clear(); err != nil {
		o.log.Warn("failed to clear credential", zap.Error(err))
		return
	}
	o.log.Info("logged out")
}

func (o *Orchestrator) run(parent context.Context, op, fallback string, call func(context.Context) (string, error)) Outcome {
	ctx, id, epoch := o.begin(parent)
	defer o.end(id)

	token, err := call(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return o.abandon(op, ctx.Err())
		}
		classified := authapi.Classify(err, authapi.RejectClientErrors, fallback)
		o.log.Info(op+" failed", zap.Stringer("kind", classified.Kind), zap.String("message", classified.Message))
		return Outcome{Err: classified}
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	if o.epoch != epoch || ctx.Err() != nil {
		return o.abandon(op, context.Canceled)
	}
	if err := o.store.Write(token); err != nil {
		classified := authapi.Classify(err, authapi.RejectClientErrors, fallback)
		o.log.Error("failed to store credential", zap.String("op", op), zap.Error(err))
		return Outcome{Err: classified}
	}

	o.log.Info(op + " succeeded")
	return Outcome{Token: token}
}

func (o *Orchestrator) abandon(op string, cause error) Outcome {
	o.log.Info(op+" abandoned", zap.Error(cause))
	return Outcome{Err: autherr.Wrap(autherr.Unreachable, cancelledReason, cause)}
}

func (o *Orchestrator) begin(parent context.Context) (context.Context, uint64, uint64) {
	ctx, cancel := context.WithCancel(parent)

	o.mu.Lock()
	defer o.mu.Unlock()

	o.nextID++
	o.inflight[o.nextID] = cancel
	return ctx, o.nextID, o.epoch
}

func (o *Orchestrator) end(id uint64) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if cancel, ok := o.inflight[id]; ok {
		cancel()
		delete(o.inflight, id)
	}
}

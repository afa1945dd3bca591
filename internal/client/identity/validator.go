// Package identity confirms the stored credential with the auth service and
// resolves who it belongs to.
package identity

import (
	"context"

	"github.com/atinyakov/sessiongate/internal/client/authapi"
	"github.com/atinyakov/sessiongate/internal/client/autherr"
	"github.com/atinyakov/sessiongate/internal/client/credential"
	"github.com/atinyakov/sessiongate/internal/models"
	"go.uber.org/zap"
)

// fallbackMessage is shown when the service fails without a message.
const fallbackMessage = "Failed to fetch user"

// Lookup resolves a token to an identity. *authapi.Client implements it.
type Lookup interface {
	Me(ctx context.Context, token string) (*models.Identity, error)
}

// Outcome is the result of a validation: Valid with an Identity, or Invalid
// with a classified Err.
type Outcome struct {
	Identity *models.Identity
	Err      *autherr.Error
	// Token is the credential that was validated. Empty for NoCredential.
	Token string
}

// Valid reports whether the credential was accepted.
func (o Outcome) Valid() bool {
	return o.Err == nil && o.Identity != nil
}

// Kind returns the failure kind, or 0 for a valid outcome.
func (o Outcome) Kind() autherr.Kind {
	if o.Err == nil {
		return 0
	}
	return o.Err.Kind
}

// Validator exchanges the stored token for an identity. It only reads the
// store; clearing it after a rejection is the caller's job.
type Validator struct {
	store  credential.Reader
	lookup Lookup
	log    *zap.Logger
}

// NewValidator returns a validator. A nil logger discards output.
func NewValidator(store credential.Reader, lookup Lookup, log *zap.Logger) *Validator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Validator{store: store, lookup: lookup, log: log}
}

// Validate performs one identity lookup for the stored token. It makes no
// network call when no token is stored.
func (v *Validator) Validate(ctx context.Context) Outcome {
	token, ok := v.store.Read()
	if !ok {
		return Outcome{Err: autherr.New(autherr.NoCredential, "Unauthorized: Please login again.")}
	}

	id, err := v.lookup.Me(ctx, token)
	if err != nil {
		classified := authapi.Classify(err, authapi.RejectUnauthorized, fallbackMessage)
		v.log.Info("identity validation failed",
			zap.Stringer("kind", classified.Kind),
			zap.String("message", classified.Message),
		)
		return Outcome{Err: classified, Token: token}
	}
	if id == nil {
		return Outcome{Err: autherr.New(autherr.ServerError, fallbackMessage), Token: token}
	}

	v.log.Debug("identity validated", zap.String("name", id.Name), zap.String("role", string(id.Role)))
	return Outcome{Identity: id, Token: token}
}

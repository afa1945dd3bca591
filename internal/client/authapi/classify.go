package authapi

import (
	"errors"
	"net/http"

	"github.com/atinyakov/sessiongate/internal/client/autherr"
)

// RejectPolicy reports which statuses mean the service rejected the request
// itself, as opposed to failing to serve it.
type RejectPolicy func(status int) bool

// RejectUnauthorized treats only 401 as a rejection. Used for identity
// lookups.
func RejectUnauthorized(status int) bool {
	return status == http.StatusUnauthorized
}

// RejectClientErrors treats every 4xx as a rejection of the submitted
// credentials or input. Used for login and signup.
func RejectClientErrors(status int) bool {
	return status >= 400 && status < 500
}

// Classify maps an error returned by Client onto the session error kinds.
// fallback is the message used when the service did not supply one.
func Classify(err error, rejected RejectPolicy, fallback string) *autherr.Error {
	if err == nil {
		return nil
	}

	var ae *autherr.Error
	if errors.As(err, &ae) {
		return ae
	}

	var se *StatusError
	if errors.As(err, &se) {
		msg := se.Message
		if msg == "" {
			msg = fallback
		}
		if rejected(se.StatusCode) {
			return autherr.Wrap(autherr.Unauthorized, msg, err)
		}
		return autherr.Wrap(autherr.ServerError, msg, err)
	}

	if errors.Is(err, ErrInvalidResponse) {
		return autherr.Wrap(autherr.ServerError, fallback, err)
	}

	return autherr.Wrap(autherr.Unreachable, autherr.UnreachableMessage, err)
}

// Package autherr defines the error kinds reported by the client-side
// session components.
package autherr

import (
	"errors"
	"fmt"
)

// Kind classifies a session failure.
type Kind int

const (
	// NoCredential means no token is stored; no network call is attempted.
	NoCredential Kind = iota + 1
	// Unreachable means the transport failed before any response arrived.
	Unreachable
	// Unauthorized means the service rejected the credential or the input.
	Unauthorized
	// ServerError means the service answered with an unexpected status.
	ServerError
	// StorageUnavailable means the persistence medium rejected a write.
	StorageUnavailable
)

// Sentinel errors, one per Kind, for use with errors.Is.
var (
	ErrNoCredential       = errors.New("no credential stored")
	ErrUnreachable        = errors.New("auth service unreachable")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrServerError        = errors.New("auth service error")
	ErrStorageUnavailable = errors.New("credential storage unavailable")
)

// UnreachableMessage is shown when no response reached the client.
const UnreachableMessage = "No response from server."

func (k Kind) String() string {
	switch k {
	case NoCredential:
		return "NoCredential"
	case Unreachable:
		return "Unreachable"
	case Unauthorized:
		return "Unauthorized"
	case ServerError:
		return "ServerError"
	case StorageUnavailable:
		return "StorageUnavailable"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

func (k Kind) sentinel() error {
	switch k {
	case NoCredential:
		return ErrNoCredential
	case Unreachable:
		return ErrUnreachable
	case Unauthorized:
		return ErrUnauthorized
	case ServerError:
		return ErrServerError
	case StorageUnavailable:
		return ErrStorageUnavailable
	}
	return nil
}

// Error is a classified failure. Message is the user-facing text.
type Error struct {
	Kind    Kind
	Message string
	// Err is the underlying cause, if any.
	Err error
}

// New returns an *Error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap returns an *Error of the given kind carrying cause.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Err: cause}
}

func (e *Error) Error() string {
	if e.Message == "" {
		return e.Kind.String()
	}
	return e.Kind.String() + ": " + e.Message
}

// Unwrap exposes both the kind sentinel and the cause.
func (e *Error) Unwrap() []error {
	errs := make([]error, 0, 2)
	if s := e.Kind.sentinel(); s != nil {
		errs = append(errs, s)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// KindOf reports the Kind of err, or 0 when err is not classified.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return 0
}

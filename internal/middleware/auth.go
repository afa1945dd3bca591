// Package middleware provides HTTP middlewares for authentication, request
// logging and rate limiting.
package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/atinyakov/sessiongate/internal/models"
	"github.com/atinyakov/sessiongate/internal/service"
	"go.uber.org/zap"
)

type ctxKey struct{}

var identityKey ctxKey

// TokenResolver maps a bearer token to its owner.
type TokenResolver interface {
	Identify(ctx context.Context, token string) (*models.Identity, error)
}

// BearerAuth rejects requests without a valid "Authorization: Bearer"
// token. On success the resolved identity is stored in the request
// context, see IdentityFromContext.
func BearerAuth(resolver TokenResolver, log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				writeError(w, http.StatusUnauthorized, "missing bearer token")
				return
			}

			id, err := resolver.Identify(r.Context(), token)
			switch {
			case errors.Is(err, service.ErrInvalidToken):
				writeError(w, http.StatusUnauthorized, "Session expired. Please login again.")
				return
			case err != nil:
				log.Error("identify token", zap.Error(err))
				writeError(w, http.StatusInternalServerError, "internal error")
				return
			}

			ctx := context.WithValue(r.Context(), identityKey, id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// IdentityFromContext returns the identity stored by BearerAuth.
func IdentityFromContext(ctx context.Context) (*models.Identity, bool) {
	id, ok := ctx.Value(identityKey).(*models.Identity)
	return id, ok && id != nil
}

func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(h, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"msg": msg})
}

package http

import (
	"net/http"

	"github.com/atinyakov/sessiongate/internal/middleware"
	"go.uber.org/zap"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
)

// RouterOption configures NewRouter.
type RouterOption func(*routerConfig)

type routerConfig struct {
	trustProxy bool
}

// WithTrustedProxy takes the client address from X-Forwarded-For or
// X-Real-IP. Only enable it behind a proxy that overwrites those headers;
// otherwise clients pick their own rate limit key.
func WithTrustedProxy(trust bool) RouterOption {
	return func(c *routerConfig) { c.trustProxy = trust }
}

// NewRouter returns the auth service's HTTP handler.
//
// Routes:
//
//	POST /auth/login    → authHandler.Login  (rate limited)
//	POST /auth/signup   → authHandler.Signup (rate limited)
//	GET  /auth/me       → authHandler.Me     (BearerAuth)
//
// A nil limiter disables rate limiting. Forwarding headers are ignored
// unless WithTrustedProxy(true) is given.
func NewRouter(
	authHandler *AuthHandler,
	limiter *middleware.RateLimiter,
	logger *zap.Logger,
	opts ...RouterOption,
) http.Handler {
	var cfg routerConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	if cfg.trustProxy {
		r.Use(chiMiddleware.RealIP)
	}
	// Log each request and its metadata
	r.Use(middleware.WithRequestLogging(logger))
	r.Use(chiMiddleware.Recoverer)

	r.Route("/auth", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			// Only allow requests with Content-Type: application/json
			r.Use(chiMiddleware.AllowContentType("application/json"))
			if limiter != nil {
				r.Use(limiter.Middleware)
			}
			r.Post("/login", authHandler.Login)
			r.Post("/signup", authHandler.Signup)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.BearerAuth(authHandler.AuthService, logger))
			r.Get("/me", authHandler.Me)
		})
	})

	return r
}

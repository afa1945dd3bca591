// Package http provides the HTTP handlers of the auth service.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/atinyakov/sessiongate/internal/middleware"
	"github.com/atinyakov/sessiongate/internal/models"
	"github.com/atinyakov/sessiongate/internal/service"
	"go.uber.org/zap"
)

const maxBodyBytes = 1 << 20

// AuthService defines the authentication operations required by the HTTP
// handlers.
type AuthService interface {
	// Signup registers a user and returns a session token.
	Signup(ctx context.Context, in service.SignupInput) (string, error)
	// Login checks the credentials and returns a session token.
	Login(ctx context.Context, email, password string) (string, error)
	// Identify resolves a session token to its owner.
	Identify(ctx context.Context, token string) (*models.Identity, error)
}

// AuthHandler handles HTTP requests for signup, login and identity lookup.
type AuthHandler struct {
	// AuthService performs the underlying authentication operations.
	AuthService AuthService
	Logger      *zap.Logger
}

// LoginRequest is the JSON payload of POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SignupRequest is the JSON payload of POST /auth/signup.
type SignupRequest struct {
	Name     string      `json:"name"`
	Email    string      `json:"email"`
	Password string      `json:"password"`
	Role     models.Role `json:"role"`
}

// TokenResponse carries an issued session token.
type TokenResponse struct {
	Token string `json:"token"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Msg string `json:"msg"`
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decode(w, r, &req) {
		return
	}

	token, err := h.AuthService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, TokenResponse{Token: token})
}

// Signup handles POST /auth/signup. The new account is logged in right
// away.
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if !decode(w, r, &req) {
		return
	}

	token, err := h.AuthService.Signup(r.Context(), service.SignupInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Role:     req.Role,
	})
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, TokenResponse{Token: token})
}

// Me handles GET /auth/me. It must run behind middleware.BearerAuth.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Msg: "Unauthorized"})
		return
	}
	writeJSON(w, http.StatusOK, id)
}

func (h *AuthHandler) fail(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Msg: err.Error()})
	case errors.Is(err, service.ErrInvalidCredentials):
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Msg: "Invalid email or password."})
	case errors.Is(err, service.ErrEmailTaken):
		writeJSON(w, http.StatusConflict, ErrorResponse{Msg: "Email already registered."})
	default:
		if h.Logger != nil {
			h.Logger.Error("auth request failed", zap.Error(err))
		}
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Msg: "internal error"})
	}
}

func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Msg: "invalid request"})
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

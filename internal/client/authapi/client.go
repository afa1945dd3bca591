// Package authapi is the HTTP client for the remote auth service.
package authapi

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/atinyakov/sessiongate/internal/models"
	"go.uber.org/zap"
)

const (
	pathLogin  = "/auth/login"
	pathSignup = "/auth/signup"
	pathMe     = "/auth/me"

	// maxBody bounds how much of a response the client will read.
	maxBody = 1 << 20
)

var (
	// ErrTransport wraps failures where no response was received.
	ErrTransport = errors.New("auth service request failed")
	// ErrInvalidResponse wraps 2xx responses the client could not decode.
	ErrInvalidResponse = errors.New("invalid response from auth service")
)

// StatusError is a non-2xx response. Message is the service's {msg} field,
// empty when the body carried none.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("auth service returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("auth service returned status %d: %s", e.StatusCode, e.Message)
}

// SignupRequest is the body of POST /auth/signup.
type SignupRequest struct {
	Name     string      `json:"name"`
	Email    string      `json:"email"`
	Password string      `json:"password"`
	Role     models.Role `json:"role"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenResponse struct {
	Token string `json:"token"`
}

type errorResponse struct {
	Msg string `json:"msg"`
}

// Client talks to the auth service. It performs exactly one HTTP request per
// call and never retries.
type Client struct {
	baseURL string
	http    *http.Client
	log     *zap.Logger
}

// New returns a client for baseURL. A nil httpClient gets a 10s timeout
// default; a nil logger discards output.
func New(baseURL string, httpClient *http.Client, log *zap.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
		log:     log,
	}
}

// NewHTTPClient builds an HTTP client with the given timeout. When caFile is
// set, server certificates are verified against that CA instead of the system
// pool.
func NewHTTPClient(caFile string, timeout time.Duration) (*http.Client, error) {
	if caFile == "" {
		return &http.Client{Timeout: timeout}, nil
	}

	caCert, err := os.ReadFile(caFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read CA cert: %w", err)
	}
	caPool := x509.NewCertPool()
	if !caPool.AppendCertsFromPEM(caCert) {
		return nil, errors.New("failed to parse CA cert")
	}

	transport := &http.Transport{
		TLSClientConfig: &tls.Config{
			RootCAs:    caPool,
			MinVersion: tls.VersionTLS12,
		},
	}
	return &http.Client{Transport: transport, Timeout: timeout}, nil
}

// Login exchanges email and password for a token.
func (c *Client) Login(ctx context.Context, email, password string) (string, error) {
	var out tokenResponse
	if err := c.do(ctx, http.MethodPost, pathLogin, "", loginRequest{Email: email, Password: password}, &out); err != nil {
		return "", err
	}
	if out.Token == "" {
		return "", fmt.Errorf("%w: empty token", ErrInvalidResponse)
	}
	return out.Token, nil
}

// Signup registers an account and returns the token the service issues for
// the new session.
func (c *Client) Signup(ctx context.Context, req SignupRequest) (string, error) {
	var out tokenResponse
	if err := c.do(ctx, http.MethodPost, pathSignup, "", req, &out); err != nil {
		return "", err
	}
	if out.Token == "" {
		return "", fmt.Errorf("%w: empty token", ErrInvalidResponse)
	}
	return out.Token, nil
}

// Me looks up the identity that token belongs to.
func (c *Client) Me(ctx context.Context, token string) (*models.Identity, error) {
	var out models.Identity
	if err := c.do(ctx, http.MethodGet, pathMe, token, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, method, path, token string, body, out any) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Debug("auth request failed", zap.String("path", path), zap.Error(err))
		return fmt.Errorf("%w: %w", ErrTransport, err)
	}
	defer resp.Body.Close()

	c.log.Debug("auth request done",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)),
	)

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return fmt.Errorf("%w: read body: %w", ErrTransport, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var e errorResponse
		_ = json.Unmarshal(data, &e)
		return &StatusError{StatusCode: resp.StatusCode, Message: e.Msg}
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidResponse, err)
	}
	return nil
}

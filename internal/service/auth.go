// Package service provides authentication business logic,
// delegating persistence to an AuthRepository.
package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/atinyakov/sessiongate/internal/models"
	"github.com/atinyakov/sessiongate/internal/repository"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrInvalidCredentials is returned when the email or password is wrong.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrEmailTaken is returned by Signup for an already registered email.
	ErrEmailTaken = errors.New("email already registered")
	// ErrInvalidToken is returned by Identify for unknown or expired tokens.
	ErrInvalidToken = errors.New("invalid or expired token")
	// ErrInvalidInput wraps a validation failure of the request fields.
	ErrInvalidInput = errors.New("invalid input")
)

const (
	minPasswordLen = 6
	// bcrypt ignores anything past 72 bytes and x/crypto rejects it.
	maxPasswordLen = 72
	tokenSize      = 32
)

var emailPattern = regexp.MustCompile(`^\S+@\S+\.\S+$`)

// AuthRepository defines the persistence operations
// required by the authentication service.
type AuthRepository interface {
	// CreateUser stores a new user and its first session atomically.
	// It returns repository.ErrDuplicate when the email is taken.
	CreateUser(ctx context.Context, u models.User, s models.Session) error
	// GetUserByEmail returns repository.ErrNotFound for unknown emails.
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	CreateSession(ctx context.Context, s models.Session) error
	// GetSessionOwner returns repository.ErrNotFound when the token is
	// unknown or expired at now.
	GetSessionOwner(ctx context.Context, token string, now time.Time) (*models.SessionOwner, error)
}

// SignupInput holds the fields of a signup request.
type SignupInput struct {
	Name     string
	Email    string
	Password string
	Role     models.Role
}

// Service implements authentication operations by delegating
// to an AuthRepository.
type Service struct {
	// repo performs the data-layer operations.
	repo AuthRepository

	ttl  time.Duration
	cost int
	now  func() time.Time

	dummyOnce sync.Once
	dummyHash []byte
}

// Option configures a Service.
type Option func(*Service)

// WithTokenTTL sets how long issued tokens stay valid.
func WithTokenTTL(ttl time.Duration) Option {
	return func(s *Service) { s.ttl = ttl }
}

// WithBcryptCost overrides bcrypt.DefaultCost.
func WithBcryptCost(cost int) Option {
	return func(s *Service) { s.cost = cost }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewAuthService constructs a new Service using the provided repository.
func NewAuthService(repo AuthRepository, opts ...Option) *Service {
	s := &Service{
		repo: repo,
		ttl:  24 * time.Hour,
		cost: bcrypt.DefaultCost,
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Signup registers a user and returns a token for the new session. An
// empty role registers a USER.
func (s *Service) Signup(ctx context.Context, in SignupInput) (string, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = normalizeEmail(in.Email)
	if in.Role == "" {
		in.Role = models.RoleUser
	}
	if err := validateSignup(in); err != nil {
		return "", err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}

	now := s.now().UTC()
	user := models.User{
		ID:           uuid.NewString(),
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: hash,
		Role:         in.Role,
		CreatedAt:    now,
	}
	sess, err := s.newSession(user.ID, now)
	if err != nil {
		return "", err
	}

	if err := s.repo.CreateUser(ctx, user, sess); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return "", ErrEmailTaken
		}
		return "", err
	}
	return sess.Token, nil
}

// Login checks the password for email and returns a token for a new
// session.
func (s *Service) Login(ctx context.Context, email, password string) (string, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return "", fmt.Errorf("%w: email and password are required", ErrInvalidInput)
	}

	user, err := s.repo.GetUserByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		// keep the response time of unknown emails close to a real check
		_ = bcrypt.CompareHashAndPassword(s.dummy(), []byte(password))
		return "", ErrInvalidCredentials
	}
	if err != nil {
		return "", err
	}

	if err := bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}

	now := s.now().UTC()
	sess, err := s.newSession(user.ID, now)
	if err != nil {
		return "", err
	}
	if err := s.repo.CreateSession(ctx, sess); err != nil {
		return "", err
	}
	return sess.Token, nil
}

// Identify returns the identity owning token.
func (s *Service) Identify(ctx context.Context, token string) (*models.Identity, error) {
	if token == "" {
		return nil, ErrInvalidToken
	}
	owner, err := s.repo.GetSessionOwner(ctx, token, s.now().UTC())
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrInvalidToken
	}
	if err != nil {
		return nil, err
	}
	id := models.IdentityFromUser(owner.User)
	return &id, nil
}

func (s *Service) newSession(userID string, now time.Time) (models.Session, error) {
	token, err := generateToken()
	if err != nil {
		return models.Session{}, err
	}
	return models.Session{Token: token, UserID: userID, ExpiresAt: now.Add(s.ttl)}, nil
}

func (s *Service) dummy() []byte {
	s.dummyOnce.Do(func() {
		s.dummyHash, _ = bcrypt.GenerateFromPassword([]byte("sessiongate-dummy"), s.cost)
	})
	return s.dummyHash
}

// generateToken returns 32 random bytes, base64url encoded.
func generateToken() (string, error) {
	b := make([]byte, tokenSize)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validateSignup(in SignupInput) error {
	switch {
	case in.Name == "":
		return fmt.Errorf("%w: name is required", ErrInvalidInput)
	case !emailPattern.MatchString(in.Email):
		return fmt.Errorf("%w: email is not valid", ErrInvalidInput)
	case len(in.Password) < minPasswordLen:
		return fmt.Errorf("%w: password must be at least %d characters", ErrInvalidInput, minPasswordLen)
	case len(in.Password) > maxPasswordLen:
		return fmt.Errorf("%w: password must be at most %d bytes", ErrInvalidInput, maxPasswordLen)
	case !in.Role.Valid():
		return fmt.Errorf("%w: role must be USER or ADMIN", ErrInvalidInput)
	}
	return nil
}

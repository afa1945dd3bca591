// Package repository provides the PostgreSQL persistence for users and
// their sessions.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/atinyakov/sessiongate/internal/models"
	"github.com/lib/pq"
)

var (
	// ErrNotFound is returned when no matching row exists.
	ErrNotFound = errors.New("not found")
	// ErrDuplicate is returned when a unique constraint rejects an insert.
	ErrDuplicate = errors.New("duplicate")
)

// uniqueViolation is the Postgres SQLSTATE for unique_violation.
const uniqueViolation = pq.ErrorCode("23505")

// PostgresAuthRepository stores users and sessions in PostgreSQL.
type PostgresAuthRepository struct {
	// DB is the database handle for executing queries.
	DB *sql.DB
}

// NewPostgresAuthRepository creates a new PostgresAuthRepository with the
// given database connection.
func NewPostgresAuthRepository(db *sql.DB) *PostgresAuthRepository {
	return &PostgresAuthRepository{DB: db}
}

// CreateUser inserts u together with its first session in one transaction.
// A taken email yields ErrDuplicate.
func (r *PostgresAuthRepository) CreateUser(ctx context.Context, u models.User, s models.Session) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO users (id, name, email, password_hash, role, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, u.ID, u.Name, u.Email, u.PasswordHash, string(u.Role), u.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return ErrDuplicate
		}
		return fmt.Errorf("insert user: %w", err)
	}

	if err := insertSession(ctx, tx, s); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// GetUserByEmail returns the user registered under email.
func (r *PostgresAuthRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var (
		u    models.User
		role string
	)
	err := r.DB.QueryRowContext(ctx, `
		SELECT id, name, email, password_hash, role, created_at FROM users WHERE email = $1
	`, email).Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &role, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("GetUserByEmail: %w", err)
	}
	u.Role = models.Role(role)
	return &u, nil
}

// CreateSession stores s.
func (r *PostgresAuthRepository) CreateSession(ctx context.Context, s models.Session) error {
	return insertSession(ctx, r.DB, s)
}

// GetSessionOwner returns the owner of token if the session has not
// expired at now.
func (r *PostgresAuthRepository) GetSessionOwner(ctx context.Context, token string, now time.Time) (*models.SessionOwner, error) {
	var (
		o    models.SessionOwner
		role string
	)
	err := r.DB.QueryRowContext(ctx, `
		SELECT u.id, u.name, u.email, u.role, u.created_at, s.expires_at
		  FROM sessions s
		  JOIN users u ON u.id = s.user_id
		 WHERE s.token = $1 AND s.expires_at > $2
	`, token, now).Scan(&o.User.ID, &o.User.Name, &o.User.Email, &role, &o.User.CreatedAt, &o.ExpiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("GetSessionOwner: %w", err)
	}
	o.User.Role = models.Role(role)
	return &o, nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertSession(ctx context.Context, db execer, s models.Session) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO sessions (token, user_id, expires_at) VALUES ($1, $2, $3)
	`, s.Token, s.UserID, s.ExpiresAt)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

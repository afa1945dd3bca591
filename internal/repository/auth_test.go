package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/atinyakov/sessiongate/internal/models"
	"github.com/lib/pq"
)

func setupAuthMock(t *testing.T) (*PostgresAuthRepository, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to open sqlmock database: %v", err)
	}
	repo := NewPostgresAuthRepository(db)
	cleanup := func() { db.Close() }
	return repo, mock, cleanup
}

var (
	testNow  = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	testUser = models.User{
		ID:           "u-1",
		Name:         "Ann",
		Email:        "ann@example.com",
		PasswordHash: []byte("hash"),
		Role:         models.RoleAdmin,
		CreatedAt:    testNow,
	}
	testSession = models.Session{Token: "tok", UserID: "u-1", ExpiresAt: testNow.Add(time.Hour)}
)

func TestCreateUser_Success(t *testing.T) {
	repo, mock, cleanup := setupAuthMock(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO users").
		WithArgs("u-1", "Ann", "ann@example.com", []byte("hash"), "ADMIN", testNow).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO sessions").
		WithArgs("tok", "u-1", testSession.ExpiresAt).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	if err := repo.CreateUser(context.Background(), testUser, testSession); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestCreateUser_Duplicate(t *testing.T) {
	repo, mock, cleanup := setupAuthMock(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO users").
		WillReturnError(&pq.Error{Code: "23505"})
	mock.ExpectRollback()

	err := repo.CreateUser(context.Background(), testUser, testSession)
	if !errors.Is(err, ErrDuplicate) {
		t.Fatalf("err = %v; want ErrDuplicate", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestCreateUser_SessionFailureRollsBack(t *testing.T) {
	repo, mock, cleanup := setupAuthMock(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO users").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO sessions").WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	err := repo.CreateUser(context.Background(), testUser, testSession)
	if err == nil || errors.Is(err, ErrDuplicate) {
		t.Fatalf("err = %v; want insert session failure", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestGetUserByEmail(t *testing.T) {
	repo, mock, cleanup := setupAuthMock(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, name, email, password_hash, role, created_at FROM users WHERE email = $1`)).
		WithArgs("ann@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "email", "password_hash", "role", "created_at"}).
			AddRow("u-1", "Ann", "ann@example.com", []byte("hash"), "ADMIN", testNow))

	u, err := repo.GetUserByEmail(context.Background(), "ann@example.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if u.ID != "u-1" || u.Role != models.RoleAdmin || string(u.PasswordHash) != "hash" {
		t.Errorf("GetUserByEmail = %+v", u)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestGetUserByEmail_NotFound(t *testing.T) {
	repo, mock, cleanup := setupAuthMock(t)
	defer cleanup()

	mock.ExpectQuery("FROM users WHERE email").
		WithArgs("nobody@example.com").
		WillReturnError(sql.ErrNoRows)

	if _, err := repo.GetUserByEmail(context.Background(), "nobody@example.com"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v; want ErrNotFound", err)
	}
}

func TestGetUserByEmail_QueryError(t *testing.T) {
	repo, mock, cleanup := setupAuthMock(t)
	defer cleanup()

	mock.ExpectQuery("FROM users WHERE email").WillReturnError(errors.New("query failed"))

	_, err := repo.GetUserByEmail(context.Background(), "a@b.c")
	if err == nil || errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v; want query failure", err)
	}
}

func TestCreateSession(t *testing.T) {
	repo, mock, cleanup := setupAuthMock(t)
	defer cleanup()

	mock.ExpectExec("INSERT INTO sessions").
		WithArgs("tok", "u-1", testSession.ExpiresAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.CreateSession(context.Background(), testSession); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestGetSessionOwner(t *testing.T) {
	repo, mock, cleanup := setupAuthMock(t)
	defer cleanup()

	expires := testNow.Add(time.Hour)
	mock.ExpectQuery("FROM sessions s").
		WithArgs("tok", testNow).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "email", "role", "created_at", "expires_at"}).
			AddRow("u-1", "Ann", "ann@example.com", "USER", testNow, expires))

	o, err := repo.GetSessionOwner(context.Background(), "tok", testNow)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if o.User.Name != "Ann" || o.User.Role != models.RoleUser || !o.ExpiresAt.Equal(expires) {
		t.Errorf("GetSessionOwner = %+v", o)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestGetSessionOwner_Expired(t *testing.T) {
	repo, mock, cleanup := setupAuthMock(t)
	defer cleanup()

	mock.ExpectQuery("FROM sessions s").
		WithArgs("old", testNow).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "email", "role", "created_at", "expires_at"}))

	if _, err := repo.GetSessionOwner(context.Background(), "old", testNow); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v; want ErrNotFound", err)
	}
}

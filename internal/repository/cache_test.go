package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/atinyakov/sessiongate/internal/models"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

// countingStore answers GetSessionOwner from a map and counts the calls.
type countingStore struct {
	AuthStore
	owners map[string]models.SessionOwner
	calls  int
}

func (s *countingStore) GetSessionOwner(_ context.Context, token string, now time.Time) (*models.SessionOwner, error) {
	s.calls++
	o, ok := s.owners[token]
	if !ok || !o.ExpiresAt.After(now) {
		return nil, ErrNotFound
	}
	return &o, nil
}

func newCacheFixture(t *testing.T, maxTTL time.Duration) (*CachedAuthRepository, *countingStore, *miniredis.Miniredis, *observer.ObservedLogs) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	store := &countingStore{owners: map[string]models.SessionOwner{
		"tok": {
			User:      models.User{ID: "u-1", Name: "Ann", Email: "ann@example.com", Role: models.RoleAdmin, PasswordHash: []byte("hash")},
			ExpiresAt: testNow.Add(time.Hour),
		},
	}}
	core, logs := observer.New(zap.WarnLevel)
	return NewCachedAuthRepository(store, client, maxTTL, zap.New(core)), store, mr, logs
}

func TestCachedGetSessionOwner_MissThenHit(t *testing.T) {
	repo, store, mr, _ := newCacheFixture(t, 0)
	ctx := context.Background()

	first, err := repo.GetSessionOwner(ctx, "tok", testNow)
	require.NoError(t, err)
	second, err := repo.GetSessionOwner(ctx, "tok", testNow)
	require.NoError(t, err)

	assert.Equal(t, 1, store.calls)
	assert.Equal(t, first.User.Name, second.User.Name)
	assert.Equal(t, models.RoleAdmin, second.User.Role)
	assert.True(t, second.ExpiresAt.Equal(first.ExpiresAt))
	assert.Empty(t, second.User.PasswordHash)

	assert.Equal(t, time.Hour, mr.TTL(repo.key("tok")))
	assert.False(t, mr.Exists(sessionKeyPrefix+"tok"), "raw token must not be a key")
}

func TestCachedGetSessionOwner_MaxTTL(t *testing.T) {
	repo, _, mr, _ := newCacheFixture(t, 5*time.Minute)

	_, err := repo.GetSessionOwner(context.Background(), "tok", testNow)
	require.NoError(t, err)
	assert.Equal(t, 5*time.Minute, mr.TTL(repo.key("tok")))
}

func TestCachedGetSessionOwner_ExpiredEntry(t *testing.T) {
	repo, store, _, _ := newCacheFixture(t, 0)
	ctx := context.Background()

	_, err := repo.GetSessionOwner(ctx, "tok", testNow)
	require.NoError(t, err)

	_, err = repo.GetSessionOwner(ctx, "tok", testNow.Add(2*time.Hour))
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 1, store.calls)
}

func TestCachedGetSessionOwner_NotFoundIsNotCached(t *testing.T) {
	repo, store, mr, _ := newCacheFixture(t, 0)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := repo.GetSessionOwner(ctx, "unknown", testNow)
		assert.ErrorIs(t, err, ErrNotFound)
	}
	assert.Equal(t, 2, store.calls)
	assert.Empty(t, mr.Keys())
}

func TestCachedGetSessionOwner_MalformedEntry(t *testing.T) {
	repo, store, mr, logs := newCacheFixture(t, 0)
	require.NoError(t, mr.Set(repo.key("tok"), "{not json"))

	o, err := repo.GetSessionOwner(context.Background(), "tok", testNow)
	require.NoError(t, err)
	assert.Equal(t, "Ann", o.User.Name)
	assert.Equal(t, 1, store.calls)
	assert.Equal(t, 1, logs.FilterMessage("dropping malformed session cache entry").Len())
}

func TestCachedGetSessionOwner_RedisDown(t *testing.T) {
	repo, store, mr, logs := newCacheFixture(t, 0)
	mr.Close()

	o, err := repo.GetSessionOwner(context.Background(), "tok", testNow)
	require.NoError(t, err)
	assert.Equal(t, "u-1", o.User.ID)
	assert.Equal(t, 1, store.calls)
	assert.Equal(t, 1, logs.FilterMessage("session cache read failed").Len())
	assert.Equal(t, 1, logs.FilterMessage("session cache write failed").Len())
}

func TestCachedAuthRepository_DelegatesWrites(t *testing.T) {
	pg, mock, cleanup := setupAuthMock(t)
	defer cleanup()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	mock.ExpectExec("INSERT INTO sessions").
		WithArgs("tok", "u-1", testSession.ExpiresAt).
		WillReturnError(errors.New("boom"))

	repo := NewCachedAuthRepository(pg, client, 0, nil)
	assert.Error(t, repo.CreateSession(context.Background(), testSession))
	assert.NoError(t, mock.ExpectationsWereMet())
}

package repository

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	"github.com/atinyakov/sessiongate/internal/models"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// AuthStore is the persistence contract of the auth service.
type AuthStore interface {
	CreateUser(ctx context.Context, u models.User, s models.Session) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	CreateSession(ctx context.Context, s models.Session) error
	GetSessionOwner(ctx context.Context, token string, now time.Time) (*models.SessionOwner, error)
}

const sessionKeyPrefix = "sessiongate:session:"

// CachedAuthRepository keeps resolved sessions in Redis in front of an
// AuthStore. An entry never outlives its session. Redis failures are logged
// and the lookup falls through to the store.
type CachedAuthRepository struct {
	AuthStore

	client *redis.Client
	maxTTL time.Duration
	log    *zap.Logger
}

// NewCachedAuthRepository wraps store. A positive maxTTL caps how long an
// entry is kept.
func NewCachedAuthRepository(store AuthStore, client *redis.Client, maxTTL time.Duration, log *zap.Logger) *CachedAuthRepository {
	if log == nil {
		log = zap.NewNop()
	}
	return &CachedAuthRepository{AuthStore: store, client: client, maxTTL: maxTTL, log: log}
}

type cachedOwner struct {
	ID        string      `json:"id"`
	Name      string      `json:"name"`
	Email     string      `json:"email"`
	Role      models.Role `json:"role"`
	CreatedAt time.Time   `json:"created_at"`
	ExpiresAt time.Time   `json:"expires_at"`
}

// GetSessionOwner serves token from Redis when present, otherwise from the
// wrapped store, caching the result until the session expires.
func (r *CachedAuthRepository) GetSessionOwner(ctx context.Context, token string, now time.Time) (*models.SessionOwner, error) {
	key := r.key(token)

	data, err := r.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var c cachedOwner
		if err := json.Unmarshal(data, &c); err != nil {
			r.log.Warn("dropping malformed session cache entry", zap.Error(err))
			r.client.Del(ctx, key)
			break
		}
		if !c.ExpiresAt.After(now) {
			return nil, ErrNotFound
		}
		return &models.SessionOwner{
			User:      models.User{ID: c.ID, Name: c.Name, Email: c.Email, Role: c.Role, CreatedAt: c.CreatedAt},
			ExpiresAt: c.ExpiresAt,
		}, nil
	case !errors.Is(err, redis.Nil):
		r.log.Warn("session cache read failed", zap.Error(err))
	}

	owner, err := r.AuthStore.GetSessionOwner(ctx, token, now)
	if err != nil {
		return nil, err
	}

	ttl := owner.ExpiresAt.Sub(now)
	if r.maxTTL > 0 && ttl > r.maxTTL {
		ttl = r.maxTTL
	}
	if ttl <= 0 {
		return owner, nil
	}
	data, err = json.Marshal(cachedOwner{
		ID:        owner.User.ID,
		Name:      owner.User.Name,
		Email:     owner.User.Email,
		Role:      owner.User.Role,
		CreatedAt: owner.User.CreatedAt,
		ExpiresAt: owner.ExpiresAt,
	})
	if err != nil {
		return owner, nil
	}
	if err := r.client.Set(ctx, key, data, ttl).Err(); err != nil {
		r.log.Warn("session cache write failed", zap.Error(err))
	}
	return owner, nil
}

// key hashes token so raw bearer tokens never appear in Redis.
func (r *CachedAuthRepository) key(token string) string {
	sum := sha256.Sum256([]byte(token))
	return sessionKeyPrefix + hex.EncodeToString(sum[:])
}

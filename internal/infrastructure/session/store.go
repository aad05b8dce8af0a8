package session

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/oksasatya/go-auth-facade/internal/domain/entity"
)

// Store persists a session between process runs.
type Store interface {
	Load(ctx context.Context, key string) (*Session, error)
	Save(ctx context.Context, key string, s Session) error
	Delete(ctx context.Context, key string) error
}

// Key returns the redis key of a device's session.
func Key(device string) string {
	return "auth:session:" + device
}

var errCorruptSession = errors.New("session: stored session has no uid")

// RedisStore keeps sessions as redis hashes.
type RedisStore struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisStore returns a store whose entries expire after ttl; zero keeps them forever.
func NewRedisStore(rdb *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{rdb: rdb, ttl: ttl}
}

func (r *RedisStore) Load(ctx context.Context, key string) (*Session, error) {
	data, err := r.rdb.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, nil
	}
	if data["uid"] == "" {
		return nil, errCorruptSession
	}
	verified, _ := strconv.ParseBool(data["email_verified"])
	return &Session{
		Identity: entity.Identity{
			UID:           data["uid"],
			Email:         entity.StringPtr(data["email"]),
			EmailVerified: verified,
			DisplayName:   entity.StringPtr(data["display_name"]),
		},
		IDToken:      data["id_token"],
		RefreshToken: data["refresh_token"],
	}, nil
}

func (r *RedisStore) Save(ctx context.Context, key string, s Session) error {
	fields := map[string]any{
		"uid":            s.Identity.UID,
		"email":          entity.Deref(s.Identity.Email),
		"email_verified": strconv.FormatBool(s.Identity.EmailVerified),
		"display_name":   entity.Deref(s.Identity.DisplayName),
		"id_token":       s.IDToken,
		"refresh_token":  s.RefreshToken,
		"created_at":     time.Now().UTC().Format(time.RFC3339Nano),
	}
	pipe := r.rdb.TxPipeline()
	pipe.Del(ctx, key)
	pipe.HSet(ctx, key, fields)
	if r.ttl > 0 {
		pipe.Expire(ctx, key, r.ttl)
	}
	_, err := pipe.Exec(ctx)
	return err
}

func (r *RedisStore) Delete(ctx context.Context, key string) error {
	return r.rdb.Del(ctx, key).Err()
}

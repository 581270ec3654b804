package loginsession

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jrsteele09/go-edu-portal/internal/errors"
	pkgerrors "github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

var _ Repo = (*RedisLoginSessionRepo)(nil)

const redisKeyPrefix = "portal:login-session:"

// RedisLoginSessionRepo keeps login sessions in Redis. Entries expire after
// the configured maximum session age.
type RedisLoginSessionRepo struct {
	client redis.UniversalClient
	ttl    time.Duration
}

func NewRedisLoginSessionRepo(client redis.UniversalClient, ttl time.Duration) *RedisLoginSessionRepo {
	return &RedisLoginSessionRepo{client: client, ttl: ttl}
}

func (r *RedisLoginSessionRepo) Upsert(ctx context.Context, clientID string, session Session) error {
	if clientID == "" {
		return pkgerrors.New("[RedisLoginSessionRepo Upsert] clientID is required")
	}
	raw, err := json.Marshal(session)
	if err != nil {
		return pkgerrors.Wrap(err, "[RedisLoginSessionRepo Upsert] marshal")
	}
	if err := r.client.Set(ctx, redisKeyPrefix+clientID, raw, r.ttl).Err(); err != nil {
		return pkgerrors.Wrap(err, "[RedisLoginSessionRepo Upsert] set")
	}
	return nil
}

func (r *RedisLoginSessionRepo) Get(ctx context.Context, clientID string) (Session, error) {
	raw, err := r.client.Get(ctx, redisKeyPrefix+clientID).Bytes()
	if pkgerrors.Is(err, redis.Nil) {
		return Session{}, errors.ErrSessionNotFound
	}
	if err != nil {
		return Session{}, pkgerrors.Wrap(err, "[RedisLoginSessionRepo Get]")
	}
	var session Session
	if err := json.Unmarshal(raw, &session); err != nil {
		return Session{}, pkgerrors.Wrap(err, "[RedisLoginSessionRepo Get] unmarshal")
	}
	return session, nil
}

func (r *RedisLoginSessionRepo) Delete(ctx context.Context, clientID string) error {
	if err := r.client.Del(ctx, redisKeyPrefix+clientID).Err(); err != nil {
		return pkgerrors.Wrap(err, "[RedisLoginSessionRepo Delete]")
	}
	return nil
}

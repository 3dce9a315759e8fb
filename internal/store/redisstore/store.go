package redisstore

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

const revokedTokenPrefix = "revoked_token:"

// Store wraps the redis client used for token revocation.
type Store struct {
	rdb *redis.Client
}

func New(addr, password string, db int) *Store {
	return &Store{rdb: redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})}
}

func (s *Store) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

// RevokeToken denylists a token id until it would have expired anyway.
func (s *Store) RevokeToken(ctx context.Context, tokenID string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	err := s.rdb.Set(ctx, revokedTokenPrefix+tokenID, 1, ttl).Err()
	return errors.Wrap(err, "revoke token")
}

func (s *Store) IsTokenRevoked(ctx context.Context, tokenID string) (bool, error) {
	err := s.rdb.Get(ctx, revokedTokenPrefix+tokenID).Err()
	if err == nil {
		return true, nil
	}
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	return false, errors.Wrap(err, "check token revocation")
}

func (s *Store) Close() error {
	return s.rdb.Close()
}

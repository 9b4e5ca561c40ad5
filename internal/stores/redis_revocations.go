package stores

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/MrEthical07/sessionauth/store"
	"github.com/redis/go-redis/v9"
)

const revocationKeyPrefix = "banned_token"

// RedisRevocations keys banned tokens by their SHA-256 digest so raw bearer
// credentials never sit in the cache.
type RedisRevocations struct {
	redis  redis.UniversalClient
	prefix string
}

var _ store.RevocationStore = (*RedisRevocations)(nil)

func NewRedisRevocations(redisClient redis.UniversalClient, prefix string) *RedisRevocations {
	if prefix == "" {
		prefix = revocationKeyPrefix
	}
	return &RedisRevocations{redis: redisClient, prefix: prefix}
}

func (s *RedisRevocations) key(token string) string {
	sum := sha256.Sum256([]byte(token))
	return s.prefix + ":" + hex.EncodeToString(sum[:])
}

func (s *RedisRevocations) Ban(ctx context.Context, token string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	// SET overwrites, so a second ban only refreshes the same deadline.
	if err := s.redis.Set(ctx, s.key(token), 1, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrUnavailable, err)
	}
	return nil
}

func (s *RedisRevocations) IsBanned(ctx context.Context, token string) (bool, error) {
	n, err := s.redis.Exists(ctx, s.key(token)).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", store.ErrUnavailable, err)
	}
	return n > 0, nil
}

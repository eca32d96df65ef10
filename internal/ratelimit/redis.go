package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	countPrefix     = "ratelimit:count:"
	violationPrefix = "ratelimit:violations:"
	banPrefix       = "ratelimit:ban:"
)

// RedisStore keeps counters in Redis so multiple instances share one view of
// each client.
type RedisStore struct {
	client redis.UniversalClient
}

var _ CounterStore = (*RedisStore)(nil)

// NewRedisStore wraps the client.
func NewRedisStore(client redis.UniversalClient) *RedisStore {
	return &RedisStore{client: client}
}

// Hit records one request for key and decides whether it may proceed.
func (s *RedisStore) Hit(ctx context.Context, key string, policy Policy) (Decision, error) {
	banned, err := s.client.Exists(ctx, banPrefix+key).Result()
	if err != nil {
		return Decision{}, fmt.Errorf("check ban: %w", err)
	}
	if banned > 0 {
		return Decision{Banned: true}, nil
	}

	count, err := s.incrWithTTL(ctx, countPrefix+key, policy.Window)
	if err != nil {
		return Decision{}, fmt.Errorf("count request: %w", err)
	}
	if count <= int64(policy.Max) {
		return Decision{Allowed: true}, nil
	}

	if count == int64(policy.Max)+1 {
		violations, err := s.incrWithTTL(ctx, violationPrefix+key, 2*policy.Window)
		if err != nil {
			return Decision{}, fmt.Errorf("count violation: %w", err)
		}
		if policy.BanAfter > 0 && violations >= int64(policy.BanAfter) {
			if err := s.client.Set(ctx, banPrefix+key, 1, policy.Window).Err(); err != nil {
				return Decision{}, fmt.Errorf("persist ban: %w", err)
			}
			return Decision{Banned: true}, nil
		}
	}

	return Decision{}, nil
}

func (s *RedisStore) incrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	count, err := s.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	if count == 1 {
		if err := s.client.Expire(ctx, key, ttl).Err(); err != nil {
			return 0, err
		}
	}
	return count, nil
}

package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"portfolio-server/internal/interfaces"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	guardFailuresPrefix = "guard:failures:"
	guardBanPrefix      = "guard:ban:"
)

// incrWithExpiry increments KEYS[1] and starts its window on the first
// failure. A counter that somehow lost its TTL gets one again.
var incrWithExpiry = redis.NewScript(`
local n = redis.call('INCR', KEYS[1])
if n == 1 or redis.call('PTTL', KEYS[1]) < 0 then
    redis.call('PEXPIRE', KEYS[1], ARGV[1])
end
return n
`)

var _ interfaces.GuardStore = (*redisGuardStore)(nil)

type redisGuardStore struct {
	client redis.UniversalClient
	logger *zap.Logger
}

// NewRedisGuardStore returns a GuardStore kept in Redis so every instance
// sees the same counters and bans.
func NewRedisGuardStore(client redis.UniversalClient, logger *zap.Logger) interfaces.GuardStore {
	return &redisGuardStore{
		client: client,
		logger: logger.Named("RedisGuardStore"),
	}
}

func (s *redisGuardStore) IncrementFailures(ctx context.Context, clientKey string, window time.Duration) (int64, error) {
	n, err := incrWithExpiry.Run(ctx, s.client, []string{guardFailuresPrefix + clientKey}, window.Milliseconds()).Int64()
	if err != nil {
		return 0, fmt.Errorf("failed to increment login failures: %w", err)
	}
	s.logger.Debug("Login failure counter incremented", zap.String("client", clientKey), zap.Int64("count", n))
	return n, nil
}

func (s *redisGuardStore) SetBan(ctx context.Context, clientKey string, ttl time.Duration) error {
	if err := s.client.Set(ctx, guardBanPrefix+clientKey, "1", ttl).Err(); err != nil {
		return fmt.Errorf("failed to set ban: %w", err)
	}
	return nil
}

func (s *redisGuardStore) IsBanned(ctx context.Context, clientKey string) (bool, error) {
	_, err := s.client.Get(ctx, guardBanPrefix+clientKey).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read ban: %w", err)
	}
	return true, nil
}

func (s *redisGuardStore) ResetFailures(ctx context.Context, clientKey string) error {
	if err := s.client.Del(ctx, guardFailuresPrefix+clientKey).Err(); err != nil {
		return fmt.Errorf("failed to reset login failures: %w", err)
	}
	return nil
}

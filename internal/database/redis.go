package database

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// NewRedisClient parses redisURL and pings the server, retrying like
// NewPool does.
func NewRedisClient(ctx context.Context, redisURL string, maxRetries int, retryDelay time.Duration, logger *zap.Logger) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("unable to parse redis url: %w", err)
	}
	if maxRetries <= 0 {
		maxRetries = 1
	}
	logger.Info("Redis connection options configured", zap.String("address", opts.Addr), zap.Int("db", opts.DB))

	var lastErr error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		client := redis.NewClient(opts)
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := client.Ping(pingCtx).Err()
		cancel()
		if err == nil {
			logger.Info("Connected to Redis", zap.Int("attempt", attempt))
			return client, nil
		}
		_ = client.Close()

		lastErr = err
		logger.Warn("Redis not ready, retrying...",
			zap.Int("attempt", attempt),
			zap.Int("max_retries", maxRetries),
			zap.Error(err),
		)
		if attempt < maxRetries {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(retryDelay):
			}
		}
	}
	return nil, fmt.Errorf("failed to connect to redis after %d attempts: %w", maxRetries, lastErr)
}

package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/fixora/kpiboard/internal/infra/logger"
	"github.com/fixora/kpiboard/internal/ports"
)

// Config sets the request budget per key
type Config struct {
	Enabled       bool
	UseRedis      bool
	RedisURL      string
	RedisTimeout  time.Duration
	Requests      int
	Window        time.Duration
	BlockDuration time.Duration
}

// New returns the limiter selected by config: a no-op when disabled, a
// Redis-backed limiter shared across replicas, or an in-process one
func New(ctx context.Context, config Config, log logger.Logger) (ports.RateLimiter, error) {
	if !config.Enabled {
		log.Info(ctx, "Rate limiting disabled", nil)
		return noopLimiter{}, nil
	}

	fields := map[string]interface{}{
		"requests":       config.Requests,
		"window":         config.Window.String(),
		"block_duration": config.BlockDuration.String(),
	}

	if !config.UseRedis {
		log.Info(ctx, "In-process rate limiting initialized", fields)
		return NewLocalLimiter(config), nil
	}

	opt, err := redis.ParseURL(config.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	client := redis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(ctx, config.RedisTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	log.Info(ctx, "Redis rate limiting initialized", fields)
	return NewRedisLimiter(client, config, log), nil
}

// RedisLimiter counts requests per fixed window in Redis
type RedisLimiter struct {
	client *redis.Client
	config Config
	logger logger.Logger
}

// NewRedisLimiter creates a limiter on an existing client
func NewRedisLimiter(client *redis.Client, config Config, log logger.Logger) *RedisLimiter {
	return &RedisLimiter{client: client, config: config, logger: log}
}

// Allow increments the counter for key and reports whether it is still
// within the budget. The window starts at the first request.
func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	count, err := l.client.Incr(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to increment rate limit: %w", err)
	}
	if count == 1 {
		if err := l.client.Expire(ctx, key, l.config.Window).Err(); err != nil {
			return false, fmt.Errorf("failed to set rate limit window: %w", err)
		}
	}

	l.logger.Debug(ctx, "Rate limit check", map[string]interface{}{
		"key":   key,
		"count": count,
		"limit": l.config.Requests,
	})
	return count <= int64(l.config.Requests), nil
}

// IsBlocked checks the block marker of key
func (l *RedisLimiter) IsBlocked(ctx context.Context, key string) (bool, error) {
	n, err := l.client.Exists(ctx, blockKey(key)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check block status: %w", err)
	}
	return n > 0, nil
}

// Block sets a block marker on key for the configured duration
func (l *RedisLimiter) Block(ctx context.Context, key string) error {
	bk := blockKey(key)
	pipe := l.client.Pipeline()
	pipe.HSet(ctx, bk, map[string]interface{}{
		"blocked_at":     time.Now().Unix(),
		"duration":       l.config.BlockDuration.Seconds(),
		"correlation_id": logger.CorrelationID(ctx),
	})
	pipe.Expire(ctx, bk, l.config.BlockDuration)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to block key: %w", err)
	}
	return nil
}

func blockKey(key string) string {
	return "blocked:" + key
}

type noopLimiter struct{}

func (noopLimiter) Allow(context.Context, string) (bool, error)     { return true, nil }
func (noopLimiter) IsBlocked(context.Context, string) (bool, error) { return false, nil }
func (noopLimiter) Block(context.Context, string) error             { return nil }

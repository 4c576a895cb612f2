package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// LocalLimiter is a per-key token bucket kept in process memory
type LocalLimiter struct {
	mu       sync.Mutex
	limits   map[string]*rate.Limiter
	blocked  map[string]time.Time
	every    rate.Limit
	burst    int
	blockFor time.Duration
	now      func() time.Time
}

// NewLocalLimiter refills config.Requests tokens per config.Window
func NewLocalLimiter(config Config) *LocalLimiter {
	burst := config.Requests
	if burst < 1 {
		burst = 1
	}
	return &LocalLimiter{
		limits:   make(map[string]*rate.Limiter),
		blocked:  make(map[string]time.Time),
		every:    rate.Every(config.Window / time.Duration(burst)),
		burst:    burst,
		blockFor: config.BlockDuration,
		now:      time.Now,
	}
}

func (l *LocalLimiter) getLimiter(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	if limiter, ok := l.limits[key]; ok {
		return limiter
	}
	limiter := rate.NewLimiter(l.every, l.burst)
	l.limits[key] = limiter
	return limiter
}

// Allow takes one token for key
func (l *LocalLimiter) Allow(_ context.Context, key string) (bool, error) {
	return l.getLimiter(key).AllowN(l.now(), 1), nil
}

// IsBlocked reports whether key is inside a block period
func (l *LocalLimiter) IsBlocked(_ context.Context, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	until, ok := l.blocked[key]
	if !ok {
		return false, nil
	}
	if !l.now().Before(until) {
		delete(l.blocked, key)
		return false, nil
	}
	return true, nil
}

// Block rejects key until the block duration has passed
func (l *LocalLimiter) Block(_ context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.blocked[key] = l.now().Add(l.blockFor)
	return nil
}

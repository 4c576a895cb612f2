package middleware

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/fixora/kpiboard/internal/infra/logger"
	"github.com/fixora/kpiboard/internal/infra/response"
	"github.com/fixora/kpiboard/internal/ports"
)

type RateLimitMiddleware struct {
	limiter       ports.RateLimiter
	blockDuration time.Duration
	logger        logger.Logger
	trustProxy    bool
}

// RateLimitOption configures a RateLimitMiddleware
type RateLimitOption func(*RateLimitMiddleware)

// TrustProxyHeaders keys clients by X-Forwarded-For / X-Real-IP. Enable it
// only behind a proxy that overwrites those headers.
func TrustProxyHeaders(trust bool) RateLimitOption {
	return func(m *RateLimitMiddleware) { m.trustProxy = trust }
}

func NewRateLimitMiddleware(limiter ports.RateLimiter, blockDuration time.Duration, log logger.Logger, opts ...RateLimitOption) *RateLimitMiddleware {
	m := &RateLimitMiddleware{
		limiter:       limiter,
		blockDuration: blockDuration,
		logger:        log,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// RateLimit budgets requests per client IP. Scoring uploads get their
// own bucket so a bulk import cannot starve report reads.
func (m *RateLimitMiddleware) RateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.limiter == nil {
			next.ServeHTTP(w, r)
			return
		}

		ctx := r.Context()
		clientIP := getClientIP(r, m.trustProxy)

		key := fmt.Sprintf("read:ip:%s", clientIP)
		if r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/score") {
			key = fmt.Sprintf("score:ip:%s", clientIP)
		}
		fields := map[string]interface{}{
			"ip":   clientIP,
			"key":  key,
			"path": r.URL.Path,
		}

		// Limiter failures let the request through.
		blocked, err := m.limiter.IsBlocked(ctx, key)
		if err != nil {
			m.logger.Error(ctx, "Failed to check block status", err, fields)
		}
		if blocked {
			logger.LogSecurityEvent(ctx, m.logger, "rate_limit_blocked", "MEDIUM", fields)
			m.reject(w)
			return
		}

		allowed, err := m.limiter.Allow(ctx, key)
		if err != nil {
			m.logger.Error(ctx, "Failed to check rate limit", err, fields)
			allowed = true
		}
		if !allowed {
			if err := m.limiter.Block(ctx, key); err != nil {
				m.logger.Error(ctx, "Failed to block client", err, fields)
			}
			logger.LogSecurityEvent(ctx, m.logger, "rate_limit_exceeded", "HIGH", fields)
			m.reject(w)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (m *RateLimitMiddleware) reject(w http.ResponseWriter) {
	w.Header().Set("Retry-After", fmt.Sprintf("%d", int(m.blockDuration.Seconds())))
	response.TooManyRequests(w, "Too many requests. Please try again later.")
}

// getClientIP extracts client IP from request. Forwarding headers are
// client-controlled unless a proxy rewrites them, so they are read only
// when trustProxy is set.
func getClientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			return strings.TrimSpace(strings.Split(xff, ",")[0])
		}
		if xri := r.Header.Get("X-Real-IP"); xri != "" {
			return xri
		}
	}

	ip := r.RemoteAddr
	if idx := strings.LastIndex(ip, ":"); idx != -1 {
		ip = ip[:idx]
	}
	return ip
}

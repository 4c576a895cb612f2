package ports

import (
	"context"

	"github.com/fixora/kpiboard/internal/domain"
)

// RecordRepository loads ticket and incident records for scoring
type RecordRepository interface {
	// List returns the records of filter.Kind whose open time falls in
	// [filter.From, filter.To]. Timestamps come back unsanitized.
	List(ctx context.Context, filter domain.RecordFilter) ([]domain.RawRecord, error)
}

// RateLimiter tracks request counts per key
type RateLimiter interface {
	// Allow records a request for key and reports whether it is within limit
	Allow(ctx context.Context, key string) (bool, error)

	// IsBlocked reports whether key is currently blocked
	IsBlocked(ctx context.Context, key string) (bool, error)

	// Block rejects every request for key until the block expires
	Block(ctx context.Context, key string) error
}

package domain

import (
	"context"
	"time"
)

// RateLimiter guards the sign and verify endpoints. Limiting is fixed-window
// per key; the decision carries enough to emit RateLimit-* headers.
type RateLimitDecision struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (RateLimitDecision, error)
}

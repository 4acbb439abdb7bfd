package ratelimit

import (
	"context"
	"errors"
	"time"

	"docseal/internal/domain"

	"github.com/redis/go-redis/v9"
)

// defaultRedisKeyPrefix namespaces limiter counters so the limiter can share
// a redis instance with other services without colliding.
const defaultRedisKeyPrefix = "docseal:ratelimit:"

type RedisLimiterConfig struct {
	Addr     string
	Password string
	DB       int

	// KeyPrefix defaults to defaultRedisKeyPrefix.
	KeyPrefix string

	Now func() time.Time
}

type redisLimiter struct {
	client    *redis.Client
	keyPrefix string
	now       func() time.Time
}

// fixedWindowScript increments the counter and stamps the window expiry in
// one round trip so concurrent callers can never observe a counter without a
// TTL.
var fixedWindowScript = redis.NewScript(`
local hits = redis.call("INCR", KEYS[1])
if hits == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return {hits, redis.call("PTTL", KEYS[1])}
`)

func NewRedisLimiter(cfg RedisLimiterConfig) (domain.RateLimiter, error) {
	if cfg.Addr == "" {
		return nil, errors.New("redis addr is required")
	}
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = defaultRedisKeyPrefix
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return &redisLimiter{client: client, keyPrefix: cfg.KeyPrefix, now: cfg.Now}, nil
}

func (r *redisLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (domain.RateLimitDecision, error) {
	if limit <= 0 {
		return domain.RateLimitDecision{Allowed: true, Limit: limit, Remaining: limit}, nil
	}
	windowMillis := window.Milliseconds()
	if windowMillis <= 0 {
		windowMillis = 1000
	}
	raw, err := fixedWindowScript.Run(ctx, r.client, []string{r.keyPrefix + key}, windowMillis).Result()
	if err != nil {
		return domain.RateLimitDecision{}, err
	}
	hits, ttlMillis, err := parseFixedWindowReply(raw)
	if err != nil {
		return domain.RateLimitDecision{}, err
	}
	return buildDecision(hits, ttlMillis, limit, r.now()), nil
}

func parseFixedWindowReply(raw any) (hits, ttlMillis int64, err error) {
	values, ok := raw.([]any)
	if !ok || len(values) != 2 {
		return 0, 0, errors.New("unexpected rate limit script reply")
	}
	hits, ok = values[0].(int64)
	if !ok {
		return 0, 0, errors.New("non-integer hit count in script reply")
	}
	ttlMillis, _ = values[1].(int64)
	return hits, ttlMillis, nil
}

func buildDecision(hits, ttlMillis int64, limit int, now time.Time) domain.RateLimitDecision {
	decision := domain.RateLimitDecision{
		Allowed: hits <= int64(limit),
		Limit:   limit,
		ResetAt: now,
	}
	if remaining := limit - int(hits); remaining > 0 {
		decision.Remaining = remaining
	}
	if ttlMillis > 0 {
		decision.ResetAt = now.Add(time.Duration(ttlMillis) * time.Millisecond)
	}
	return decision
}

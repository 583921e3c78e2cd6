package ratelimit

import (
	"context"
	"fmt"
	"time"

	"receptionist-server/internal/clients/redis"
	"receptionist-server/internal/observability"
)

// Result represents the outcome of a rate limit check
type Result struct {
	Allowed    bool      `json:"allowed"`
	Limit      int       `json:"limit"`
	Remaining  int       `json:"remaining"`
	ResetAt    time.Time `json:"reset_at"`
	RetryAfter int       `json:"retry_after_seconds,omitempty"`
}

// Service rate limits inbound webhook requests per caller. It uses a Redis
// fixed window; when Redis is disabled or unreachable the check fails open
// so a cache outage never blocks incoming calls.
type Service struct {
	redis  *redis.Client
	limit  int
	window time.Duration
	logger *observability.Logger
}

// NewService creates a rate limiting service allowing limit requests per window.
func NewService(redisClient *redis.Client, limit int, window time.Duration,
	logger *observability.Logger) *Service {
	if limit <= 0 {
		limit = 100
	}
	if window <= 0 {
		window = time.Minute
	}
	return &Service{
		redis:  redisClient,
		limit:  limit,
		window: window,
		logger: logger,
	}
}

// Check records one request for key and reports whether it is within the limit.
func (s *Service) Check(ctx context.Context, key string) (Result, error) {
	now := time.Now()
	windowStart := now.Truncate(s.window)
	resetAt := windowStart.Add(s.window)

	if s.redis == nil || !s.redis.IsEnabled() {
		return Result{Allowed: true, Limit: s.limit, Remaining: s.limit, ResetAt: resetAt}, nil
	}

	redisKey := fmt.Sprintf("rl:%s:%d", key, windowStart.Unix())
	count, err := s.redis.Incr(ctx, redisKey)
	if err != nil {
		return Result{}, fmt.Errorf("failed to increment rate limit counter: %w", err)
	}
	if count == 1 {
		// Expire a window late so in-flight reads never hit a missing key.
		if err := s.redis.Expire(ctx, redisKey, 2*s.window); err != nil {
			s.logger.Warn(observability.WithFields(ctx,
				observability.Field{Key: "rate_limit_key", Value: redisKey},
			), "failed to set expiration on rate limit key")
		}
	}

	if count > int64(s.limit) {
		retryAfter := int(resetAt.Sub(now).Seconds())
		if retryAfter < 1 {
			retryAfter = 1
		}
		return Result{
			Allowed:    false,
			Limit:      s.limit,
			Remaining:  0,
			ResetAt:    resetAt,
			RetryAfter: retryAfter,
		}, nil
	}

	return Result{
		Allowed:   true,
		Limit:     s.limit,
		Remaining: s.limit - int(count),
		ResetAt:   resetAt,
	}, nil
}

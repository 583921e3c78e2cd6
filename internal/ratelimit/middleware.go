package ratelimit

import (
	"fmt"
	"net/http"

	"receptionist-server/internal/observability"

	"github.com/gin-gonic/gin"
)

// Middleware creates a gin middleware rate limiting webhook requests by the
// calling phone number, falling back to the client IP when Twilio's From
// parameter is absent.
func (s *Service) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		key := c.PostForm("From")
		if key == "" {
			key = c.ClientIP()
		}

		result, err := s.Check(ctx, key)
		if err != nil {
			// Fail open: a cache outage must not block incoming calls.
			s.logger.Error(ctx, "rate limit check failed, allowing request", err)
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", fmt.Sprintf("%d", result.Limit))
		c.Header("X-RateLimit-Remaining", fmt.Sprintf("%d", result.Remaining))
		c.Header("X-RateLimit-Reset", fmt.Sprintf("%d", result.ResetAt.Unix()))

		if !result.Allowed {
			c.Header("Retry-After", fmt.Sprintf("%d", result.RetryAfter))
			s.logger.Warn(observability.WithFields(ctx,
				observability.Field{Key: "rate_limit_key", Value: key},
				observability.Field{Key: "limit", Value: result.Limit},
			), "rate limit exceeded")
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":       "Rate limit exceeded",
				"code":        "RATE_LIMITED",
				"retry_after": result.RetryAfter,
			})
			c.Abort()
			return
		}

		c.Next()
	}
}

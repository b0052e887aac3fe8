package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"ai_server/pkg/apperr"
)

// RateLimitConfig holds configuration for rate limiting
type RateLimitConfig struct {
	PerMinute int      // 0이면 비활성화
	SkipPaths []string // prefix match
}

// RateLimit limits requests per client IP over a one-minute window. Limited
// requests get the standard error envelope with a retry_after detail.
func RateLimit(cfg RateLimitConfig) fiber.Handler {
	if cfg.PerMinute <= 0 {
		return func(c *fiber.Ctx) error { return c.Next() }
	}

	return limiter.New(limiter.Config{
		Max:        cfg.PerMinute,
		Expiration: time.Minute,
		Next: func(c *fiber.Ctx) bool {
			for _, p := range cfg.SkipPaths {
				if strings.HasPrefix(c.Path(), p) {
					return true
				}
			}
			return false
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return apperr.New(apperr.CodeRateLimited, "rate limit exceeded", http.StatusTooManyRequests).
				WithDetail("retry_after", c.GetRespHeader(fiber.HeaderRetryAfter))
		},
	})
}

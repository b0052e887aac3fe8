package middleware

import (
	"github.com/gofiber/fiber/v2"
)

// SecurityHeaders sets response headers for a JSON-only API. Analysis
// results are per-request, so nothing is cacheable by intermediaries.
func SecurityHeaders() fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		c.Set("Referrer-Policy", "no-referrer")
		c.Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")

		if c.Method() != fiber.MethodGet || c.Path() != "/metrics" {
			c.Set(fiber.HeaderCacheControl, "no-store")
		}
		return c.Next()
	}
}

package middleware

import (
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"ai_server/pkg/apperr"
	"ai_server/pkg/metrics"
)

// Metrics records request counts and latency per matched route. Unmatched
// paths are grouped under one label so scanners cannot blow up cardinality.
func Metrics(m *metrics.Metrics) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if m == nil {
			return c.Next()
		}
		start := time.Now()

		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			var fe *fiber.Error
			if errors.As(err, &fe) {
				status = fe.Code
			} else {
				status = apperr.GetHTTPStatus(err)
			}
		}

		route := "unmatched"
		if r := c.Route(); r != nil && r.Path != "/" && r.Path != "" {
			route = r.Path
		}
		m.ObserveRequest(c.Method(), route, strconv.Itoa(status), time.Since(start))
		return err
	}
}

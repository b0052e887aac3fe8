package http

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"ai_server/pkg/metrics"
	"ai_server/pkg/resilience"
)

const ServiceName = "Awaaz AI Service"

type HealthChecker interface {
	Ping(ctx context.Context) error
}

// ModelStatus reports whether a lazily loaded model is in memory.
type ModelStatus interface {
	Ready() bool
}

type HealthHandler struct {
	version  string
	redis    HealthChecker
	models   map[string]ModelStatus
	breakers []*resilience.Breaker
	metrics  *metrics.Metrics
}

// NewHealthHandler creates the health handler. Every dependency may be nil.
func NewHealthHandler(version string, redis HealthChecker, models map[string]ModelStatus, breakers []*resilience.Breaker, m *metrics.Metrics) *HealthHandler {
	return &HealthHandler{
		version:  version,
		redis:    redis,
		models:   models,
		breakers: breakers,
		metrics:  m,
	}
}

func (h *HealthHandler) Register(app *fiber.App) {
	app.Get("/health", h.Health)
	app.Get("/ready", h.Ready)
}

func (h *HealthHandler) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "healthy",
		"service": ServiceName,
		"version": h.version,
	})
}

// Ready fails only when Redis is configured and unreachable. Models load
// lazily, so an unloaded model is reported but does not fail readiness.
func (h *HealthHandler) Ready(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	checks := make(map[string]string)
	allHealthy := true

	if h.redis != nil {
		if err := h.redis.Ping(ctx); err != nil {
			checks["redis"] = "unhealthy: " + err.Error()
			allHealthy = false
		} else {
			checks["redis"] = "healthy"
		}
	} else {
		checks["redis"] = "not configured"
	}

	models := make(map[string]string, len(h.models))
	for name, m := range h.models {
		if m.Ready() {
			models[name] = "loaded"
		} else {
			models[name] = "not loaded"
		}
	}

	breakers := make(map[string]string, len(h.breakers))
	for _, b := range h.breakers {
		breakers[b.Name()] = b.State().String()
	}

	status := "ready"
	statusCode := fiber.StatusOK
	if !allHealthy {
		status = "not ready"
		statusCode = fiber.StatusServiceUnavailable
	}

	resp := fiber.Map{
		"status":    status,
		"checks":    checks,
		"models":    models,
		"breakers":  breakers,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	if h.metrics != nil {
		resp["latency"] = h.metrics.Latency.AllStats()
	}

	return c.Status(statusCode).JSON(resp)
}

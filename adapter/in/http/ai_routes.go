package http

import (
	"github.com/gofiber/fiber/v2"
)

const APIPrefix = "/api/v1"

// Handlers groups every route handler. Nil handlers are skipped.
type Handlers struct {
	Health    *HealthHandler
	Classify  *ClassifyHandler
	Cluster   *ClusterHandler
	Priority  *PriorityHandler
	Sentiment *SentimentHandler
	Meta      *MetaHandler
	Analyze   *AnalyzeHandler
}

// Register mounts /health and /ready at the root and the rest under /api/v1.
// Middleware passed in apiMiddleware applies only to the /api/v1 group.
func (h Handlers) Register(app *fiber.App, apiMiddleware ...fiber.Handler) {
	if h.Health != nil {
		h.Health.Register(app)
	}

	api := app.Group(APIPrefix)
	for _, mw := range apiMiddleware {
		api.Use(mw)
	}

	if h.Classify != nil {
		h.Classify.Register(api)
	}
	if h.Cluster != nil {
		h.Cluster.Register(api)
	}
	if h.Priority != nil {
		h.Priority.Register(api)
	}
	if h.Sentiment != nil {
		h.Sentiment.Register(api)
	}
	if h.Meta != nil {
		h.Meta.Register(api)
	}
	if h.Analyze != nil {
		h.Analyze.Register(api)
	}
}

package http

import (
	"github.com/gofiber/fiber/v2"

	"ai_server/core/domain"
	"ai_server/core/port/in"
	"ai_server/core/port/out"
)

// ModelNamer reports the name of the model behind a service.
type ModelNamer interface {
	ModelName() string
}

type MetaHandler struct {
	classifier ModelNamer
	sentiment  ModelNamer
	embeddings in.EmbeddingService
	cache      out.StatsReporter
}

// NewMetaHandler creates the metadata handler. cache may be nil.
func NewMetaHandler(classifier, sentiment ModelNamer, embeddings in.EmbeddingService, cache out.StatsReporter) *MetaHandler {
	return &MetaHandler{
		classifier: classifier,
		sentiment:  sentiment,
		embeddings: embeddings,
		cache:      cache,
	}
}

func (h *MetaHandler) Register(router fiber.Router) {
	router.Get("/categories", h.Categories)
	router.Get("/models", h.Models)
}

// Categories handles GET /categories
func (h *MetaHandler) Categories(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"categories": domain.CategoryNames(),
	})
}

// Models handles GET /models
func (h *MetaHandler) Models(c *fiber.Ctx) error {
	info := h.embeddings.ModelInfo()
	resp := fiber.Map{
		"classification_model": h.classifier.ModelName(),
		"embedding_model":      info.Model,
		"embedding_dimension":  info.Dimension,
		"sentiment_model":      h.sentiment.ModelName(),
		"language":             "multilingual",
	}
	if h.cache != nil {
		resp["embedding_cache"] = h.cache.Stats()
	}
	return c.JSON(resp)
}

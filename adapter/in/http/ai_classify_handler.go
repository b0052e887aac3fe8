package http

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"ai_server/core/domain"
	"ai_server/core/port/in"
	"ai_server/core/service/classification"
	"ai_server/pkg/logger"
	"ai_server/pkg/metrics"
)

type ClassifyHandler struct {
	classifier in.Classifier
	metrics    *metrics.Metrics
}

func NewClassifyHandler(classifier in.Classifier, m *metrics.Metrics) *ClassifyHandler {
	return &ClassifyHandler{classifier: classifier, metrics: m}
}

func (h *ClassifyHandler) Register(router fiber.Router) {
	router.Post("/classify", h.Classify)
	router.Post("/classify-batch", h.ClassifyBatch)
}

// Classify handles POST /classify
func (h *ClassifyHandler) Classify(c *fiber.Ctx) error {
	var req classification.Request
	if err := parseBody(c, &req); err != nil {
		return err
	}

	ctx := c.UserContext()
	result := h.classifier.Classify(ctx, req)
	h.observe(result)

	logger.WithContext(ctx).Info("Classified issue: %s", result.PrimaryCategory)
	return c.JSON(result)
}

// ClassifyBatch handles POST /classify-batch
func (h *ClassifyHandler) ClassifyBatch(c *fiber.Ctx) error {
	var reqs []classification.Request
	if err := parseBody(c, &reqs); err != nil {
		return err
	}

	results := h.classifier.ClassifyBatch(c.UserContext(), reqs)
	for _, r := range results {
		h.observe(r)
	}

	return c.JSON(fiber.Map{
		"classifications": results,
		"count":           len(results),
	})
}

func (h *ClassifyHandler) observe(r *domain.ClassificationResult) {
	if strings.HasPrefix(r.Reasoning, "Classification failed") {
		h.metrics.ObserveFallback("classification")
	}
}

package http

import (
	"github.com/gofiber/fiber/v2"

	"ai_server/core/port/in"
)

type SentimentHandler struct {
	analyzer in.SentimentAnalyzer
}

func NewSentimentHandler(analyzer in.SentimentAnalyzer) *SentimentHandler {
	return &SentimentHandler{analyzer: analyzer}
}

func (h *SentimentHandler) Register(router fiber.Router) {
	router.Post("/sentiment", h.Analyze)
}

// Analyze handles POST /sentiment. The body is a bare JSON array of texts.
func (h *SentimentHandler) Analyze(c *fiber.Ctx) error {
	var texts []string
	if err := parseBody(c, &texts); err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"sentiments": h.analyzer.AnalyzeBatch(c.UserContext(), texts),
	})
}

package http

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"ai_server/core/domain"
	"ai_server/core/port/in"
	"ai_server/core/service/analysis"
	"ai_server/internal/stream"
	"ai_server/pkg/apperr"
)

// JobPublisher enqueues complaints for the background worker.
type JobPublisher interface {
	PublishAnalyze(ctx context.Context, c domain.Complaint, includeEmbedding bool) (string, error)
}

type analyzeRequest struct {
	domain.Complaint
	IncludeEmbedding bool `json:"include_embedding"`
}

type AnalyzeHandler struct {
	analyzer  in.Analyzer
	publisher JobPublisher
}

// NewAnalyzeHandler creates the analyze handler. publisher may be nil, in
// which case async requests are rejected.
func NewAnalyzeHandler(analyzer in.Analyzer, publisher JobPublisher) *AnalyzeHandler {
	return &AnalyzeHandler{analyzer: analyzer, publisher: publisher}
}

func (h *AnalyzeHandler) Register(router fiber.Router) {
	router.Post("/analyze", h.Analyze)
}

// Analyze handles POST /analyze. With ?async=true the complaint is queued
// on the analyze stream and the job id is returned.
func (h *AnalyzeHandler) Analyze(c *fiber.Ctx) error {
	var req analyzeRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	ctx := c.UserContext()

	if c.QueryBool("async", false) {
		if h.publisher == nil {
			return apperr.New("SERVICE_UNAVAILABLE", "async analysis requires redis", fiber.StatusServiceUnavailable)
		}
		jobID, err := h.publisher.PublishAnalyze(ctx, req.Complaint, req.IncludeEmbedding)
		if err != nil {
			return apperr.ExternalError("redis", err)
		}
		return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
			"job_id": jobID,
			"status": "queued",
			"stream": stream.StreamAnalyze,
		})
	}

	result := h.analyzer.Analyze(ctx, &req.Complaint, analysis.Options{IncludeEmbedding: req.IncludeEmbedding})
	return c.JSON(result)
}

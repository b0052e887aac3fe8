package http

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"ai_server/core/domain"
	"ai_server/core/port/in"
	"ai_server/core/service/priority"
	"ai_server/pkg/apperr"
	"ai_server/pkg/logger"
	"ai_server/pkg/metrics"
)

type priorityRequest struct {
	IssueID         string     `json:"issue_id"`
	Category        string     `json:"category"`
	LocationDensity float64    `json:"location_density"`
	CitizenUpvotes  int        `json:"citizen_upvotes"`
	AgeHours        int        `json:"age_hours"`
	SafetyRating    float64    `json:"safety_rating"`
	CreatedAt       *time.Time `json:"created_at,omitempty"`
}

func (r priorityRequest) input() domain.PriorityInput {
	return domain.PriorityInput{
		IssueID:         r.IssueID,
		Category:        r.Category,
		LocationDensity: r.LocationDensity,
		CitizenUpvotes:  r.CitizenUpvotes,
		AgeHours:        r.AgeHours,
		SafetyRating:    r.SafetyRating,
	}
}

// priorityResponse carries the SLA fields only when created_at was sent.
type priorityResponse struct {
	*domain.PriorityResult
	SLAHours    int    `json:"sla_hours,omitempty"`
	SLADeadline string `json:"sla_deadline,omitempty"`
}

type slaRequest struct {
	PriorityLevel string     `json:"priority_level"`
	CreatedAt     *time.Time `json:"created_at,omitempty"`
}

type PriorityHandler struct {
	prioritizer in.Prioritizer
	metrics     *metrics.Metrics
	now         func() time.Time
}

func NewPriorityHandler(prioritizer in.Prioritizer, m *metrics.Metrics) *PriorityHandler {
	return &PriorityHandler{
		prioritizer: prioritizer,
		metrics:     m,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

func (h *PriorityHandler) Register(router fiber.Router) {
	router.Post("/prioritize", h.Prioritize)
	router.Post("/prioritize-batch", h.PrioritizeBatch)
	router.Post("/sla", h.SLA)
}

// Prioritize handles POST /prioritize
func (h *PriorityHandler) Prioritize(c *fiber.Ctx) error {
	var req priorityRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	result := h.prioritizer.Calculate(req.input())
	resp := h.respond(req, result)

	logger.WithContext(c.UserContext()).
		WithField("issue_id", req.IssueID).
		Info("Priority calculated: %s (%d)", result.PriorityLevel, result.PriorityScore)
	return c.JSON(resp)
}

// PrioritizeBatch handles POST /prioritize-batch
func (h *PriorityHandler) PrioritizeBatch(c *fiber.Ctx) error {
	var reqs []priorityRequest
	if err := parseBody(c, &reqs); err != nil {
		return err
	}

	inputs := make([]domain.PriorityInput, len(reqs))
	for i, r := range reqs {
		inputs[i] = r.input()
	}
	results := h.prioritizer.CalculateBatch(inputs)

	priorities := make([]priorityResponse, len(results))
	for i, r := range results {
		priorities[i] = h.respond(reqs[i], r)
	}

	return c.JSON(fiber.Map{
		"priorities": priorities,
		"count":      len(priorities),
	})
}

// SLA handles POST /sla
func (h *PriorityHandler) SLA(c *fiber.Ctx) error {
	var req slaRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if strings.TrimSpace(req.PriorityLevel) == "" {
		return apperr.MissingField("priority_level")
	}

	createdAt := h.now()
	if req.CreatedAt != nil {
		createdAt = *req.CreatedAt
	}
	return c.JSON(priority.SLADeadline(req.PriorityLevel, createdAt))
}

func (h *PriorityHandler) respond(req priorityRequest, result *domain.PriorityResult) priorityResponse {
	if strings.HasPrefix(result.Reasoning, "Error in priority calculation") {
		h.metrics.ObserveFallback("priority")
	}

	resp := priorityResponse{PriorityResult: result}
	if req.CreatedAt != nil {
		sla := priority.SLADeadline(string(result.PriorityLevel), *req.CreatedAt)
		resp.SLAHours = sla.SLAHours
		resp.SLADeadline = sla.Deadline
	}
	return resp
}

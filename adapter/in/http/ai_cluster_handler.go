package http

import (
	"github.com/gofiber/fiber/v2"

	"ai_server/core/port/in"
	"ai_server/core/service/clustering"
	"ai_server/pkg/apperr"
	"ai_server/pkg/logger"
)

type embedRequest struct {
	Texts []string `json:"texts"`
}

type clusterIssue struct {
	ID        any       `json:"id,omitempty"`
	Embedding []float32 `json:"embedding,omitempty"`
	Text      string    `json:"text,omitempty"`
}

type clusterRequest struct {
	Issues              []clusterIssue `json:"issues,omitempty"`
	Embeddings          [][]float32    `json:"embeddings,omitempty"`
	SimilarityThreshold *float64       `json:"similarity_threshold,omitempty"`
}

type similarRequest struct {
	QueryEmbedding []float32   `json:"query_embedding,omitempty"`
	QueryText      string      `json:"query_text,omitempty"`
	Embeddings     [][]float32 `json:"embeddings,omitempty"`
	Texts          []string    `json:"texts,omitempty"`
	TopK           *int        `json:"top_k,omitempty"`
	MinSimilarity  *float64    `json:"min_similarity,omitempty"`
}

type ClusterHandler struct {
	service in.EmbeddingService
}

func NewClusterHandler(service in.EmbeddingService) *ClusterHandler {
	return &ClusterHandler{service: service}
}

func (h *ClusterHandler) Register(router fiber.Router) {
	router.Post("/embed", h.Embed)
	router.Post("/cluster", h.Cluster)
	router.Post("/similar", h.Similar)
}

// Embed handles POST /embed
func (h *ClusterHandler) Embed(c *fiber.Ctx) error {
	var req embedRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	info := h.service.ModelInfo()
	embeddings, err := h.service.GetEmbeddings(c.UserContext(), req.Texts)
	if err != nil {
		logger.WithContext(c.UserContext()).WithError(err).Error("Embedding error")
		return serviceError(info.Model, err)
	}

	return c.JSON(fiber.Map{
		"embeddings": embeddings,
		"model_info": info,
	})
}

// Cluster handles POST /cluster. Issue embeddings are used when every issue
// carries one; otherwise all issue texts are embedded.
func (h *ClusterHandler) Cluster(c *fiber.Ctx) error {
	var req clusterRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	ctx := c.UserContext()
	threshold := h.service.DefaultThreshold()
	if req.SimilarityThreshold != nil {
		threshold = *req.SimilarityThreshold
	}

	var embeddings [][]float32
	switch {
	case len(req.Issues) > 0:
		embeddings = issueEmbeddings(req.Issues)
		if embeddings == nil {
			texts := make([]string, len(req.Issues))
			for i, issue := range req.Issues {
				texts[i] = issue.Text
			}
			var err error
			if embeddings, err = h.service.GetEmbeddings(ctx, texts); err != nil {
				return serviceError(h.service.ModelInfo().Model, err)
			}
		}
	case req.Embeddings != nil:
		embeddings = req.Embeddings
	default:
		return apperr.MissingField("issues or embeddings")
	}

	result, err := h.service.ClusterEmbeddings(ctx, embeddings, threshold)
	if err != nil {
		return serviceError("clustering", err)
	}
	return c.JSON(result)
}

// issueEmbeddings returns nil unless every issue has an embedding.
func issueEmbeddings(issues []clusterIssue) [][]float32 {
	out := make([][]float32, len(issues))
	for i, issue := range issues {
		if len(issue.Embedding) == 0 {
			return nil
		}
		out[i] = issue.Embedding
	}
	return out
}

// Similar handles POST /similar
func (h *ClusterHandler) Similar(c *fiber.Ctx) error {
	var req similarRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	ctx := c.UserContext()
	model := h.service.ModelInfo().Model

	query := req.QueryEmbedding
	if len(query) == 0 {
		if req.QueryText == "" {
			return apperr.MissingField("query_embedding or query_text")
		}
		vecs, err := h.service.GetEmbeddings(ctx, []string{req.QueryText})
		if err != nil {
			return serviceError(model, err)
		}
		query = vecs[0]
	}

	candidates := req.Embeddings
	if candidates == nil {
		if req.Texts == nil {
			return apperr.MissingField("embeddings or texts")
		}
		var err error
		if candidates, err = h.service.GetEmbeddings(ctx, req.Texts); err != nil {
			return serviceError(model, err)
		}
	}

	topK := clustering.DefaultTopK
	if req.TopK != nil {
		topK = *req.TopK
	}
	minSim := clustering.DefaultMinSimilarity
	if req.MinSimilarity != nil {
		minSim = *req.MinSimilarity
	}

	similar, err := clustering.FindSimilar(query, candidates, topK, minSim)
	if err != nil {
		return serviceError("clustering", err)
	}

	return c.JSON(fiber.Map{
		"similar": similar,
		"count":   len(similar),
	})
}

// Package llm adapts OpenAI-compatible chat and embedding APIs to the model ports.
package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"ai_server/pkg/metrics"
	"ai_server/pkg/resilience"
)

const (
	DefaultModel          = "gpt-4o-mini"
	DefaultEmbeddingModel = openai.SmallEmbedding3
	DefaultTimeout        = 30 * time.Second
)

// ClientConfig configures the OpenAI client.
type ClientConfig struct {
	APIKey         string
	BaseURL        string // OpenAI-compatible endpoint, optional
	Model          string
	EmbeddingModel string
	Timeout        time.Duration
	Metrics        *metrics.Metrics
}

// Client is a breaker-guarded OpenAI client.
type Client struct {
	client         *openai.Client
	model          string
	embeddingModel string
	timeout        time.Duration
	breaker        *resilience.Breaker
	metrics        *metrics.Metrics
}

// NewClient creates a client. An API key is required unless BaseURL points
// at a self-hosted endpoint.
func NewClient(cfg ClientConfig) (*Client, error) {
	if cfg.APIKey == "" && cfg.BaseURL == "" {
		return nil, errors.New("OPENAI_API_KEY is not set")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.EmbeddingModel == "" {
		cfg.EmbeddingModel = string(DefaultEmbeddingModel)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	oc.HTTPClient = &http.Client{Timeout: cfg.Timeout}

	bc := resilience.DefaultConfig("openai")
	bc.OnStateChange = func(name string, to resilience.State) {
		cfg.Metrics.SetBreakerState(name, float64(to))
	}

	return &Client{
		client:         openai.NewClientWithConfig(oc),
		model:          cfg.Model,
		embeddingModel: cfg.EmbeddingModel,
		timeout:        cfg.Timeout,
		breaker:        resilience.NewBreaker(bc),
		metrics:        cfg.Metrics,
	}, nil
}

// Model returns the chat model name.
func (c *Client) Model() string {
	return c.model
}

// Breaker exposes the circuit breaker for readiness reporting.
func (c *Client) Breaker() *resilience.Breaker {
	return c.breaker
}

// EmbeddingModel returns the embedding model name.
func (c *Client) EmbeddingModel() string {
	return c.embeddingModel
}

// CompleteJSON sends a system + user prompt and returns the JSON reply.
func (c *Client) CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	content, err := resilience.Call(c.breaker, func() (string, error) {
		resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model: c.model,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
				{Role: openai.ChatMessageRoleUser, Content: userPrompt},
			},
			Temperature: 0,
			ResponseFormat: &openai.ChatCompletionResponseFormat{
				Type: openai.ChatCompletionResponseFormatTypeJSONObject,
			},
		})
		if err != nil {
			return "", err
		}
		if len(resp.Choices) == 0 {
			return "", errors.New("empty completion")
		}
		return resp.Choices[0].Message.Content, nil
	})
	c.metrics.ObserveModelCall(c.model, err, time.Since(start))
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	return content, nil
}

// Embeddings returns one vector per text, in input order. dimensions is
// passed through for models that support shortened vectors; 0 keeps the
// model default.
func (c *Client) Embeddings(ctx context.Context, texts []string, dimensions int) ([][]float32, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	data, err := resilience.Call(c.breaker, func() ([]openai.Embedding, error) {
		resp, err := c.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
			Model:      openai.EmbeddingModel(c.embeddingModel),
			Input:      texts,
			Dimensions: dimensions,
		})
		if err != nil {
			return nil, err
		}
		return resp.Data, nil
	})
	c.metrics.ObserveModelCall(c.embeddingModel, err, time.Since(start))
	if err != nil {
		return nil, fmt.Errorf("embeddings: %w", err)
	}
	if len(data) != len(texts) {
		return nil, fmt.Errorf("embeddings: got %d vectors for %d texts", len(data), len(texts))
	}

	sort.Slice(data, func(i, j int) bool { return data[i].Index < data[j].Index })
	result := make([][]float32, len(data))
	for i, d := range data {
		result[i] = d.Embedding
	}
	return result, nil
}

// stripCodeFence removes a ```json ... ``` wrapper some models add.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

package llm

import (
	"context"
	"fmt"

	"ai_server/core/domain"
)

// maxEmbeddingBatch 한 번의 API 호출당 최대 입력 수
const maxEmbeddingBatch = 512

// Embedder serves embeddings from the remote API, shortened to the
// service-wide dimension.
type Embedder struct {
	client *Client
}

// NewEmbedder creates a remote embedding model.
func NewEmbedder(client *Client) *Embedder {
	return &Embedder{client: client}
}

// Embed returns one vector per text.
func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	result := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += maxEmbeddingBatch {
		end := start + maxEmbeddingBatch
		if end > len(texts) {
			end = len(texts)
		}

		batch, err := e.client.Embeddings(ctx, texts[start:end], domain.EmbeddingDimension)
		if err != nil {
			return nil, err
		}
		for i, v := range batch {
			if len(v) != domain.EmbeddingDimension {
				return nil, fmt.Errorf("embedding %d has %d values, expected %d", start+i, len(v), domain.EmbeddingDimension)
			}
		}
		result = append(result, batch...)
	}
	return result, nil
}

// Dimension returns the vector size.
func (e *Embedder) Dimension() int {
	return domain.EmbeddingDimension
}

// Name returns the embedding model name.
func (e *Embedder) Name() string {
	return e.client.EmbeddingModel()
}

// Close is a no-op.
func (e *Embedder) Close() error {
	return nil
}

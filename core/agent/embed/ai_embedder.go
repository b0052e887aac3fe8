package embed

import (
	"context"
	"fmt"

	"ai_server/core/domain"
)

const (
	// ModelName is the sentence-transformers model the ONNX export comes from.
	ModelName = "sentence-transformers/all-MiniLM-L6-v2"

	defaultBatchSize = 32
)

// Config for the local embedder.
type Config struct {
	ModelPath     string // model.onnx
	TokenizerPath string // tokenizer.json
	RuntimeLib    string // libonnxruntime shared library, empty for the default search path
	Threads       int
	BatchSize     int
}

// ONNXEmbedder runs tokenize → ONNX → mean pool → L2 normalize, matching
// sentence-transformers' encode for MiniLM.
type ONNXEmbedder struct {
	session   *onnxSession
	tok       encoder
	batchSize int
}

// NewONNXEmbedder loads the model and tokenizer.
func NewONNXEmbedder(cfg Config) (*ONNXEmbedder, error) {
	tok, err := newHFTokenizer(cfg.TokenizerPath)
	if err != nil {
		return nil, fmt.Errorf("embedder: %w", err)
	}

	sess, err := newONNXSession(cfg.ModelPath, cfg.RuntimeLib, cfg.Threads)
	if err != nil {
		return nil, fmt.Errorf("embedder: %w", err)
	}
	if sess.hiddenDim != domain.EmbeddingDimension {
		_ = sess.close()
		return nil, fmt.Errorf("embedder: model hidden size %d != %d", sess.hiddenDim, domain.EmbeddingDimension)
	}

	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultBatchSize
	}
	return &ONNXEmbedder{session: sess, tok: tok, batchSize: cfg.BatchSize}, nil
}

// Embed returns one unit-length vector per text.
func (e *ONNXEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	result := make([][]float32, 0, len(texts))

	for start := 0; start < len(texts); start += e.batchSize {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		end := start + e.batchSize
		if end > len(texts) {
			end = len(texts)
		}

		b, err := tokenizeBatch(e.tok, texts[start:end])
		if err != nil {
			return nil, fmt.Errorf("embedder: %w", err)
		}
		hidden, err := e.session.infer(b)
		if err != nil {
			return nil, fmt.Errorf("embedder: %w", err)
		}

		for _, v := range meanPool(hidden, b.attentionMask, b.size, b.seqLen, e.session.hiddenDim) {
			normalize(v)
			result = append(result, v)
		}
	}
	return result, nil
}

// Dimension returns the vector size.
func (e *ONNXEmbedder) Dimension() int {
	return int(e.session.hiddenDim)
}

// Name returns the model name.
func (e *ONNXEmbedder) Name() string {
	return ModelName
}

// Close releases the session.
func (e *ONNXEmbedder) Close() error {
	return e.session.close()
}

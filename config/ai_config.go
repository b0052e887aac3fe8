package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// generateConsumerID creates a unique stream consumer name using hostname and PID
func generateConsumerID() string {
	hostname, _ := os.Hostname()
	if hostname == "" {
		hostname = "ai-worker"
	}
	return fmt.Sprintf("%s-%d", hostname, os.Getpid())
}

const (
	ProviderOpenAI  = "openai"
	ProviderKeyword = "keyword"
	ProviderONNX    = "onnx"
)

type Config struct {
	Host        string
	Port        string
	Environment string
	LogLevel    string
	Version     string

	// Redis (embedding cache L2 + job stream)
	RedisURL string

	// OpenAI
	OpenAIAPIKey   string
	OpenAIBaseURL  string
	LLMModel       string
	LLMTimeoutSec  int
	EmbeddingModel string

	// Models
	ClassifierProvider     string // openai | keyword
	EmbeddingProvider      string // onnx | openai
	EmbeddingModelPath     string
	EmbeddingTokenizerPath string
	ONNXRuntimeLib         string
	ONNXThreads            int
	SentimentModelEnabled  bool

	// Embedding cache
	EmbedCacheMaxEntries int
	EmbedCacheTTLHour    int

	// Clustering
	SimilarityThreshold float64

	// HTTP
	AllowedOrigins  []string
	RateLimitPerMin int

	// Worker (Redis Stream)
	StreamGroup       string
	StreamConsumer    string
	WorkerConcurrency int
	JobTimeoutSec     int
	PendingIdleSec    int
	MaxDeliveries     int
}

func Load() (*Config, error) {
	cfg := &Config{
		Host:        getEnv("AI_SERVICE_HOST", "0.0.0.0"),
		Port:        getEnv("AI_SERVICE_PORT", "8001"),
		Environment: getEnv("ENV", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		Version:     getEnv("AI_SERVICE_VERSION", "1.0.0"),

		RedisURL: getEnv("REDIS_URL", ""),

		// OpenAI
		OpenAIAPIKey:   getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL:  getEnv("OPENAI_BASE_URL", ""),
		LLMModel:       getEnv("LLM_MODEL", "gpt-4o-mini"),
		LLMTimeoutSec:  getEnvInt("LLM_TIMEOUT_SEC", 30),
		EmbeddingModel: getEnv("OPENAI_EMBEDDING_MODEL", "text-embedding-3-small"),

		// Models
		ClassifierProvider:     strings.ToLower(getEnv("CLASSIFIER_PROVIDER", ProviderOpenAI)),
		EmbeddingProvider:      strings.ToLower(getEnv("EMBEDDING_PROVIDER", ProviderONNX)),
		EmbeddingModelPath:     getEnv("EMBEDDING_MODEL_PATH", "models/all-MiniLM-L6-v2/model.onnx"),
		EmbeddingTokenizerPath: getEnv("EMBEDDING_TOKENIZER_PATH", "models/all-MiniLM-L6-v2/tokenizer.json"),
		ONNXRuntimeLib:         getEnv("ONNX_RUNTIME_LIB", ""),
		ONNXThreads:            getEnvInt("ONNX_THREADS", 0),
		SentimentModelEnabled:  getEnvBool("SENTIMENT_MODEL_ENABLED", false),

		// Embedding cache
		EmbedCacheMaxEntries: getEnvInt("EMBED_CACHE_MAX_ENTRIES", 10000),
		EmbedCacheTTLHour:    getEnvInt("EMBED_CACHE_TTL_HOUR", 24),

		SimilarityThreshold: getEnvFloat("SIMILARITY_THRESHOLD", 0.75),

		// HTTP
		AllowedOrigins:  getEnvSlice("ALLOWED_ORIGINS", []string{"*"}),
		RateLimitPerMin: getEnvInt("RATE_LIMIT_PER_MIN", 600),

		// Worker
		StreamGroup:       getEnv("STREAM_GROUP", "ai-service"),
		StreamConsumer:    getEnv("STREAM_CONSUMER", generateConsumerID()),
		WorkerConcurrency: getEnvInt("WORKER_CONCURRENCY", 4),
		JobTimeoutSec:     getEnvInt("JOB_TIMEOUT_SEC", 60),
		PendingIdleSec:    getEnvInt("PENDING_IDLE_SEC", 120),
		MaxDeliveries:     getEnvInt("MAX_DELIVERIES", 3),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects values the services cannot run with.
func (c *Config) Validate() error {
	switch c.ClassifierProvider {
	case ProviderOpenAI, ProviderKeyword:
	default:
		return fmt.Errorf("CLASSIFIER_PROVIDER must be %q or %q, got %q", ProviderOpenAI, ProviderKeyword, c.ClassifierProvider)
	}
	switch c.EmbeddingProvider {
	case ProviderONNX, ProviderOpenAI:
	default:
		return fmt.Errorf("EMBEDDING_PROVIDER must be %q or %q, got %q", ProviderONNX, ProviderOpenAI, c.EmbeddingProvider)
	}
	if c.SimilarityThreshold < 0 || c.SimilarityThreshold > 1 {
		return fmt.Errorf("SIMILARITY_THRESHOLD must be within [0, 1], got %v", c.SimilarityThreshold)
	}
	if c.WorkerConcurrency <= 0 {
		return fmt.Errorf("WORKER_CONCURRENCY must be positive, got %d", c.WorkerConcurrency)
	}
	return nil
}

// Addr is the listen address for the API server.
func (c *Config) Addr() string {
	return c.Host + ":" + c.Port
}

func (c *Config) LLMTimeout() time.Duration {
	return time.Duration(c.LLMTimeoutSec) * time.Second
}

func (c *Config) EmbedCacheTTL() time.Duration {
	return time.Duration(c.EmbedCacheTTLHour) * time.Hour
}

func (c *Config) JobTimeout() time.Duration {
	return time.Duration(c.JobTimeoutSec) * time.Second
}

func (c *Config) PendingIdle() time.Duration {
	return time.Duration(c.PendingIdleSec) * time.Second
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		return out
	}
	return defaultValue
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

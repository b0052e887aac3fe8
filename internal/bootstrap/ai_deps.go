package bootstrap

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"ai_server/config"
	"ai_server/core/agent/embed"
	"ai_server/core/agent/llm"
	"ai_server/core/port/out"
	"ai_server/core/service/analysis"
	"ai_server/core/service/classification"
	"ai_server/core/service/clustering"
	"ai_server/core/service/priority"
	"ai_server/core/service/sentiment"
	"ai_server/infra/database"
	"ai_server/internal/stream"
	"ai_server/pkg/cache"
	"ai_server/pkg/logger"
	"ai_server/pkg/metrics"
	"ai_server/pkg/resilience"
)

const (
	cachePrefix          = "awaaz:ai"
	memoryCleanupEvery   = 10 * time.Minute
	keywordClassifierTag = "keyword-ranker"
)

// Dependencies is the shared object graph for the API and the worker.
type Dependencies struct {
	Config  *config.Config
	Redis   *redis.Client
	Cache   *cache.RedisCache
	Metrics *metrics.Metrics
	LLM     *llm.Client

	// Services
	Classifier *classification.Service
	Sentiment  *sentiment.Service
	Clustering *clustering.Service
	Priority   *priority.Service
	Pipeline   *analysis.Pipeline

	// Embedding cache (L1 memory + optional L2 Redis)
	EmbedStore *embed.TieredStore

	// Redis Streams, nil without Redis
	Stream   *stream.RedisStream
	Producer *stream.Producer
}

// Breakers returns every circuit breaker in use.
func (d *Dependencies) Breakers() []*resilience.Breaker {
	if d.LLM == nil {
		return nil
	}
	return []*resilience.Breaker{d.LLM.Breaker()}
}

func NewDependencies(cfg *config.Config) (*Dependencies, func(), error) {
	var cleanups []func()
	deps := &Dependencies{
		Config:  cfg,
		Metrics: metrics.New(),
	}

	// Redis
	if cfg.RedisURL != "" {
		redisClient, err := database.NewRedis(cfg.RedisURL, nil)
		if err != nil {
			logger.Warn("Redis connection failed: %v", err)
		} else {
			deps.Redis = redisClient
			deps.Cache = cache.NewRedisCache(redisClient, cachePrefix)
			deps.Stream = stream.NewRedisStream(redisClient, cfg.StreamGroup)
			deps.Producer = stream.NewProducer(deps.Stream)
			cleanups = append(cleanups, func() { redisClient.Close() })
			logger.Info("Redis connection successful")
		}
	} else {
		logger.Info("REDIS_URL not set, running without Redis")
	}

	// OpenAI
	if cfg.OpenAIAPIKey != "" || cfg.OpenAIBaseURL != "" {
		client, err := llm.NewClient(llm.ClientConfig{
			APIKey:         cfg.OpenAIAPIKey,
			BaseURL:        cfg.OpenAIBaseURL,
			Model:          cfg.LLMModel,
			EmbeddingModel: cfg.EmbeddingModel,
			Timeout:        cfg.LLMTimeout(),
			Metrics:        deps.Metrics,
		})
		if err != nil {
			logger.Warn("OpenAI client init failed: %v", err)
		} else {
			deps.LLM = client
			logger.Info("OpenAI client initialized (model: %s)", client.Model())
		}
	}

	// Classification
	deps.Classifier = newClassifier(cfg, deps.LLM)

	// Sentiment
	var sentimentModel out.SentimentModel
	if cfg.SentimentModelEnabled {
		if deps.LLM != nil {
			sentimentModel = llm.NewSentimentModel(deps.LLM)
		} else {
			logger.Warn("SENTIMENT_MODEL_ENABLED without an OpenAI client, using keywords only")
		}
	}
	deps.Sentiment = sentiment.NewService(sentimentModel)

	// Embedding cache
	memStore := embed.NewMemoryStore(embed.MemoryConfig{
		MaxSize: cfg.EmbedCacheMaxEntries,
		TTL:     cfg.EmbedCacheTTL(),
	})
	cacheCtx, cancelCache := context.WithCancel(context.Background())
	go memStore.Run(cacheCtx, memoryCleanupEvery)
	cleanups = append(cleanups, cancelCache)

	embedModelName, loadEmbedder := newEmbedderLoader(cfg, deps.LLM)
	var l2 out.EmbeddingStore
	if deps.Cache != nil {
		l2 = embed.NewRedisStore(deps.Cache, embedModelName, cfg.EmbedCacheTTL())
	}
	deps.EmbedStore = embed.NewTieredStore(memStore, l2, deps.Metrics)

	// Clustering
	deps.Clustering = clustering.NewService(loadEmbedder, deps.EmbedStore, clustering.Config{
		ModelName: embedModelName,
		Threshold: cfg.SimilarityThreshold,
	})
	cleanups = append(cleanups, func() {
		if err := deps.Clustering.Close(); err != nil {
			logger.Warn("Embedding model close failed: %v", err)
		}
	})

	deps.Priority = priority.NewService()
	deps.Pipeline = analysis.NewPipeline(deps.Classifier, deps.Sentiment, deps.Clustering, deps.Priority)

	cleanup := func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
	}

	return deps, cleanup, nil
}

// newClassifier picks the zero-shot ranker. The OpenAI ranker needs a
// client; without one the keyword ranker serves every request.
func newClassifier(cfg *config.Config, client *llm.Client) *classification.Service {
	if cfg.ClassifierProvider == config.ProviderOpenAI && client != nil {
		return classification.NewService(func() (out.ZeroShotRanker, error) {
			return llm.NewZeroShotRanker(client), nil
		}, client.Model())
	}

	if cfg.ClassifierProvider == config.ProviderOpenAI {
		logger.Warn("CLASSIFIER_PROVIDER=openai without an OpenAI client, using keyword ranker")
	}
	return classification.NewService(func() (out.ZeroShotRanker, error) {
		return classification.NewKeywordRanker(), nil
	}, keywordClassifierTag)
}

// newEmbedderLoader returns the model name reported before loading and the
// lazy loader for the embedding model.
func newEmbedderLoader(cfg *config.Config, client *llm.Client) (string, func() (out.EmbeddingModel, error)) {
	if cfg.EmbeddingProvider == config.ProviderOpenAI && client != nil {
		return client.EmbeddingModel(), func() (out.EmbeddingModel, error) {
			return llm.NewEmbedder(client), nil
		}
	}

	if cfg.EmbeddingProvider == config.ProviderOpenAI {
		logger.Warn("EMBEDDING_PROVIDER=openai without an OpenAI client, using local ONNX model")
	}
	return embed.ModelName, func() (out.EmbeddingModel, error) {
		start := time.Now()
		e, err := embed.NewONNXEmbedder(embed.Config{
			ModelPath:     cfg.EmbeddingModelPath,
			TokenizerPath: cfg.EmbeddingTokenizerPath,
			RuntimeLib:    cfg.ONNXRuntimeLib,
			Threads:       cfg.ONNXThreads,
		})
		if err != nil {
			logger.WithError(err).Error("Embedding model load failed")
			return nil, err
		}
		logger.WithDuration(time.Since(start)).Info("Embedding model loaded: %s", e.Name())
		return e, nil
	}
}

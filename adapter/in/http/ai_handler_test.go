package http

import (
	"context"
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"

	"ai_server/core/domain"
	"ai_server/core/port/out"
	"ai_server/core/service/analysis"
	"ai_server/core/service/classification"
	"ai_server/core/service/clustering"
	"ai_server/core/service/priority"
	"ai_server/core/service/sentiment"
	"ai_server/infra/middleware"
	"ai_server/pkg/metrics"
)

// =============================================================================
// Fakes
// =============================================================================

type fakeClassifier struct{}

func (fakeClassifier) Classify(_ context.Context, req classification.Request) *domain.ClassificationResult {
	if strings.TrimSpace(req.Text) == "" {
		return classification.Fallback(errors.New("empty input"))
	}
	return &domain.ClassificationResult{
		PrimaryCategory:     domain.CategoryRoads,
		Confidence:          0.9,
		SecondaryCategories: []domain.ComplaintCategory{},
		Reasoning:           "Classified as 'Roads & Infrastructure' with 90% confidence.",
	}
}

func (f fakeClassifier) ClassifyBatch(ctx context.Context, reqs []classification.Request) []*domain.ClassificationResult {
	out := make([]*domain.ClassificationResult, len(reqs))
	for i, r := range reqs {
		out[i] = f.Classify(ctx, r)
	}
	return out
}

func (fakeClassifier) ModelName() string { return "fake-ranker" }

// fakeEmbedModel maps known texts to fixed 2-d vectors.
type fakeEmbedModel struct {
	vectors map[string][]float32
}

func (m *fakeEmbedModel) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, ok := m.vectors[t]
		if !ok {
			v = []float32{0, 0}
		}
		out[i] = v
	}
	return out, nil
}
func (m *fakeEmbedModel) Dimension() int { return 2 }
func (m *fakeEmbedModel) Name() string   { return "fake-embedder" }
func (m *fakeEmbedModel) Close() error   { return nil }

type fakeStats struct{}

func (fakeStats) Stats() out.CacheStats {
	return out.CacheStats{Hits: 3, Misses: 1, HitRate: 0.75, Entries: 4}
}

type fakeAnalyzer struct{}

func (fakeAnalyzer) Analyze(_ context.Context, c *domain.Complaint, _ analysis.Options) *domain.AnalysisResult {
	return &domain.AnalysisResult{
		IssueID:  c.ID,
		Priority: &domain.PriorityResult{PriorityLevel: domain.PriorityLow, PriorityScore: 10},
	}
}

type fakeJobPublisher struct {
	published []domain.Complaint
}

func (p *fakeJobPublisher) PublishAnalyze(_ context.Context, c domain.Complaint, _ bool) (string, error) {
	p.published = append(p.published, c)
	return "job-123", nil
}

// =============================================================================
// Helpers
// =============================================================================

func newEmbeddingService(load func() (out.EmbeddingModel, error)) *clustering.Service {
	return clustering.NewService(load, nil, clustering.Config{ModelName: "fake-embedder"})
}

func newTestApp(t *testing.T, publisher JobPublisher) *fiber.App {
	t.Helper()

	model := &fakeEmbedModel{vectors: map[string][]float32{
		"pothole on main road":    {1, 0},
		"main road pothole":       {1, 0},
		"streetlight not working": {0, 1},
	}}
	embeddings := newEmbeddingService(func() (out.EmbeddingModel, error) { return model, nil })
	m := metrics.New()
	sentimentSvc := sentiment.NewService(nil)

	app := fiber.New(fiber.Config{
		ErrorHandler: middleware.ErrorHandler(),
		JSONEncoder:  json.Marshal,
		JSONDecoder:  json.Unmarshal,
	})
	app.Use(middleware.RequestID())

	Handlers{
		Health:    NewHealthHandler("1.0.0", nil, map[string]ModelStatus{"embedding": embeddings}, nil, m),
		Classify:  NewClassifyHandler(fakeClassifier{}, m),
		Cluster:   NewClusterHandler(embeddings),
		Priority:  NewPriorityHandler(priority.NewService(), m),
		Sentiment: NewSentimentHandler(sentimentSvc),
		Meta:      NewMetaHandler(fakeClassifier{}, sentimentSvc, embeddings, fakeStats{}),
		Analyze:   NewAnalyzeHandler(fakeAnalyzer{}, publisher),
	}.Register(app)

	return app
}

func do(t *testing.T, app *fiber.App, method, path, body string) (int, map[string]any) {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	var decoded map[string]any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("%s %s: response is not a JSON object: %s", method, path, raw)
	}
	return resp.StatusCode, decoded
}

func errorCode(body map[string]any) string {
	e, _ := body["error"].(map[string]any)
	code, _ := e["code"].(string)
	return code
}

// =============================================================================
// Tests
// =============================================================================

func TestHealth(t *testing.T) {
	app := newTestApp(t, nil)

	status, body := do(t, app, "GET", "/health", "")
	if status != 200 {
		t.Fatalf("status = %d", status)
	}
	if body["status"] != "healthy" || body["service"] != ServiceName || body["version"] != "1.0.0" {
		t.Errorf("body = %v", body)
	}

	status, body = do(t, app, "GET", "/ready", "")
	if status != 200 || body["status"] != "ready" {
		t.Errorf("ready = %d %v", status, body)
	}
	models, _ := body["models"].(map[string]any)
	if models["embedding"] != "not loaded" {
		t.Errorf("models = %v", models)
	}
}

func TestClassify(t *testing.T) {
	app := newTestApp(t, nil)

	status, body := do(t, app, "POST", "/api/v1/classify", `{"text":"Huge pothole","title":"Road damage"}`)
	if status != 200 {
		t.Fatalf("status = %d, body = %v", status, body)
	}
	if body["primary_category"] != string(domain.CategoryRoads) {
		t.Errorf("primary_category = %v", body["primary_category"])
	}

	status, body = do(t, app, "POST", "/api/v1/classify", `{"text":`)
	if status != 400 || body["success"] != false || errorCode(body) != "BAD_REQUEST" {
		t.Errorf("malformed body = %d %v", status, body)
	}
	if body["request_id"] == "" || body["request_id"] == nil {
		t.Error("error envelope should carry the request id")
	}
}

func TestClassifyBatch_IsolatesFallbacks(t *testing.T) {
	app := newTestApp(t, nil)

	status, body := do(t, app, "POST", "/api/v1/classify-batch",
		`[{"text":"Huge pothole","title":""},{"text":"  ","title":""}]`)
	if status != 200 {
		t.Fatalf("status = %d", status)
	}
	if body["count"] != float64(2) {
		t.Errorf("count = %v", body["count"])
	}
	items, _ := body["classifications"].([]any)
	second, _ := items[1].(map[string]any)
	if second["primary_category"] != string(domain.CategoryOthers) || second["confidence"] != float64(0) {
		t.Errorf("second = %v", second)
	}
}

func TestPrioritize(t *testing.T) {
	app := newTestApp(t, nil)

	t.Run("with created_at adds SLA", func(t *testing.T) {
		status, body := do(t, app, "POST", "/api/v1/prioritize", `{
			"issue_id":"i-1","category":"Electricity & Power","location_density":50,
			"citizen_upvotes":6,"age_hours":48,"safety_rating":80,
			"created_at":"2024-03-01T10:00:00Z"}`)
		if status != 200 {
			t.Fatalf("status = %d, body = %v", status, body)
		}
		if body["priority_level"] != "Medium" || body["priority_score"] != float64(67) {
			t.Errorf("priority = %v/%v", body["priority_level"], body["priority_score"])
		}
		if body["sla_hours"] != float64(72) || body["sla_deadline"] != "2024-03-04T10:00:00Z" {
			t.Errorf("sla = %v / %v", body["sla_hours"], body["sla_deadline"])
		}
	})

	t.Run("without created_at has no SLA", func(t *testing.T) {
		_, body := do(t, app, "POST", "/api/v1/prioritize", `{"issue_id":"i-2","category":"Others"}`)
		if _, ok := body["sla_hours"]; ok {
			t.Errorf("sla_hours should be omitted: %v", body)
		}
		if body["priority_score"] != float64(10) {
			t.Errorf("priority_score = %v", body["priority_score"])
		}
	})
}

func TestPrioritizeBatch(t *testing.T) {
	app := newTestApp(t, nil)

	status, body := do(t, app, "POST", "/api/v1/prioritize-batch", `[
		{"issue_id":"a","category":"Others"},
		{"issue_id":"b","category":"Others","citizen_upvotes":-3}]`)
	if status != 200 {
		t.Fatalf("status = %d", status)
	}
	if body["count"] != float64(2) {
		t.Errorf("count = %v", body["count"])
	}
	items, _ := body["priorities"].([]any)
	second, _ := items[1].(map[string]any)
	if second["priority_score"] != float64(priority.FallbackScore) || second["priority_level"] != "Medium" {
		t.Errorf("second = %v", second)
	}
}

func TestSLA(t *testing.T) {
	app := newTestApp(t, nil)

	status, body := do(t, app, "POST", "/api/v1/sla", `{"priority_level":"high","created_at":"2024-03-01T10:00:00Z"}`)
	if status != 200 {
		t.Fatalf("status = %d", status)
	}
	if body["sla_hours"] != float64(24) || body["deadline"] != "2024-03-02T10:00:00Z" || body["priority"] != "High" {
		t.Errorf("body = %v", body)
	}

	status, body = do(t, app, "POST", "/api/v1/sla", `{}`)
	if status != 400 || errorCode(body) != "MISSING_FIELD" {
		t.Errorf("missing level = %d %v", status, body)
	}
}

func TestSentiment(t *testing.T) {
	app := newTestApp(t, nil)

	status, body := do(t, app, "POST", "/api/v1/sentiment", `["This is excellent and great", ""]`)
	if status != 200 {
		t.Fatalf("status = %d", status)
	}
	items, _ := body["sentiments"].([]any)
	if len(items) != 2 {
		t.Fatalf("sentiments = %v", body["sentiments"])
	}
	first, _ := items[0].(map[string]any)
	if first["sentiment"] != "Positive" {
		t.Errorf("first = %v", first)
	}
	second, _ := items[1].(map[string]any)
	if second["sentiment"] != "Neutral" || second["confidence"] != float64(0) {
		t.Errorf("second = %v", second)
	}
}

func TestCluster(t *testing.T) {
	app := newTestApp(t, nil)

	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantCount  float64
		wantCode   string
	}{
		{"precomputed embeddings", `{"embeddings":[[1,0],[1,0],[0,1]],"similarity_threshold":0.75}`, 200, 2, ""},
		{"issue texts are embedded", `{"issues":[{"id":1,"text":"pothole on main road"},{"id":2,"text":"main road pothole"},{"id":3,"text":"streetlight not working"}]}`, 200, 2, ""},
		{"issue embeddings are used", `{"issues":[{"id":1,"embedding":[1,0]},{"id":2,"embedding":[0,1]}]}`, 200, 2, ""},
		{"empty embeddings", `{"embeddings":[]}`, 200, 0, ""},
		{"dimension mismatch", `{"embeddings":[[1,0],[1,0,0]]}`, 400, 0, "VALIDATION_FAILED"},
		{"threshold above one", `{"embeddings":[[1,0]],"similarity_threshold":1.5}`, 400, 0, "VALIDATION_FAILED"},
		{"nothing to cluster", `{}`, 400, 0, "MISSING_FIELD"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := do(t, app, "POST", "/api/v1/cluster", tt.body)
			if status != tt.wantStatus {
				t.Fatalf("status = %d, want %d (%v)", status, tt.wantStatus, body)
			}
			if tt.wantCode != "" {
				if errorCode(body) != tt.wantCode {
					t.Errorf("code = %s, want %s", errorCode(body), tt.wantCode)
				}
				return
			}
			if body["cluster_count"] != tt.wantCount {
				t.Errorf("cluster_count = %v, want %v", body["cluster_count"], tt.wantCount)
			}
			if _, ok := body["cluster_quality"]; !ok {
				t.Error("cluster_quality missing")
			}
		})
	}
}

func TestSimilar(t *testing.T) {
	app := newTestApp(t, nil)

	status, body := do(t, app, "POST", "/api/v1/similar",
		`{"query_embedding":[1,0],"embeddings":[[1,0],[0,1],[0.9,0.1]]}`)
	if status != 200 {
		t.Fatalf("status = %d, body = %v", status, body)
	}
	if body["count"] != float64(2) {
		t.Fatalf("count = %v", body["count"])
	}
	items, _ := body["similar"].([]any)
	first, _ := items[0].(map[string]any)
	if first["issue_index"] != float64(0) {
		t.Errorf("first = %v", first)
	}

	status, body = do(t, app, "POST", "/api/v1/similar",
		`{"query_text":"pothole on main road","texts":["streetlight not working","main road pothole"],"top_k":1}`)
	if status != 200 || body["count"] != float64(1) {
		t.Fatalf("text query = %d %v", status, body)
	}
	items, _ = body["similar"].([]any)
	first, _ = items[0].(map[string]any)
	if first["issue_index"] != float64(1) {
		t.Errorf("text query first = %v", first)
	}

	status, body = do(t, app, "POST", "/api/v1/similar", `{"embeddings":[[1,0]]}`)
	if status != 400 || errorCode(body) != "MISSING_FIELD" {
		t.Errorf("missing query = %d %v", status, body)
	}
}

func TestEmbed(t *testing.T) {
	app := newTestApp(t, nil)

	status, body := do(t, app, "POST", "/api/v1/embed", `{"texts":["pothole on main road","streetlight not working"]}`)
	if status != 200 {
		t.Fatalf("status = %d", status)
	}
	embeddings, _ := body["embeddings"].([]any)
	if len(embeddings) != 2 {
		t.Errorf("embeddings = %v", body["embeddings"])
	}
	info, _ := body["model_info"].(map[string]any)
	if info["type"] != "semantic" || info["dimension"] != float64(domain.EmbeddingDimension) {
		t.Errorf("model_info = %v", info)
	}
}

func TestEmbed_ModelUnavailable(t *testing.T) {
	broken := newEmbeddingService(func() (out.EmbeddingModel, error) {
		return nil, errors.New("model file missing")
	})
	app := fiber.New(fiber.Config{ErrorHandler: middleware.ErrorHandler()})
	Handlers{Cluster: NewClusterHandler(broken)}.Register(app)

	status, body := do(t, app, "POST", "/api/v1/embed", `{"texts":["a"]}`)
	if status != 503 || errorCode(body) != "MODEL_UNAVAILABLE" {
		t.Errorf("status = %d, body = %v", status, body)
	}
}

func TestMeta(t *testing.T) {
	app := newTestApp(t, nil)

	_, body := do(t, app, "GET", "/api/v1/categories", "")
	cats, _ := body["categories"].([]any)
	if len(cats) != len(domain.Categories) || cats[0] != string(domain.CategoryRoads) {
		t.Errorf("categories = %v", cats)
	}

	_, body = do(t, app, "GET", "/api/v1/models", "")
	if body["classification_model"] != "fake-ranker" || body["embedding_model"] != "fake-embedder" {
		t.Errorf("models = %v", body)
	}
	if body["sentiment_model"] != "keywords" || body["language"] != "multilingual" {
		t.Errorf("models = %v", body)
	}
	cache, _ := body["embedding_cache"].(map[string]any)
	if cache["hit_rate"] != 0.75 {
		t.Errorf("embedding_cache = %v", cache)
	}
}

func TestAnalyze(t *testing.T) {
	t.Run("sync", func(t *testing.T) {
		app := newTestApp(t, nil)
		status, body := do(t, app, "POST", "/api/v1/analyze", `{"issue_id":"c-1","title":"Pothole","description":"Big pothole"}`)
		if status != 200 || body["issue_id"] != "c-1" {
			t.Errorf("status = %d, body = %v", status, body)
		}
	})

	t.Run("async without redis", func(t *testing.T) {
		app := newTestApp(t, nil)
		status, _ := do(t, app, "POST", "/api/v1/analyze?async=true", `{"issue_id":"c-1"}`)
		if status != 503 {
			t.Errorf("status = %d, want 503", status)
		}
	})

	t.Run("async queues the job", func(t *testing.T) {
		pub := &fakeJobPublisher{}
		app := newTestApp(t, pub)
		status, body := do(t, app, "POST", "/api/v1/analyze?async=true", `{"issue_id":"c-7","title":"Leak"}`)
		if status != 202 || body["job_id"] != "job-123" || body["status"] != "queued" {
			t.Errorf("status = %d, body = %v", status, body)
		}
		if len(pub.published) != 1 || pub.published[0].ID != "c-7" {
			t.Errorf("published = %v", pub.published)
		}
	})
}

package in_test

import (
	"ai_server/core/port/in"
	"ai_server/core/service/analysis"
	"ai_server/core/service/classification"
	"ai_server/core/service/clustering"
	"ai_server/core/service/priority"
	"ai_server/core/service/sentiment"
)

var (
	_ in.Classifier        = (*classification.Service)(nil)
	_ in.Prioritizer       = (*priority.Service)(nil)
	_ in.EmbeddingService  = (*clustering.Service)(nil)
	_ in.SentimentAnalyzer = (*sentiment.Service)(nil)
	_ in.Analyzer          = (*analysis.Pipeline)(nil)
)

package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	EmbeddingRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ecommerce",
			Name:      "embedding_requests_total",
			Help:      "Total number of embedding requests",
		},
		[]string{"status"},
	)

	LLMRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ecommerce",
			Name:      "llm_requests_total",
			Help:      "Total number of LLM completions by purpose and outcome",
		},
		[]string{"purpose", "status"},
	)

	SearchRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ecommerce",
			Name:      "search_requests_total",
			Help:      "Total number of searches by executed search method",
		},
		[]string{"method"},
	)

	SearchBranchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ecommerce",
			Name:      "search_branch_total",
			Help:      "Retrieval branch outcomes",
		},
		[]string{"branch", "status"},
	)

	SearchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "ecommerce",
			Name:      "search_duration_seconds",
			Help:      "Search pipeline duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method"},
	)
)

var registerOnce sync.Once

// Register registers all collectors with the default registry. Must be called from main.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			EmbeddingRequestsTotal,
			LLMRequestsTotal,
			SearchRequestsTotal,
			SearchBranchTotal,
			SearchDuration,
		)
	})
}

// Handler serves the default registry.
func Handler() http.HandlerFunc {
	h := promhttp.Handler()
	return h.ServeHTTP
}

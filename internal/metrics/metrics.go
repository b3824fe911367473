// Package metrics registers the Prometheus collectors exposed on /metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "booth_http_requests_total",
			Help: "Total HTTP requests by route and status code",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "booth_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// Embedding endpoint
	EmbeddingAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "booth_embedding_attempts_total",
			Help: "Embedding endpoint attempts by outcome",
		},
		[]string{"outcome"}, // "success", "rate_limited", "error"
	)

	EmbeddingCache = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "booth_embedding_cache_total",
			Help: "Embedding cache lookups by result",
		},
		[]string{"result"}, // "hit", "miss", "error"
	)

	// Recommendation pipeline
	RecommendationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "booth_recommendations_total",
			Help: "Recommendation stage outcomes",
		},
		[]string{"path", "outcome"}, // path: "rag", "fallback"; outcome: "ok", "retry", "fatal"
	)

	RecommendationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "booth_recommendation_duration_seconds",
			Help:    "End-to-end recommendation generation latency",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30, 60},
		},
	)

	LLMRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "booth_llm_requests_total",
			Help: "LLM requests by operation and result",
		},
		[]string{"operation", "result"},
	)

	// Circuit breakers
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	// Onboarding and evaluation
	OnboardingTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "booth_onboarding_transitions_total",
			Help: "Onboarding transitions by source and target state",
		},
		[]string{"from", "to"},
	)

	TrackingSessionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "booth_tracking_sessions_active",
			Help: "Location tracking sessions currently open",
		},
	)

	// Backfill worker
	EmbeddingJobsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "booth_embedding_jobs_total",
			Help: "Embedding backfill jobs by result",
		},
		[]string{"result"}, // "stored", "requeued", "dead_lettered", "skipped"
	)
)

// RecordHTTPRequest records one served request.
func RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	HTTPRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordRecommendationStage records the outcome of one orchestrator stage.
func RecordRecommendationStage(path, outcome string) {
	RecommendationsTotal.WithLabelValues(path, outcome).Inc()
}

// RecordLLMRequest records one LLM call.
func RecordLLMRequest(operation string, err error) {
	result := "success"
	if err != nil {
		result = "error"
	}
	LLMRequests.WithLabelValues(operation, result).Inc()
}

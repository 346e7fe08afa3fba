package observability

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors of the HTTP, search and LLM paths.
type Metrics struct {
	requests       *prometheus.CounterVec
	requestLatency *prometheus.HistogramVec
	searchLatency  *prometheus.HistogramVec
	searchResults  prometheus.Histogram
	llmCalls       *prometheus.CounterVec
	llmLatency     prometheus.Histogram
}

// NewMetrics creates the collectors and registers them with reg.
// Collectors already registered (as in tests sharing a registry) are reused.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ispkb_http_requests_total",
			Help: "HTTP requests by route, method and status.",
		}, []string{"route", "method", "status"}),
		requestLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ispkb_http_request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		searchLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ispkb_search_duration_seconds",
			Help:    "Relevance search latency by cache outcome.",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		}, []string{"cache"}),
		searchResults: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "ispkb_search_results",
			Help:    "Number of results returned per search.",
			Buckets: []float64{0, 1, 5, 10, 20, 50, 100},
		}),
		llmCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ispkb_llm_calls_total",
			Help: "LLM chat completions by outcome.",
		}, []string{"result"}),
		llmLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "ispkb_llm_call_duration_seconds",
			Help:    "LLM chat completion latency.",
			Buckets: []float64{.25, .5, 1, 2, 5, 10, 20, 30},
		}),
	}
	if reg == nil {
		return m
	}
	m.requests = register(reg, m.requests)
	m.requestLatency = register(reg, m.requestLatency)
	m.searchLatency = register(reg, m.searchLatency)
	m.searchResults = register(reg, m.searchResults)
	m.llmCalls = register(reg, m.llmCalls)
	m.llmLatency = register(reg, m.llmLatency)
	return m
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) C {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing
			}
		}
	}
	return c
}

// RecordRequest records a finished HTTP request.
func (m *Metrics) RecordRequest(route, method, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(route, method, status).Inc()
	m.requestLatency.WithLabelValues(route).Observe(d.Seconds())
}

// RecordSearch records one search and whether it was served from cache.
func (m *Metrics) RecordSearch(cached bool, results int, d time.Duration) {
	if m == nil {
		return
	}
	label := "miss"
	if cached {
		label = "hit"
	}
	m.searchLatency.WithLabelValues(label).Observe(d.Seconds())
	m.searchResults.Observe(float64(results))
}

// RecordLLMCall records one LLM completion attempt sequence.
func (m *Metrics) RecordLLMCall(err error, d time.Duration) {
	if m == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "error"
	}
	m.llmCalls.WithLabelValues(result).Inc()
	m.llmLatency.Observe(d.Seconds())
}

// Package metrics exposes Prometheus collectors for ranking and scoring.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "candidate_ranker"

// Outcome label values
const (
	OutcomeOK     = "ok"
	OutcomeError  = "error"
	OutcomeReject = "invalid"
)

// Metrics holds the service collectors on a private registry
type Metrics struct {
	registry *prometheus.Registry

	RankRequests     *prometheus.CounterVec
	RankedCandidates prometheus.Histogram
	ScoringResults   *prometheus.CounterVec
	ScoringDuration  prometheus.Histogram
	HTTPRequests     *prometheus.CounterVec
}

// New creates and registers all collectors
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		RankRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rank_requests_total",
			Help:      "Rank and filter calls by outcome.",
		}, []string{"outcome"}),
		RankedCandidates: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "ranked_candidates",
			Help:      "Number of candidates returned by a rank call.",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 7),
		}),
		ScoringResults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scoring_results_total",
			Help:      "Candidate scoring attempts by outcome.",
		}, []string{"outcome"}),
		ScoringDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "scoring_duration_seconds",
			Help:      "Latency of a single candidate scoring call.",
			Buckets:   prometheus.DefBuckets,
		}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method and status code.",
		}, []string{"method", "code"}),
	}

	m.registry.MustRegister(
		m.RankRequests,
		m.RankedCandidates,
		m.ScoringResults,
		m.ScoringDuration,
		m.HTTPRequests,
		collectors.NewGoCollector(),
	)

	return m
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

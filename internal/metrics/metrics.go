// Package metrics defines the prometheus collectors for the radar pipeline.
package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome label values.
const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

var (
	AdapterFetchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "radar_adapter_fetch_total",
			Help: "Source adapter fetches by outcome",
		},
		[]string{"source", "status"},
	)

	AdapterFetchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "radar_adapter_fetch_duration_seconds",
			Help:    "Source adapter fetch latency in seconds",
			Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 20, 30},
		},
		[]string{"source"},
	)

	EnrichmentTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "radar_enrichment_total",
			Help: "Enrichment attempts by outcome",
		},
		[]string{"status"},
	)

	ScoringTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "radar_scoring_total",
			Help: "Scoring attempts by outcome",
		},
		[]string{"status"},
	)

	LeadScore = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "radar_lead_score",
			Help:    "Distribution of persisted lead scores",
			Buckets: prometheus.LinearBuckets(10, 10, 10),
		},
	)
)

var registerOnce sync.Once

// Register adds every collector to the default registry. Safe to call more
// than once.
func Register() {
	registerOnce.Do(func() {
		MustRegisterTo(prometheus.DefaultRegisterer)
	})
}

// MustRegisterTo adds every collector to reg.
func MustRegisterTo(reg prometheus.Registerer) {
	reg.MustRegister(
		AdapterFetchTotal,
		AdapterFetchDuration,
		EnrichmentTotal,
		ScoringTotal,
		LeadScore,
	)
}

// ObserveFetch records one adapter outcome.
func ObserveFetch(source string, err error, elapsed time.Duration) {
	status := StatusSuccess
	if err != nil {
		status = StatusFailed
	}
	AdapterFetchTotal.WithLabelValues(source, status).Inc()
	AdapterFetchDuration.WithLabelValues(source).Observe(elapsed.Seconds())
}

// Handler serves the default registry in the prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Package metrics defines the Prometheus instrumentation for lingopipe.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the service.
type Metrics struct {
	// Request metrics
	RequestsTotal   *prometheus.CounterVec // labeled by outcome: ok, client_error, server_error
	RequestDuration prometheus.Histogram

	// Pipeline stage metrics
	StageDuration      *prometheus.HistogramVec // labeled by stage
	TranscodeFallbacks prometheus.Counter

	// Translation metrics
	TranslationOutcomes   *prometheus.CounterVec // labeled by outcome: translated, identity, unsupported
	TranslationModelLoads *prometheus.CounterVec // labeled by language
}

// New creates all metrics and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		RequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "lingopipe_requests_total",
			Help: "Total number of transcribe requests by outcome",
		}, []string{"outcome"}),
		RequestDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "lingopipe_request_duration_seconds",
			Help:    "End-to-end pipeline duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12), // 100ms to ~3.4 minutes
		}),
		StageDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "lingopipe_stage_duration_seconds",
			Help:    "Duration of each pipeline stage in seconds",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 14),
		}, []string{"stage"}),
		TranscodeFallbacks: factory.NewCounter(prometheus.CounterOpts{
			Name: "lingopipe_transcode_fallbacks_total",
			Help: "Requests where transcoding failed and the original upload was used",
		}),
		TranslationOutcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "lingopipe_translation_outcomes_total",
			Help: "Translation stage outcomes (translated, identity, unsupported)",
		}, []string{"outcome"}),
		TranslationModelLoads: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "lingopipe_translation_model_loads_total",
			Help: "Lazy translation model loads by target language",
		}, []string{"language"}),
	}
}

// ObserveStage records the elapsed time of one pipeline stage.
func (m *Metrics) ObserveStage(stage string, start time.Time) {
	m.StageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}

// Package metrics provides Prometheus metrics for observability.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "child_speech_pipeline"

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	// Pipeline metrics
	RecordingsTotal  prometheus.Counter
	RecordingsFailed *prometheus.CounterVec
	NoSpeechTotal    prometheus.Counter
	MatchesTotal     prometheus.Counter
	PersistFailures  prometheus.Counter

	// Stage latency metrics
	TranscodeDuration   *prometheus.HistogramVec
	RecognitionDuration prometheus.Histogram

	// Notifier metrics
	NotifierConnections  prometheus.Gauge
	NotificationsSent    prometheus.Counter
	NotificationsPruned  prometheus.Counter
	NotificationsOffline prometheus.Counter

	// Event publish metrics
	EventPublishTotal   *prometheus.CounterVec
	EventPublishErrors  *prometheus.CounterVec
	EventPublishLatency *prometheus.HistogramVec
}

// DefaultMetrics is the global metrics instance.
var DefaultMetrics = NewMetrics()

// NewMetrics creates and registers all Prometheus metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		RecordingsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recordings_total",
			Help:      "Total number of recordings ingested",
		}),
		RecordingsFailed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recordings_failed_total",
			Help:      "Total number of recordings that failed, by pipeline stage",
		}, []string{"stage"}),
		NoSpeechTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "no_speech_total",
			Help:      "Total number of recordings with no recognizable speech",
		}),
		MatchesTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "keyword_matches_total",
			Help:      "Total number of transcripts that matched a keyword",
		}),
		PersistFailures: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "persist_failures_total",
			Help:      "Total number of recordings lost after the synchronous reply",
		}),

		TranscodeDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "transcode_duration_seconds",
			Help:      "Codec subprocess duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		}, []string{"format"}),
		RecognitionDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "recognition_duration_seconds",
			Help:      "Recognition request duration in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 15},
		}),

		NotifierConnections: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "notifier_connections",
			Help:      "Number of live parent notification channels",
		}),
		NotificationsSent: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_sent_total",
			Help:      "Total number of events delivered to parent channels",
		}),
		NotificationsPruned: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_pruned_total",
			Help:      "Total number of broken channels pruned from the registry",
		}),
		NotificationsOffline: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_offline_total",
			Help:      "Total number of fan-out targets with zero live channels",
		}),

		EventPublishTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "event_publish_total",
			Help:      "Total number of recording events published",
		}, []string{"topic"}),
		EventPublishErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "event_publish_errors_total",
			Help:      "Total number of event publish errors",
		}, []string{"topic"}),
		EventPublishLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "event_publish_latency_seconds",
			Help:      "Event publish latency in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"topic"}),
	}
}

// RecordStageFailure counts a fatal pipeline failure for a stage.
func (m *Metrics) RecordStageFailure(stage string) {
	m.RecordingsFailed.WithLabelValues(stage).Inc()
}

// RecordTranscode observes one codec invocation.
func (m *Metrics) RecordTranscode(format string, d time.Duration) {
	m.TranscodeDuration.WithLabelValues(format).Observe(d.Seconds())
}

// RecordEventPublish observes one event publish attempt.
func (m *Metrics) RecordEventPublish(topic string, err error, seconds float64) {
	m.EventPublishTotal.WithLabelValues(topic).Inc()
	if err != nil {
		m.EventPublishErrors.WithLabelValues(topic).Inc()
	}
	m.EventPublishLatency.WithLabelValues(topic).Observe(seconds)
}

// Package metrics provides Prometheus metrics for the acquisition and
// publication pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsNamespace is the namespace for all pipeline metrics.
const MetricsNamespace = "gomeme"

// Metrics holds the Prometheus metrics published by the bot.
type Metrics struct {
	CandidatesEvaluated prometheus.Counter
	CandidatesRejected  *prometheus.CounterVec
	PostsPublished      prometheus.Counter
	PublishFailures     prometheus.Counter
	SchedulingAnomalies prometheus.Counter
	QueueOccupied       prometheus.Gauge
}

// New creates and registers the pipeline metrics. A nil registerer falls
// back to the default registry.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	factory := promauto.With(reg)

	return &Metrics{
		CandidatesEvaluated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: MetricsNamespace,
			Name:      "candidates_evaluated_total",
			Help:      "Total number of candidates evaluated by the pipeline",
		}),
		CandidatesRejected: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: MetricsNamespace,
			Name:      "candidates_rejected_total",
			Help:      "Total number of candidates rejected, by reason",
		}, []string{"reason"}),
		PostsPublished: factory.NewCounter(prometheus.CounterOpts{
			Namespace: MetricsNamespace,
			Name:      "posts_published_total",
			Help:      "Total number of posts published to the channel",
		}),
		PublishFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: MetricsNamespace,
			Name:      "publish_failures_total",
			Help:      "Total number of failed publish attempts",
		}),
		SchedulingAnomalies: factory.NewCounter(prometheus.CounterOpts{
			Namespace: MetricsNamespace,
			Name:      "scheduling_anomalies_total",
			Help:      "Total number of publish slots skipped with an empty queue",
		}),
		QueueOccupied: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: MetricsNamespace,
			Name:      "queue_occupied",
			Help:      "Whether the publish slot currently holds an item (0 or 1)",
		}),
	}
}

// SetQueueOccupied records whether the publish slot holds an item.
func (m *Metrics) SetQueueOccupied(occupied bool) {
	if occupied {
		m.QueueOccupied.Set(1)
	} else {
		m.QueueOccupied.Set(0)
	}
}

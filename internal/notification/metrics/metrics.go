package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics covers notification writes and the outbox relay.
type Metrics struct {
	NotificationsCreated *prometheus.CounterVec
	OutboxPublished      prometheus.Counter
	OutboxFailed         prometheus.Counter
	OutboxBacklog        prometheus.Gauge
	RelayDuration        prometheus.Histogram
}

func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Metrics{
		NotificationsCreated: f.NewCounterVec(prometheus.CounterOpts{
			Name: "spendwise_notifications_created_total",
			Help: "Notifications created by type",
		}, []string{"type"}),
		OutboxPublished: f.NewCounter(prometheus.CounterOpts{
			Name: "spendwise_outbox_published_total",
			Help: "Outbox entries published to Kafka",
		}),
		OutboxFailed: f.NewCounter(prometheus.CounterOpts{
			Name: "spendwise_outbox_publish_failures_total",
			Help: "Outbox publish attempts that failed and were left for retry",
		}),
		OutboxBacklog: f.NewGauge(prometheus.GaugeOpts{
			Name: "spendwise_outbox_backlog",
			Help: "Unpublished outbox entries after the last relay tick",
		}),
		RelayDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "spendwise_outbox_relay_duration_seconds",
			Help:    "Duration of one outbox relay batch",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

func (m *Metrics) IncrementNotificationsCreated(notificationType string) {
	m.NotificationsCreated.WithLabelValues(notificationType).Inc()
}

func (m *Metrics) AddOutboxPublished(n int) {
	m.OutboxPublished.Add(float64(n))
}

func (m *Metrics) IncrementOutboxFailed() {
	m.OutboxFailed.Inc()
}

func (m *Metrics) SetOutboxBacklog(n int) {
	m.OutboxBacklog.Set(float64(n))
}

func (m *Metrics) ObserveRelay(start time.Time) {
	m.RelayDuration.Observe(time.Since(start).Seconds())
}

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	RequestsSent prometheus.Counter
	Transitions  *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Metrics{
		RequestsSent: f.NewCounter(prometheus.CounterOpts{
			Name: "spendwise_friend_requests_sent_total",
			Help: "Friend requests sent, including reopened ones",
		}),
		Transitions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "spendwise_friendship_transitions_total",
			Help: "Friendship state transitions by target status",
		}, []string{"status"}),
	}
}

func (m *Metrics) IncrementRequestsSent() {
	m.RequestsSent.Inc()
}

func (m *Metrics) IncrementTransition(status string) {
	m.Transitions.WithLabelValues(status).Inc()
}

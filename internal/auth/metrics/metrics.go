package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the auth module.
type Metrics struct {
	UsersCreated  prometheus.Counter
	LoginAttempts *prometheus.CounterVec
	TokensRevoked prometheus.Counter
	LoginDuration prometheus.Histogram
}

func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Metrics{
		UsersCreated: f.NewCounter(prometheus.CounterOpts{
			Name: "spendwise_users_created_total",
			Help: "Total number of users created",
		}),
		LoginAttempts: f.NewCounterVec(prometheus.CounterOpts{
			Name: "spendwise_login_attempts_total",
			Help: "Login attempts by result",
		}, []string{"result"}),
		TokensRevoked: f.NewCounter(prometheus.CounterOpts{
			Name: "spendwise_tokens_revoked_total",
			Help: "Access tokens revoked by logout",
		}),
		LoginDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "spendwise_login_duration_seconds",
			Help:    "Duration of Login operations including password verification",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
	}
}

func (m *Metrics) IncrementUsersCreated() {
	m.UsersCreated.Inc()
}

func (m *Metrics) IncrementLogin(result string) {
	m.LoginAttempts.WithLabelValues(result).Inc()
}

func (m *Metrics) IncrementTokensRevoked() {
	m.TokensRevoked.Inc()
}

// ObserveLogin records the duration of a Login call started at start.
func (m *Metrics) ObserveLogin(start time.Time) {
	m.LoginDuration.Observe(time.Since(start).Seconds())
}

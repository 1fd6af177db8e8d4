package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	request "spendwise/pkg/platform/middleware/request"
)

// Metrics holds the process-wide HTTP metrics.
type Metrics struct {
	RequestDuration *prometheus.HistogramVec
	InFlight        prometheus.Gauge
}

// New creates and registers the HTTP metrics on reg. A nil reg uses the default registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Metrics{
		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "spendwise_http_request_duration_seconds",
			Help:    "Latency of HTTP requests by route pattern, method and status",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"route", "method", "status"}),
		InFlight: factory.NewGauge(prometheus.GaugeOpts{
			Name: "spendwise_http_requests_in_flight",
			Help: "Number of HTTP requests currently being served",
		}),
	}
}

// Latency records request duration labelled by the matched chi route pattern so
// path parameters do not explode label cardinality.
func (m *Metrics) Latency(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		m.InFlight.Inc()
		defer m.InFlight.Dec()

		rw := request.NewStatusRecorder(w)
		next.ServeHTTP(rw, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		m.RequestDuration.WithLabelValues(route, r.Method, strconv.Itoa(rw.Status())).
			Observe(time.Since(start).Seconds())
	})
}

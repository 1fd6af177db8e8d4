package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for expense tracking.
type Metrics struct {
	ExpensesCreated *prometheus.CounterVec
	ExpensesDeleted prometheus.Counter
}

func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Metrics{
		ExpensesCreated: f.NewCounterVec(prometheus.CounterOpts{
			Name: "spendwise_expenses_created_total",
			Help: "Expenses created by category",
		}, []string{"category"}),
		ExpensesDeleted: f.NewCounter(prometheus.CounterOpts{
			Name: "spendwise_expenses_deleted_total",
			Help: "Expenses deleted",
		}),
	}
}

func (m *Metrics) IncrementExpensesCreated(category string) {
	m.ExpensesCreated.WithLabelValues(category).Inc()
}

func (m *Metrics) IncrementExpensesDeleted() {
	m.ExpensesDeleted.Inc()
}

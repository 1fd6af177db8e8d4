package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	GroupsCreated         prometheus.Counter
	GroupsDeleted         prometheus.Counter
	InvitesSent           prometheus.Counter
	MembershipTransitions *prometheus.CounterVec
	OwnershipTransfers    prometheus.Counter
}

func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Metrics{
		GroupsCreated: f.NewCounter(prometheus.CounterOpts{
			Name: "spendwise_groups_created_total",
			Help: "Groups created",
		}),
		GroupsDeleted: f.NewCounter(prometheus.CounterOpts{
			Name: "spendwise_groups_deleted_total",
			Help: "Groups soft-deleted by their owner",
		}),
		InvitesSent: f.NewCounter(prometheus.CounterOpts{
			Name: "spendwise_group_invites_sent_total",
			Help: "Group invitations sent, including re-invitations",
		}),
		MembershipTransitions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "spendwise_group_membership_transitions_total",
			Help: "Membership state transitions by target status",
		}, []string{"status"}),
		OwnershipTransfers: f.NewCounter(prometheus.CounterOpts{
			Name: "spendwise_group_ownership_transfers_total",
			Help: "Completed group ownership transfers",
		}),
	}
}

func (m *Metrics) IncrementGroupsCreated() {
	m.GroupsCreated.Inc()
}

func (m *Metrics) IncrementGroupsDeleted() {
	m.GroupsDeleted.Inc()
}

func (m *Metrics) IncrementInvitesSent() {
	m.InvitesSent.Inc()
}

func (m *Metrics) IncrementTransition(status string) {
	m.MembershipTransitions.WithLabelValues(status).Inc()
}

func (m *Metrics) IncrementOwnershipTransfers() {
	m.OwnershipTransfers.Inc()
}

// Package metrics collects and exposes Prometheus counters for the
// booking engine.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector records booking-engine outcomes as Prometheus counters.
// It satisfies the engine's Recorder interface.
type Collector struct {
	joins           *prometheus.CounterVec
	leaves          *prometheus.CounterVec
	invitesIssued   prometheus.Counter
	invitesRedeemed *prometheus.CounterVec
	groupsCreated   prometheus.Counter
	groupsClosed    prometheus.Counter
}

// NewCollector creates a Collector and registers its metrics on reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		joins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "booking_joins_total",
			Help: "Join operations by outcome status.",
		}, []string{"status"}),
		leaves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "booking_leaves_total",
			Help: "Leave operations by outcome status.",
		}, []string{"status"}),
		invitesIssued: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "booking_invites_issued_total",
			Help: "Plus-one invitations issued.",
		}),
		invitesRedeemed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "booking_invites_redeemed_total",
			Help: "Plus-one redemption attempts by outcome.",
		}, []string{"outcome"}),
		groupsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "booking_groups_created_total",
			Help: "Group conversations created on reaching the participant threshold.",
		}),
		groupsClosed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "booking_groups_closed_total",
			Help: "Group conversations torn down after dropping below the threshold.",
		}),
	}

	reg.MustRegister(
		c.joins,
		c.leaves,
		c.invitesIssued,
		c.invitesRedeemed,
		c.groupsCreated,
		c.groupsClosed,
	)

	return c
}

func (c *Collector) RecordJoin(status string)  { c.joins.WithLabelValues(status).Inc() }
func (c *Collector) RecordLeave(status string) { c.leaves.WithLabelValues(status).Inc() }
func (c *Collector) RecordInviteIssued()       { c.invitesIssued.Inc() }

func (c *Collector) RecordInviteRedeemed(outcome string) {
	c.invitesRedeemed.WithLabelValues(outcome).Inc()
}

func (c *Collector) RecordGroupCreated() { c.groupsCreated.Inc() }
func (c *Collector) RecordGroupClosed() { c.groupsClosed.Inc() }

// Handler returns the HTTP handler for Prometheus scrapes.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

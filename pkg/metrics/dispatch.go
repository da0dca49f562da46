package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// DispatchMetrics tracks order lifecycle and feed fan-out health.
type DispatchMetrics struct {
	ordersCreated  prometheus.Counter
	ordersClaimed  prometheus.Counter
	claimConflicts prometheus.Counter
	feedSubs       prometheus.Gauge
	feedDrops      prometheus.Counter
}

// NewDispatchMetrics registers the dispatch metrics on the provided registerer.
func NewDispatchMetrics(reg prometheus.Registerer) *DispatchMetrics {
	if reg == nil {
		return &DispatchMetrics{}
	}
	ordersCreated := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "orders_created_total",
		Help: "Repair orders created.",
	})
	ordersClaimed := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "orders_claimed_total",
		Help: "Orders successfully claimed by a technician.",
	})
	claimConflicts := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "order_claim_conflicts_total",
		Help: "Accept attempts that lost the claim race.",
	})
	feedSubs := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "dispatch_feed_subscribers",
		Help: "Currently connected dispatch feed subscribers.",
	})
	feedDrops := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "dispatch_feed_dropped_events_total",
		Help: "Feed events dropped because a subscriber buffer was full.",
	})
	reg.MustRegister(ordersCreated, ordersClaimed, claimConflicts, feedSubs, feedDrops)
	return &DispatchMetrics{
		ordersCreated:  ordersCreated,
		ordersClaimed:  ordersClaimed,
		claimConflicts: claimConflicts,
		feedSubs:       feedSubs,
		feedDrops:      feedDrops,
	}
}

// IncOrdersCreated counts a new order.
func (d *DispatchMetrics) IncOrdersCreated() {
	if d == nil || d.ordersCreated == nil {
		return
	}
	d.ordersCreated.Inc()
}

// IncOrdersClaimed counts a winning claim.
func (d *DispatchMetrics) IncOrdersClaimed() {
	if d == nil || d.ordersClaimed == nil {
		return
	}
	d.ordersClaimed.Inc()
}

// IncClaimConflicts counts a losing claim attempt.
func (d *DispatchMetrics) IncClaimConflicts() {
	if d == nil || d.claimConflicts == nil {
		return
	}
	d.claimConflicts.Inc()
}

// SetFeedSubscribers records the current subscriber count.
func (d *DispatchMetrics) SetFeedSubscribers(n int) {
	if d == nil || d.feedSubs == nil {
		return
	}
	d.feedSubs.Set(float64(n))
}

// IncFeedDrops counts an event dropped on a slow subscriber.
func (d *DispatchMetrics) IncFeedDrops() {
	if d == nil || d.feedDrops == nil {
		return
	}
	d.feedDrops.Inc()
}

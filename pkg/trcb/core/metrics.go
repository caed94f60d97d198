package core

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/version"
)

// Metrics exposes the node's internal bookkeeping as Prometheus gauges and
// counters (SPEC_FULL.md §3/§4): pending-buffer depth, retransmit backlog,
// SVV-vs-vv lag, and a running delivered-message count. None of these
// participate in protocol behavior; they only observe it.
type Metrics struct {
	PendingBufferDepth prometheus.Gauge
	RetransmitBacklog  prometheus.Gauge
	StabilityLag       prometheus.Gauge
	Delivered          prometheus.Counter
}

// NewMetrics builds and registers a fresh Metrics set against reg. Passing
// a prometheus.NewRegistry() keeps metrics scoped per-node in tests; a real
// process typically passes prometheus.DefaultRegisterer.
func NewMetrics(reg prometheus.Registerer, actor string) *Metrics {
	m := &Metrics{
		PendingBufferDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   "trcb",
			Name:        "pending_buffer_depth",
			Help:        "Number of messages currently held in the causal-delivery buffer.",
			ConstLabels: prometheus.Labels{"actor": actor},
		}),
		RetransmitBacklog: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   "trcb",
			Name:        "retransmit_backlog",
			Help:        "Number of outgoing messages with outstanding unacknowledged destinations.",
			ConstLabels: prometheus.Labels{"actor": actor},
		}),
		StabilityLag: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   "trcb",
			Name:        "stability_lag",
			Help:        "Sum of componentwise (vv - svv) counters: how far the local clock has run ahead of what is known stable fleet-wide.",
			ConstLabels: prometheus.Labels{"actor": actor},
		}),
		Delivered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "trcb",
			Name:        "delivered_total",
			Help:        "Total number of messages passed to the delivery handler.",
			ConstLabels: prometheus.Labels{"actor": actor},
		}),
	}
	reg.MustRegister(m.PendingBufferDepth, m.RetransmitBacklog, m.StabilityLag, m.Delivered)

	// trcb_build_info: repurposes the teacher's prometheus/common
	// dependency away from its deprecated common/log shim and onto its
	// (still maintained) build-info exposition helper, per
	// SPEC_FULL.md §3.
	buildInfo := version.NewCollector("trcb")
	reg.MustRegister(buildInfo)

	return m
}

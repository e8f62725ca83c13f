// Package metrics provides Prometheus metrics for minex — counters and
// histograms for the action dispatch pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ─── Dispatch ───────────────────────────────────────────────────────────────

// ActionsDispatched counts dispatched actions by verb and status family.
var ActionsDispatched = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "minex",
	Name:      "actions_dispatched_total",
	Help:      "Total dispatched actions.",
}, []string{"verb", "status"})

// DispatchLatency tracks end-to-end action dispatch duration in seconds.
var DispatchLatency = promauto.NewHistogram(prometheus.HistogramOpts{
	Namespace: "minex",
	Name:      "dispatch_latency_seconds",
	Help:      "Action dispatch duration in seconds.",
	Buckets:   prometheus.DefBuckets,
})

// ─── Failures ───────────────────────────────────────────────────────────────

// AuthDenials counts actions refused by the authorization gate.
var AuthDenials = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "minex",
	Name:      "auth_denials_total",
	Help:      "Total actions refused by authorization.",
})

// Faults counts persistence and collaborator faults surfaced as 5xx.
var Faults = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "minex",
	Name:      "faults_total",
	Help:      "Total persistence and collaborator faults.",
})

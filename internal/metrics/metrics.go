// Package metrics holds the Prometheus collectors of the POS core.
//
// Collectors register on the default registry at init and are exposed by the
// serve command at /metrics. Every collector is labelled by operation or
// outcome only; tenant ids never become label values.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "offpos"

// ─── Notification Sync ─────────────────────────────────────────────────────

// SyncRuns counts sync runs by outcome (ok, remote_unavailable, session_ended, error).
var SyncRuns = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "notify",
	Name:      "sync_runs_total",
	Help:      "Total notification sync runs by outcome.",
}, []string{"outcome"})

// SyncDuration tracks how long a sync run takes.
var SyncDuration = promauto.NewHistogram(prometheus.HistogramOpts{
	Namespace: namespace,
	Subsystem: "notify",
	Name:      "sync_duration_seconds",
	Help:      "Duration of notification sync runs.",
	Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
})

// NotificationsReconciled counts reconcile actions (insert, update, unchanged).
var NotificationsReconciled = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "notify",
	Name:      "reconciled_total",
	Help:      "Total remote notifications reconciled by action.",
}, []string{"action"})

// Deliveries counts external deliveries triggered.
var Deliveries = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "notify",
	Name:      "deliveries_total",
	Help:      "Total external notification deliveries triggered.",
})

// RemoteFailures counts failed remote calls by operation (fetch, push_read).
var RemoteFailures = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "remote",
	Name:      "failures_total",
	Help:      "Total failed remote calls by operation.",
}, []string{"operation"})

// ─── Credit Ledger ─────────────────────────────────────────────────────────

// LedgerOperations counts ledger operations by type and outcome.
var LedgerOperations = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "ledger",
	Name:      "operations_total",
	Help:      "Total ledger operations by type and outcome.",
}, []string{"operation", "outcome"})

// ─── Reports ───────────────────────────────────────────────────────────────

// ReportsGenerated counts report generations by kind and format.
var ReportsGenerated = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "report",
	Name:      "generated_total",
	Help:      "Total reports generated by kind and format.",
}, []string{"kind", "format"})

// Outcome returns the label value for an operation result.
func Outcome(err error) string {
	if err == nil {
		return "ok"
	}
	return "error"
}

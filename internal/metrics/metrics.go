// Package metrics registers the Prometheus collectors exposed on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SweepTicks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "panelstore_sweep_ticks_total",
		Help: "Expiration sweeper ticks executed.",
	})

	SweepSuspends = promauto.NewCounter(prometheus.CounterOpts{
		Name: "panelstore_sweep_suspends_total",
		Help: "Subscriptions auto-suspended past expiry.",
	})

	SweepDeletes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "panelstore_sweep_deletes_total",
		Help: "Subscriptions deleted past the grace period.",
	})

	ProvisionTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "panelstore_provision_total",
		Help: "Provisioning workflow outcomes.",
	}, []string{"result"})

	RenewalTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "panelstore_renewals_total",
		Help: "Successful renewal workflows.",
	})

	ReconcileImports = promauto.NewCounter(prometheus.CounterOpts{
		Name: "panelstore_reconcile_imports_total",
		Help: "Remote servers imported as synthetic subscriptions.",
	})

	StoreConflicts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "panelstore_store_conflicts_total",
		Help: "Document store writes rejected for a stale version token.",
	})

	OrdersCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "panelstore_orders_created_total",
		Help: "Orders accepted, by type.",
	}, []string{"type"})
)

// Package metrics registers the service's Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// OrdersPlaced counts successfully persisted orders.
	OrdersPlaced = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "marketplace",
		Name:      "orders_placed_total",
		Help:      "Number of orders persisted to the ledger.",
	})

	// PaymentOutcomes counts reconciled payment outcomes by status.
	PaymentOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "marketplace",
		Name:      "payment_outcomes_total",
		Help:      "Number of payment outcomes recorded, labeled by status.",
	}, []string{"status"})

	// NotificationFailures counts confirmation notifications that could not
	// be delivered.
	NotificationFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "marketplace",
		Name:      "notification_failures_total",
		Help:      "Number of order confirmation notifications that failed.",
	})
)

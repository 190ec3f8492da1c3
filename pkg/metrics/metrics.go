// Package metrics provides Prometheus metrics for the fern service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// NotificationsTotal counts processed notifications by source and outcome
	NotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fern",
			Subsystem: "notifications",
			Name:      "processed_total",
			Help:      "Total number of notifications processed by source and outcome",
		},
		[]string{"source", "outcome"},
	)

	// ProcessingDuration tracks end-to-end processing time
	ProcessingDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "fern",
			Subsystem: "notifications",
			Name:      "processing_duration_seconds",
			Help:      "Duration of notification processing in seconds",
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"source"},
	)

	// ExtractionErrorsTotal counts extraction failures by kind and field
	ExtractionErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fern",
			Subsystem: "extraction",
			Name:      "errors_total",
			Help:      "Total number of extraction failures by kind and field",
		},
		[]string{"kind", "field"},
	)

	// PendingServiceTokensTotal counts service tokens left for an operator
	PendingServiceTokensTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "fern",
			Subsystem: "matching",
			Name:      "pending_service_tokens_total",
			Help:      "Total number of service tokens that matched no known service",
		},
	)

	// UnresolvedCarriersTotal counts tasks stored without a carrier
	UnresolvedCarriersTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "fern",
			Subsystem: "matching",
			Name:      "unresolved_carriers_total",
			Help:      "Total number of notifications whose carrier could not be resolved",
		},
	)

	// ReconcileTotal counts reconciliation outcomes: created, merged, failed
	ReconcileTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fern",
			Subsystem: "reconcile",
			Name:      "total",
			Help:      "Total number of reconciliations by outcome",
		},
		[]string{"outcome"},
	)

	ReconcileRetriesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "fern",
			Subsystem: "reconcile",
			Name:      "retries_total",
			Help:      "Total number of reconciliations retried after a concurrent insert",
		},
	)

	// ReconcileOverlapTotal counts new tasks sharing services and window with another task
	ReconcileOverlapTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "fern",
			Subsystem: "reconcile",
			Name:      "overlap_total",
			Help:      "Total number of new tasks overlapping another task on shared services",
		},
	)

	// ArtifactsTotal counts generated artifacts by writer and outcome
	ArtifactsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fern",
			Subsystem: "artifacts",
			Name:      "generated_total",
			Help:      "Total number of generated artifacts by writer and outcome",
		},
		[]string{"writer", "outcome"},
	)

	// MailboxMessagesTotal counts messages fetched from the mailbox by outcome
	MailboxMessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fern",
			Subsystem: "mailbox",
			Name:      "messages_total",
			Help:      "Total number of mailbox messages handled by outcome",
		},
		[]string{"outcome"},
	)
)

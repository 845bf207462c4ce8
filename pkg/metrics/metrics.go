package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// APILatency measures HTTP request latencies.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pfmsim_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	// AlertsEvaluated counts alert condition evaluations by outcome (fired|skipped|cooldown|error).
	AlertsEvaluated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pfmsim_alerts_evaluated_total",
			Help: "Total number of alert evaluations",
		},
		[]string{"alert_type", "outcome"},
	)

	// NotificationsCreated counts notifications produced by the evaluator.
	NotificationsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pfmsim_notifications_created_total",
			Help: "Total number of notifications created",
		},
	)

	// MigrationRows counts rows upserted per entity type during vendor imports.
	MigrationRows = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pfmsim_migration_rows_total",
			Help: "Total number of rows imported from the vendor API",
		},
		[]string{"entity"},
	)

	// MigrationStageFailures counts import stages that ended in entity_error.
	MigrationStageFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pfmsim_migration_stage_failures_total",
			Help: "Total number of failed migration stages",
		},
		[]string{"entity"},
	)
)

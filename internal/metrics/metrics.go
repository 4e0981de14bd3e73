package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SweepsTotal tracks sweep executions by outcome
	SweepsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reminder_service_sweeps_total",
			Help: "Total number of due-notification sweeps",
		},
		[]string{"trigger", "outcome"},
	)

	// SweepDuration tracks sweep duration
	SweepDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "reminder_service_sweep_duration_seconds",
			Help:    "Sweep duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// NotificationsSent tracks delivered notifications by type and outcome
	NotificationsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reminder_service_notifications_total",
			Help: "Total number of notification delivery attempts",
		},
		[]string{"type", "outcome"},
	)

	// RecordsScheduled tracks records created by the planner
	RecordsScheduled = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reminder_service_records_scheduled_total",
			Help: "Total number of notification records created",
		},
		[]string{"type"},
	)

	// PendingBacklog tracks the number of pending records seen due at sweep time
	PendingBacklog = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "reminder_service_due_pending_records",
			Help: "Number of pending records due at the start of the last sweep",
		},
	)

	// DeadLettered tracks records moved to the dead letter collection
	DeadLettered = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "reminder_service_dead_lettered_total",
			Help: "Total number of records moved to the dead letter collection",
		},
	)

	// RateLimitExceeded tracks rejected sweep trigger calls
	RateLimitExceeded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "reminder_service_trigger_rate_limited_total",
			Help: "Total number of rate limited sweep trigger requests",
		},
	)
)

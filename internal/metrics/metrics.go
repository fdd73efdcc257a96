// Package metrics holds the process-wide prometheus collectors.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	intakeOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eventory_payment_intake_total",
			Help: "Payment intake requests by outcome",
		},
		[]string{"outcome"},
	)

	webhookOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eventory_webhook_events_total",
			Help: "Processor webhook deliveries by outcome",
		},
		[]string{"outcome"},
	)

	attendanceConflicts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "eventory_attendance_cas_conflicts_total",
			Help: "Attendance increments that lost every compare-and-swap attempt",
		},
	)

	rateLimited = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eventory_rate_limited_total",
			Help: "Requests rejected by a rate limiter",
		},
		[]string{"route"},
	)

	scanResults = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eventory_ticket_scans_total",
			Help: "Ticket scans by result",
		},
		[]string{"result"},
	)

	reconcilerActions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eventory_orphaned_charges_total",
			Help: "Orphaned charge reconciler actions",
		},
		[]string{"action"},
	)

	processorLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "eventory_processor_request_duration_seconds",
			Help:    "Duration of payment processor calls",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "status"},
	)
)

func TrackIntake(outcome string) {
	intakeOutcomes.WithLabelValues(outcome).Inc()
}

func TrackWebhook(outcome string) {
	webhookOutcomes.WithLabelValues(outcome).Inc()
}

func TrackAttendanceConflict() {
	attendanceConflicts.Inc()
}

func TrackRateLimited(route string) {
	rateLimited.WithLabelValues(route).Inc()
}

func TrackScan(result string) {
	scanResults.WithLabelValues(result).Inc()
}

func TrackReconcile(action string) {
	reconcilerActions.WithLabelValues(action).Inc()
}

// ObserveProcessor records how long a processor call took since start.
func ObserveProcessor(operation, status string, start time.Time) {
	processorLatency.WithLabelValues(operation, status).Observe(time.Since(start).Seconds())
}

package services

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics are registered once on the default registry and served at /metrics
var (
	casesCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "permitflow_cases_created_total",
		Help: "Total number of cases registered",
	})
	caseTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "permitflow_case_transitions_total",
		Help: "State transitions applied to cases",
	}, []string{"action", "from", "to"})
	caseConflicts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "permitflow_case_version_conflicts_total",
		Help: "Mutations rejected because the case version changed underneath them",
	})
	notificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "permitflow_notifications_total",
		Help: "Notification attempts by kind and outcome (sent, failed, dropped)",
	}, []string{"kind", "outcome"})
	notificationDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "permitflow_notification_duration_seconds",
		Help:    "Duration of a single notifier call",
		Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	})
)

func observeNotification(start time.Time) {
	notificationDuration.Observe(time.Since(start).Seconds())
}

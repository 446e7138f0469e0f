package meetup

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	transitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "meetup",
		Name:      "transitions_total",
		Help:      "Applied transaction transitions by event and status change.",
	}, []string{"event", "from", "to"})

	transitionErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "meetup",
		Name:      "transition_errors_total",
		Help:      "Rejected or failed transition attempts by operation and error class.",
	}, []string{"operation", "class"})

	notificationFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "meetup",
		Name:      "notification_failures_total",
		Help:      "Counterparty notifications that could not be delivered after a persisted write.",
	})

	conflictRetriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "meetup",
		Name:      "conflict_retries_total",
		Help:      "Optimistic writes retried after losing a version race.",
	})

	monitorAppliedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "meetup",
		Name:      "monitor_applied_total",
		Help:      "Timer-driven transitions applied by the expiry monitor.",
	}, []string{"event"})

	monitorRunDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "meetup",
		Name:      "monitor_run_duration_seconds",
		Help:      "Duration of one expiry monitor pass.",
		Buckets:   prometheus.DefBuckets,
	})
)

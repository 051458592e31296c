package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PermissionChecks counts company permission evaluations and their outcome (allowed|denied|error).
	PermissionChecks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crewdeck_permission_checks_total",
			Help: "Total number of company permission checks",
		},
		[]string{"permission", "result"},
	)

	// MembershipTransitions counts member status transitions by resulting status.
	MembershipTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crewdeck_membership_transitions_total",
			Help: "Total number of company member status transitions",
		},
		[]string{"status"},
	)

	// JoinEvents counts published user-joined-company events.
	JoinEvents = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "crewdeck_join_events_total",
			Help: "Total number of user joined company events published",
		},
	)

	// NotificationDeliveries counts join fan-out deliveries by result (sent|failed).
	NotificationDeliveries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crewdeck_notification_deliveries_total",
			Help: "Total number of join notification deliveries",
		},
		[]string{"result"},
	)

	// APILatency measures HTTP request latencies.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "crewdeck_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)

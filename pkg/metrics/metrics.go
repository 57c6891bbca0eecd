// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	PolicyDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "hospital",
		Name:      "policy_decisions_total",
		Help:      "Access policy decisions by role, resource, action and effect.",
	}, []string{"role", "resource", "action", "effect"})

	AuditEntries = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "hospital",
		Name:      "audit_entries_total",
		Help:      "Audit log entries appended, by action.",
	}, []string{"action"})

	AccountsProvisioned = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "hospital",
		Name:      "accounts_provisioned_total",
		Help:      "Login accounts created, by role.",
	}, []string{"role"})

	MailDeliveries = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "hospital",
		Name:      "mail_deliveries_total",
		Help:      "Outgoing mail attempts by kind and outcome.",
	}, []string{"kind", "outcome"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "hospital",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by route pattern, method and status.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route", "method", "status"})

	DashboardBuildDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "hospital",
		Name:      "dashboard_build_duration_seconds",
		Help:      "Time spent loading and aggregating the dashboard snapshot.",
		Buckets:   prometheus.DefBuckets,
	})
)

// ObserveHTTP records one served request
func ObserveHTTP(route, method string, status int, elapsed time.Duration) {
	HTTPRequestDuration.WithLabelValues(route, method, strconv.Itoa(status)).Observe(elapsed.Seconds())
}

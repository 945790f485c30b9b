package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// APILatency measures HTTP request latencies per route template.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "barangay_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)

	// APIResponses counts responses per route template and status class (2xx|3xx|4xx|5xx).
	APIResponses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "barangay_api_responses_total",
			Help: "API responses by route and status class",
		},
		[]string{"route", "class"},
	)

	// PageChecks counts role/page guard evaluations (allowed|denied).
	PageChecks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "barangay_page_checks_total",
			Help: "Total number of role page checks",
		},
		[]string{"page", "result"},
	)

	// Invitations counts invitation lifecycle events (issued|accepted|revoked|denied|collision).
	Invitations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "barangay_invitations_total",
			Help: "Invitation lifecycle events",
		},
		[]string{"event"},
	)

	// TenantScopeDenials counts mutations rejected because the record belongs to another tenant.
	TenantScopeDenials = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "barangay_tenant_scope_denials_total",
			Help: "Cross-tenant record access attempts",
		},
		[]string{"resource"},
	)

	// AccountsProvisioned counts new accounts by provisioning path (bootstrap|invitation).
	AccountsProvisioned = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "barangay_accounts_provisioned_total",
			Help: "Accounts created by provisioning path",
		},
		[]string{"path"},
	)

	// Logins records identity-provider sign-in outcomes (success|failure).
	Logins = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "barangay_logins_total",
			Help: "Sign-in attempts through the identity provider",
		},
		[]string{"result"},
	)

	// RateLimitDecisions counts throttle outcomes on public endpoints (allowed|denied|store_error).
	RateLimitDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "barangay_rate_limit_decisions_total",
			Help: "Rate limiter decisions on unauthenticated endpoints",
		},
		[]string{"result"},
	)
)

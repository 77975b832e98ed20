package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics
var (
	// HTTPRequestsTotal tracks total HTTP requests by method, path and status
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestDuration tracks HTTP request duration
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path"},
	)

	// HTTPRequestsInFlight tracks in-flight HTTP requests
	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_requests_in_flight",
			Help: "Number of HTTP requests currently being served",
		},
	)
)

// Tenant metrics
var (
	// TenantResolutionsTotal tracks tenant resolution outcomes by source
	// (query, path, default) and result (ok, not_member, not_found).
	TenantResolutionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tenant_resolutions_total",
			Help: "Total number of tenant resolution attempts by source and result",
		},
		[]string{"source", "result"},
	)

	// TenantMembersTotal tracks the member count per tenant.
	TenantMembersTotal = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "tenant_members_total",
			Help: "Number of members per tenant",
		},
		[]string{"tenant_id"},
	)

	// QuotaRejectionsTotal tracks operations blocked by plan quotas.
	QuotaRejectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quota_rejections_total",
			Help: "Total number of operations rejected by plan quotas",
		},
		[]string{"tenant_id", "quota"},
	)
)

// OKR metrics
var (
	// CheckInsTotal tracks key result check-ins recorded.
	CheckInsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "checkins_total",
			Help: "Total number of key result check-ins recorded",
		},
		[]string{"tenant_id"},
	)

	// BadgeAwardsTotal tracks recognition badges awarded.
	BadgeAwardsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "badge_awards_total",
			Help: "Total number of recognition badges awarded",
		},
		[]string{"tenant_id"},
	)

	// ObjectivesActive tracks active objectives per tenant.
	ObjectivesActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "objectives_active",
			Help: "Number of active objectives per tenant",
		},
		[]string{"tenant_id"},
	)
)

// Billing metrics
var (
	// WebhookEventsTotal tracks billing webhook events by type and result.
	WebhookEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "billing_webhook_events_total",
			Help: "Total number of billing webhook events by type and result",
		},
		[]string{"type", "result"},
	)

	// SubscriptionTransitionsTotal tracks subscription state transitions.
	SubscriptionTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "subscription_transitions_total",
			Help: "Total number of subscription state transitions",
		},
		[]string{"from", "to"},
	)
)

// Chat metrics
var (
	// WebSocketConnectionsActive tracks open chat connections.
	WebSocketConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "websocket_connections_active",
			Help: "Number of active WebSocket chat connections",
		},
	)

	// ChatMessagesTotal tracks chat messages posted.
	ChatMessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_messages_total",
			Help: "Total number of chat messages posted",
		},
		[]string{"tenant_id"},
	)
)

// Job metrics
var (
	// JobsProcessedTotal tracks background jobs by type and status.
	JobsProcessedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jobs_processed_total",
			Help: "Total number of background jobs processed by type and status",
		},
		[]string{"type", "status"},
	)

	// JobDuration tracks background job duration.
	JobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "job_duration_seconds",
			Help:    "Background job duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120, 300},
		},
		[]string{"type"},
	)
)

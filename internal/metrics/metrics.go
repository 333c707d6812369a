package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Metrics holds all Prometheus metric collectors for the portal API.
type Metrics struct {
	registry *prometheus.Registry

	// HTTP metrics.
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPResponseSize    *prometheus.HistogramVec

	// Participation metrics.
	AssignmentsTotal      *prometheus.CounterVec
	AssignmentErrorsTotal prometheus.Counter
	RolePromotionsTotal   prometheus.Counter
	RolePromotionFailures prometheus.Counter

	// Authorization metrics.
	PermissionDenialsTotal *prometheus.CounterVec
	PolicyDenialsTotal     *prometheus.CounterVec

	// Auth metrics.
	AuthFailuresTotal  *prometheus.CounterVec
	AuthSuccessesTotal *prometheus.CounterVec

	RateLimitRejectionsTotal prometheus.Counter

	ServerStartTime prometheus.Gauge
}

// New creates and registers all metrics on a private registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry: reg,

		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "portal_http_requests_total",
			Help: "Total number of HTTP requests.",
		}, []string{"method", "path_pattern", "status_code"}),

		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "portal_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path_pattern"}),

		HTTPResponseSize: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "portal_http_response_size_bytes",
			Help:    "HTTP response size in bytes.",
			Buckets: prometheus.ExponentialBuckets(100, 10, 6),
		}, []string{"method", "path_pattern"}),

		AssignmentsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "portal_assignments_total",
			Help: "Total number of mission assignments created.",
		}, []string{"source"}),

		AssignmentErrorsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "portal_assignment_errors_total",
			Help: "Total number of member assignments that failed during an organization-wide assignment.",
		}),

		RolePromotionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "portal_role_promotions_total",
			Help: "Total number of users promoted to the Manager role.",
		}),
		RolePromotionFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "portal_role_promotion_failures_total",
			Help: "Total number of manager promotions that failed after the membership write.",
		}),

		PermissionDenialsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "portal_permission_denials_total",
			Help: "Total number of requests rejected by the role permission gate.",
		}, []string{"action"}),

		PolicyDenialsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "portal_policy_denials_total",
			Help: "Total number of requests rejected by a route policy.",
		}, []string{"policy"}),

		AuthFailuresTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "portal_auth_failures_total",
			Help: "Total number of authentication failures.",
		}, []string{"reason"}),

		AuthSuccessesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "portal_auth_successes_total",
			Help: "Total number of successful logins and registrations.",
		}, []string{"method"}),

		RateLimitRejectionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "portal_ratelimit_rejections_total",
			Help: "Total number of requests rejected by the per-client rate limiter.",
		}),

		ServerStartTime: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "portal_server_start_time_seconds",
			Help: "Unix timestamp when the server started.",
		}),
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPResponseSize,
		m.AssignmentsTotal,
		m.AssignmentErrorsTotal,
		m.RolePromotionsTotal,
		m.RolePromotionFailures,
		m.PermissionDenialsTotal,
		m.PolicyDenialsTotal,
		m.AuthFailuresTotal,
		m.AuthSuccessesTotal,
		m.RateLimitRejectionsTotal,
		m.ServerStartTime,
	)

	m.ServerStartTime.Set(float64(time.Now().Unix()))

	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	return m
}

// Registry returns the private Prometheus registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RegisterDBPoolCollector registers a custom DB pool stats collector.
func (m *Metrics) RegisterDBPoolCollector(statFunc DBPoolStatFunc) {
	m.registry.MustRegister(NewDBPoolCollector(statFunc))
}

// AssignmentCreated counts a new mission assignment by source.
func (m *Metrics) AssignmentCreated(source string) {
	m.AssignmentsTotal.WithLabelValues(source).Inc()
}

// AssignmentFailed counts a member that could not be assigned.
func (m *Metrics) AssignmentFailed() {
	m.AssignmentErrorsTotal.Inc()
}

// IncRolePromotion counts a promotion to the Manager role.
func (m *Metrics) IncRolePromotion() {
	m.RolePromotionsTotal.Inc()
}

// IncRolePromotionFailure counts a promotion that returned an error.
func (m *Metrics) IncRolePromotionFailure() {
	m.RolePromotionFailures.Inc()
}

// IncPermissionDenial counts a request whose role lacks action.
func (m *Metrics) IncPermissionDenial(action string) {
	m.PermissionDenialsTotal.WithLabelValues(action).Inc()
}

// IncPolicyDenial counts a request rejected by the named policy.
func (m *Metrics) IncPolicyDenial(policy string) {
	m.PolicyDenialsTotal.WithLabelValues(policy).Inc()
}

// IncAuthFailure increments the auth failure counter for the given reason.
func (m *Metrics) IncAuthFailure(reason string) {
	m.AuthFailuresTotal.WithLabelValues(reason).Inc()
}

// IncAuthSuccess increments the auth success counter for the given method.
func (m *Metrics) IncAuthSuccess(method string) {
	m.AuthSuccessesTotal.WithLabelValues(method).Inc()
}

// IncRateLimitRejection increments the rate limit rejection counter.
func (m *Metrics) IncRateLimitRejection() {
	m.RateLimitRejectionsTotal.Inc()
}

// Package metrics holds the Prometheus collectors for the service.
//
// Everything registers on a private prometheus.Registry instead of the global default
// one, so each test (and each server instance) gets fresh counters and
// registering twice never panics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Label values used by the domain counters.
const (
	ResultCreated  = "created"
	ResultRejected = "rejected" // validation failure
	ResultFailed   = "failed"   // store failure

	ActionApprove = "approve"
	ActionReject  = "reject"

	ActionAdd    = "add"
	ActionRemove = "remove"
)

type Metrics struct {
	registry *prometheus.Registry

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
	submissions  *prometheus.CounterVec
	approvals    *prometheus.CounterVec
	bookmarks    *prometheus.CounterVec
}

// New creates the collectors and registers them, plus the Go runtime and process
// collectors, on a new registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		httpRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "repohub_http_requests_total",
			Help: "HTTP requests by method, route pattern and status code",
		}, []string{"method", "route", "status"}),
		httpDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "repohub_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		submissions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "repohub_submissions_total",
			Help: "Repository submissions by result",
		}, []string{"result"}),
		approvals: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "repohub_approval_transitions_total",
			Help: "Approval workflow transitions by action",
		}, []string{"action"}),
		bookmarks: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "repohub_bookmarks_total",
			Help: "Bookmark changes by action",
		}, []string{"action"}),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry is exposed for tests (prometheus/testutil).
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveRequest records one finished HTTP request.
// route is the chi route pattern ("/api/repositories/{id}"), never the raw path,
// so label cardinality stays bounded.
func (m *Metrics) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	m.httpRequests.WithLabelValues(method, route, statusLabel(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

func (m *Metrics) SubmissionRecorded(result string) {
	m.submissions.WithLabelValues(result).Inc()
}

func (m *Metrics) ApprovalTransition(action string) {
	m.approvals.WithLabelValues(action).Inc()
}

func (m *Metrics) BookmarkChanged(action string) {
	m.bookmarks.WithLabelValues(action).Inc()
}

func statusLabel(status int) string {
	// net/http writes 200 when a handler never calls WriteHeader
	if status == 0 {
		status = http.StatusOK
	}
	return strconv.Itoa(status)
}

// Package metrics defines the Prometheus collectors exported by fintrack processes.
//
// All methods are safe on a nil *Metrics so components can be built without
// instrumentation in tests.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "fintrack"

// Metrics holds the collectors for one process.
type Metrics struct {
	gatherer prometheus.Gatherer

	rpcRequests   *prometheus.CounterVec
	rpcDuration   *prometheus.HistogramVec
	authAttempts  *prometheus.CounterVec
	writes        *prometheus.CounterVec
	liveQueries   prometheus.Gauge
	webClients    prometheus.Gauge
	notifications *prometheus.CounterVec
}

// New creates the collectors and registers them with a fresh registry
// that also carries the Go runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return NewWith(reg, reg)
}

// NewWith registers the collectors with reg and serves them from g.
func NewWith(reg prometheus.Registerer, g prometheus.Gatherer) *Metrics {
	m := &Metrics{
		gatherer: g,
		rpcRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rpc_requests_total",
			Help:      "Backend RPC requests by procedure and result code.",
		}, []string{"procedure", "code"}),
		rpcDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "rpc_duration_seconds",
			Help:      "Backend RPC latency by procedure.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"procedure"}),
		authAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "auth_attempts_total",
			Help:      "Sign-in and registration attempts by flow and outcome.",
		}, []string{"flow", "outcome"}),
		writes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "document_writes_total",
			Help:      "Document writes by collection and operation.",
		}, []string{"collection", "op"}),
		liveQueries: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "live_queries",
			Help:      "Open transaction live queries.",
		}),
		webClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "web_clients",
			Help:      "Browser sessions with a live client core.",
		}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "User-facing notifications by level.",
		}, []string{"level"}),
	}
	reg.MustRegister(m.rpcRequests, m.rpcDuration, m.authAttempts, m.writes, m.liveQueries, m.webClients, m.notifications)
	return m
}

// Handler serves the collected metrics in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// ObserveRPC records one finished RPC.
func (m *Metrics) ObserveRPC(procedure, code string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.rpcRequests.WithLabelValues(procedure, code).Inc()
	m.rpcDuration.WithLabelValues(procedure).Observe(elapsed.Seconds())
}

// AuthAttempt records a sign-in or registration outcome ("ok" or an error code).
func (m *Metrics) AuthAttempt(flow, outcome string) {
	if m == nil {
		return
	}
	m.authAttempts.WithLabelValues(flow, outcome).Inc()
}

// Write records a document write.
func (m *Metrics) Write(collection, op string) {
	if m == nil {
		return
	}
	m.writes.WithLabelValues(collection, op).Inc()
}

// LiveQueryOpened and LiveQueryClosed track open live queries.
func (m *Metrics) LiveQueryOpened() {
	if m == nil {
		return
	}
	m.liveQueries.Inc()
}

func (m *Metrics) LiveQueryClosed() {
	if m == nil {
		return
	}
	m.liveQueries.Dec()
}

// SetWebClients reports the number of live browser sessions.
func (m *Metrics) SetWebClients(n int) {
	if m == nil {
		return
	}
	m.webClients.Set(float64(n))
}

// Notification counts a message surfaced to the user.
func (m *Metrics) Notification(level string) {
	if m == nil {
		return
	}
	m.notifications.WithLabelValues(level).Inc()
}

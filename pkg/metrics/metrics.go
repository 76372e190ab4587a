package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "mediroute"

// Metrics owns its own registry so several instances (tests, embedded
// servers) never collide on the default registerer.
type Metrics struct {
	registry *prometheus.Registry

	// HTTP
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// dispatch
	dispatchTotal       *prometheus.CounterVec
	dispatchUnavailable *prometheus.CounterVec
	locatorScan         prometheus.Histogram
	resolutionTotal     *prometheus.CounterVec
	reconcileFlagged    prometheus.Counter
	pendingRequests     prometheus.Gauge

	// rate limiter
	rateLimitAllow *prometheus.CounterVec
	rateLimitDeny  *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,

		httpRequestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		httpRequestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),

		dispatchTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "dispatch_total",
				Help:      "Requests routed to a hospital",
			},
			[]string{"type", "criticality"},
		),
		dispatchUnavailable: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "dispatch_unavailable_total",
				Help:      "Dispatch attempts rejected because no approved hospital has a location",
			},
			[]string{"type"},
		),
		locatorScan: f.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "locator_scan_seconds",
				Help:      "Time spent scanning hospitals for the nearest one",
				Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
			},
		),
		resolutionTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "resolution_total",
				Help:      "Request resolution attempts by outcome",
			},
			[]string{"result"},
		),
		reconcileFlagged: f.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "reconcile_flagged_total",
				Help:      "Prescriptions flagged for manual review by the reconciliation sweep",
			},
		),
		pendingRequests: f.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "pending_requests",
				Help:      "Requests waiting in hospital queues",
			},
		),

		rateLimitAllow: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limit_allow_total",
			Help:      "Allowed requests by rate limiter",
		}, []string{"route"}),
		rateLimitDeny: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limit_deny_total",
			Help:      "Denied requests by rate limiter",
		}, []string{"route"}),
	}
}

func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	m.httpRequestsTotal.WithLabelValues(method, path, status).Inc()
	m.httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

func (m *Metrics) RecordDispatch(requestType, criticality string) {
	m.dispatchTotal.WithLabelValues(requestType, criticality).Inc()
}

func (m *Metrics) RecordDispatchUnavailable(requestType string) {
	m.dispatchUnavailable.WithLabelValues(requestType).Inc()
}

func (m *Metrics) ObserveLocatorScan(d time.Duration) {
	m.locatorScan.Observe(d.Seconds())
}

func (m *Metrics) RecordResolution(result string) {
	m.resolutionTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) RecordReconcileFlagged(n int) {
	m.reconcileFlagged.Add(float64(n))
}

func (m *Metrics) SetPendingRequests(n int64) {
	m.pendingRequests.Set(float64(n))
}

// OnAllow and OnDeny satisfy middleware.MetricsObserver.
func (m *Metrics) OnAllow(route, key string) { m.rateLimitAllow.WithLabelValues(route).Inc() }
func (m *Metrics) OnDeny(route, key string)  { m.rateLimitDeny.WithLabelValues(route).Inc() }

// Package metrics holds the Prometheus collectors shared by the clerk
// binaries. A nil *Metrics is valid and records nothing.
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

type Metrics struct {
	registry        *prometheus.Registry
	reminders       *prometheus.CounterVec
	reports         *prometheus.CounterVec
	activity        *prometheus.CounterVec
	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	rateLimited     prometheus.Counter
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)
	return &Metrics{
		registry: reg,
		reminders: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "clerk_reminders_total",
			Help: "reminder delivery attempts by channel and result",
		}, []string{"channel", "result"}),
		reports: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "clerk_reports_generated_total",
			Help: "reports generated by output format",
		}, []string{"format"}),
		activity: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "clerk_activity_events_total",
			Help: "activity events by kind and outcome",
		}, []string{"kind", "outcome"}),
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "clerk_http_requests_total",
			Help: "HTTP requests by method, route and status",
		}, []string{"method", "route", "status"}),
		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "clerk_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
		}, []string{"method", "route"}),
		rateLimited: factory.NewCounter(prometheus.CounterOpts{
			Name: "clerk_http_rate_limited_total",
			Help: "requests rejected by the rate limiter",
		}),
	}
}

// Reminder results.
const (
	ResultSent    = "sent"
	ResultFailed  = "failed"
	ResultSkipped = "skipped"
)

func (m *Metrics) ObserveReminder(channel, result string) {
	if m == nil {
		return
	}
	m.reminders.WithLabelValues(channel, result).Inc()
}

func (m *Metrics) ObserveReport(format string) {
	if m == nil {
		return
	}
	m.reports.WithLabelValues(format).Inc()
}

func (m *Metrics) ObserveActivity(kind, outcome string) {
	if m == nil {
		return
	}
	m.activity.WithLabelValues(kind, outcome).Inc()
}

func (m *Metrics) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

func (m *Metrics) ObserveRateLimited() {
	if m == nil {
		return
	}
	m.rateLimited.Inc()
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

package metrics

import (
	"net/http"
	"strconv"
	"time"

	restful "github.com/emicklei/go-restful/v3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors of the API.
type Metrics struct {
	registry *prometheus.Registry

	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Auth metrics
	AuthAttemptsTotal *prometheus.CounterVec
	RateLimitedTotal  *prometheus.CounterVec

	// Engagement metrics
	EngagementTotal *prometheus.CounterVec
	UploadsTotal    *prometheus.CounterVec

	// Analytics metrics
	AnalyticsRefreshTotal *prometheus.CounterVec
	AnalyticsLastRefresh  prometheus.Gauge
}

// New creates the collectors and registers them, together with the Go
// runtime and process collectors, on registry.
func New(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		registry: registry,
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "trendzn_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "trendzn_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		AuthAttemptsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "trendzn_auth_attempts_total",
				Help: "Login and registration attempts by outcome",
			},
			[]string{"action", "outcome"},
		),
		RateLimitedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "trendzn_rate_limited_total",
				Help: "Requests rejected by the rate limiter",
			},
			[]string{"route"},
		),
		EngagementTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "trendzn_engagement_total",
				Help: "Trend views and template uses recorded, by signed-in or anonymous caller",
			},
			[]string{"kind", "audience"},
		),
		UploadsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "trendzn_uploads_total",
				Help: "Created records carrying an uploaded image",
			},
			[]string{"resource"},
		),
		AnalyticsRefreshTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "trendzn_analytics_refresh_total",
				Help: "Analytics snapshot refreshes by status",
			},
			[]string{"status"},
		),
		AnalyticsLastRefresh: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "trendzn_analytics_last_refresh_timestamp_seconds",
				Help: "Unix time of the last successful analytics refresh",
			},
		),
	}

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.AuthAttemptsTotal,
		m.RateLimitedTotal,
		m.EngagementTotal,
		m.UploadsTotal,
		m.AnalyticsRefreshTotal,
		m.AnalyticsLastRefresh,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Filter records count and latency per matched route template, so
// "/api/trends/{id}" is one series regardless of the id.
func (m *Metrics) Filter() restful.FilterFunction {
	return func(req *restful.Request, resp *restful.Response, chain *restful.FilterChain) {
		start := time.Now()
		chain.ProcessFilter(req, resp)

		route := req.SelectedRoutePath()
		if route == "" {
			route = "unmatched"
		}
		method := req.Request.Method
		m.HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(resp.StatusCode())).Inc()
		m.HTTPRequestDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
	}
}

func (m *Metrics) RecordAuth(action string, err error) {
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	m.AuthAttemptsTotal.WithLabelValues(action, outcome).Inc()
}

// RecordEngagement counts a view or use; member reports a signed-in caller.
func (m *Metrics) RecordEngagement(kind string, member bool) {
	audience := "anonymous"
	if member {
		audience = "member"
	}
	m.EngagementTotal.WithLabelValues(kind, audience).Inc()
}

func (m *Metrics) RecordUpload(resource string) {
	m.UploadsTotal.WithLabelValues(resource).Inc()
}

func (m *Metrics) RecordRateLimited(route string) {
	m.RateLimitedTotal.WithLabelValues(route).Inc()
}

func (m *Metrics) RecordAnalyticsRefresh(err error) {
	if err != nil {
		m.AnalyticsRefreshTotal.WithLabelValues("error").Inc()
		return
	}
	m.AnalyticsRefreshTotal.WithLabelValues("success").Inc()
	m.AnalyticsLastRefresh.SetToCurrentTime()
}

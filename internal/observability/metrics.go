package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the backend.
type Metrics struct {
	// Registry is the Prometheus registry that owns these metrics.
	Registry *prometheus.Registry

	requestDuration   *prometheus.HistogramVec
	statusTransitions *prometheus.CounterVec
	authEvents        *prometheus.CounterVec
	seeded            *prometheus.CounterVec
}

// NewMetrics creates a dedicated Prometheus registry and registers all
// application metrics in it. A private registry lets tests build as many
// instances as they like.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "shipdesk_http_request_duration_seconds",
				Help:    "Duration of HTTP requests by route and status.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route", "status"},
		),
		statusTransitions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "shipdesk_status_transitions_total",
				Help: "Shipment status changes by previous and new status.",
			},
			[]string{"from", "to"},
		),
		authEvents: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "shipdesk_auth_events_total",
				Help: "Authentication events by kind and outcome.",
			},
			[]string{"event", "outcome"},
		),
		seeded: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "shipdesk_seeded_rows_total",
				Help: "Rows inserted by the seed endpoints.",
			},
			[]string{"resource"},
		),
	}
}

// RecordStatusTransition counts one shipment status change.
func (m *Metrics) RecordStatusTransition(from, to string) {
	if m == nil {
		return
	}
	m.statusTransitions.WithLabelValues(from, to).Inc()
}

// RecordAuthEvent counts a login, refresh, register or verify attempt.
func (m *Metrics) RecordAuthEvent(event string, err error) {
	if m == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	m.authEvents.WithLabelValues(event, outcome).Inc()
}

// RecordSeeded adds seeded row counts.
func (m *Metrics) RecordSeeded(resource string, n int) {
	if m == nil {
		return
	}
	m.seeded.WithLabelValues(resource).Add(float64(n))
}

// Middleware observes request latency per matched route.
func (m *Metrics) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			status := c.Response().Status
			if he, ok := err.(*echo.HTTPError); ok {
				status = he.Code
			} else if err != nil {
				status = http.StatusInternalServerError
			}
			m.requestDuration.
				WithLabelValues(c.Request().Method, c.Path(), strconv.Itoa(status)).
				Observe(time.Since(start).Seconds())
			return err
		}
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

package metrics

import (
	"strconv"
	"strings"

	"github.com/deveex11-sketch/postdominator/internal/domain"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
)

// Values of the platform label for requests that do not name a known platform.
const (
	platformNone    = "none"
	platformUnknown = "unknown"
)

// HTTPMetrics tracks requests by route and, on the OAuth and connection routes, by platform.
type HTTPMetrics struct {
	RequestDuration *prometheus.HistogramVec
	RequestsTotal   *prometheus.CounterVec
	InFlightGauge   prometheus.Gauge
}

func NewHTTPMetrics(reg prometheus.Registerer) *HTTPMetrics {
	labels := []string{"method", "route", "platform", "status_code"}

	m := &HTTPMetrics{
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds.",
			// Callbacks include a provider round trip, so the tail runs longer than DefBuckets.
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		}, labels),
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests.",
		}, labels),
		InFlightGauge: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of HTTP requests currently being processed.",
		}),
	}

	reg.MustRegister(m.RequestDuration, m.RequestsTotal, m.InFlightGauge)
	return m
}

// Middleware records request metrics. Health and scrape endpoints are not counted.
func (m *HTTPMetrics) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			route := c.Path()
			if route == "/metrics" || strings.HasPrefix(route, "/health/") {
				return next(c)
			}

			m.InFlightGauge.Inc()
			defer m.InFlightGauge.Dec()

			timer := prometheus.NewTimer(prometheus.ObserverFunc(func(v float64) {
				method := c.Request().Method
				platform := platformLabel(c)
				status := strconv.Itoa(c.Response().Status)
				m.RequestDuration.WithLabelValues(method, route, platform, status).Observe(v)
				m.RequestsTotal.WithLabelValues(method, route, platform, status).Inc()
			}))

			err := next(c)
			timer.ObserveDuration()
			return err
		}
	}
}

// platformLabel keeps the label bounded: arbitrary path values collapse to "unknown".
func platformLabel(c echo.Context) string {
	raw := c.Param("platform")
	if raw == "" {
		return platformNone
	}
	p, err := domain.ParsePlatform(raw)
	if err != nil {
		return platformUnknown
	}
	return string(p)
}

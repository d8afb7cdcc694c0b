package metrics

import (
	"time"

	"github.com/deveex11-sketch/postdominator/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
)

// OAuthMetrics holds Prometheus metrics for the connection lifecycle and provider calls.
// It satisfies app.Observer.
type OAuthMetrics struct {
	FlowsStarted     *prometheus.CounterVec
	Callbacks        *prometheus.CounterVec
	TokenRefreshes   *prometheus.CounterVec
	ProviderDuration *prometheus.HistogramVec
	ProviderErrors   *prometheus.CounterVec
	BreakerState     *prometheus.GaugeVec
}

// NewOAuthMetrics creates and registers OAuth metrics on the given registry.
func NewOAuthMetrics(reg prometheus.Registerer) *OAuthMetrics {
	m := &OAuthMetrics{
		FlowsStarted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "oauth",
			Name:      "flows_started_total",
			Help:      "Total number of authorization flows started, by platform.",
		}, []string{"platform"}),
		Callbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "oauth",
			Name:      "callbacks_total",
			Help:      "Total number of authorization callbacks, by platform and result.",
		}, []string{"platform", "result"}),
		TokenRefreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "oauth",
			Name:      "token_refreshes_total",
			Help:      "Total number of token refresh attempts, by platform and result.",
		}, []string{"platform", "result"}),
		ProviderDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "provider",
			Name:      "request_duration_seconds",
			Help:      "Duration of provider calls in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"platform", "operation"}),
		ProviderErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "provider",
			Name:      "errors_total",
			Help:      "Total number of failed provider calls.",
		}, []string{"platform", "operation"}),
		BreakerState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "provider",
			Name:      "circuit_breaker_state",
			Help:      "Circuit breaker state per platform (0=closed, 1=half-open, 2=open).",
		}, []string{"platform"}),
	}

	reg.MustRegister(m.FlowsStarted, m.Callbacks, m.TokenRefreshes, m.ProviderDuration, m.ProviderErrors, m.BreakerState)
	return m
}

func (m *OAuthMetrics) FlowStarted(platform domain.Platform) {
	m.FlowsStarted.WithLabelValues(string(platform)).Inc()
}

func (m *OAuthMetrics) CallbackHandled(platform domain.Platform, result string) {
	m.Callbacks.WithLabelValues(string(platform), result).Inc()
}

func (m *OAuthMetrics) TokenRefreshed(platform domain.Platform, result string) {
	m.TokenRefreshes.WithLabelValues(string(platform), result).Inc()
}

func (m *OAuthMetrics) ProviderCall(platform domain.Platform, operation string, d time.Duration, err error) {
	m.ProviderDuration.WithLabelValues(string(platform), operation).Observe(d.Seconds())
	if err != nil {
		m.ProviderErrors.WithLabelValues(string(platform), operation).Inc()
	}
}

// BreakerChanged matches provider.BreakerListener.
func (m *OAuthMetrics) BreakerChanged(platform domain.Platform, state string) {
	var v float64
	switch state {
	case "half-open":
		v = 1
	case "open":
		v = 2
	}
	m.BreakerState.WithLabelValues(string(platform)).Set(v)
}

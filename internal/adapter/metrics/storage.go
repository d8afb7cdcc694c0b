package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// DBMetrics records query latency and errors. It satisfies postgres.QueryObserver.
type DBMetrics struct {
	QueryDuration *prometheus.HistogramVec
	Errors        *prometheus.CounterVec
}

// NewDBMetrics creates and registers database metrics on the given registry.
func NewDBMetrics(reg prometheus.Registerer) *DBMetrics {
	m := &DBMetrics{
		QueryDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "db",
			Name:      "query_duration_seconds",
			Help:      "Duration of database queries in seconds.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"operation"}),
		Errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "db",
			Name:      "errors_total",
			Help:      "Total number of failed database queries.",
		}, []string{"operation"}),
	}

	reg.MustRegister(m.QueryDuration, m.Errors)
	return m
}

func (m *DBMetrics) ObserveQuery(operation string, d time.Duration, err error) {
	m.QueryDuration.WithLabelValues(operation).Observe(d.Seconds())
	if err != nil {
		m.Errors.WithLabelValues(operation).Inc()
	}
}

// RedisMetrics records command counts and latency. It satisfies redis.CommandObserver.
type RedisMetrics struct {
	Operations *prometheus.CounterVec
	Duration   *prometheus.HistogramVec
}

// NewRedisMetrics creates and registers Redis metrics on the given registry.
func NewRedisMetrics(reg prometheus.Registerer) *RedisMetrics {
	m := &RedisMetrics{
		Operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "redis",
			Name:      "operations_total",
			Help:      "Total number of Redis commands, by command and status.",
		}, []string{"command", "status"}),
		Duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "redis",
			Name:      "operation_duration_seconds",
			Help:      "Duration of Redis commands in seconds.",
			Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1},
		}, []string{"command"}),
	}

	reg.MustRegister(m.Operations, m.Duration)
	return m
}

func (m *RedisMetrics) ObserveCommand(command string, d time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.Operations.WithLabelValues(command, status).Inc()
	m.Duration.WithLabelValues(command).Observe(d.Seconds())
}

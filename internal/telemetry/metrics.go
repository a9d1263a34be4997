package telemetry

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the controller and notification metrics
type Metrics struct {
	Registry *prometheus.Registry

	CommandsTotal   *prometheus.CounterVec
	CommandDuration *prometheus.HistogramVec
	Notifications   prometheus.Counter
	Records         prometheus.Gauge
}

// NewMetrics creates the metrics on a private registry
func NewMetrics() *Metrics {
	m := &Metrics{Registry: prometheus.NewRegistry()}

	m.CommandsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "health_sessions_commands_total",
			Help: "Controller commands processed, by operation and result",
		},
		[]string{"op", "result"},
	)

	m.CommandDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "health_sessions_command_duration_seconds",
			Help:    "Duration of controller commands including data service calls",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"op"},
	)

	m.Notifications = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "health_sessions_notifications_total",
			Help: "Failure notifications delivered to the user",
		},
	)

	m.Records = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "health_sessions_records",
			Help: "Session records currently listed",
		},
	)

	m.Registry.MustRegister(m.CommandsTotal, m.CommandDuration, m.Notifications, m.Records)
	return m
}

// ObserveCommand records one finished command
func (m *Metrics) ObserveCommand(op string, err error, elapsed time.Duration) {
	if m == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "failure"
	}
	m.CommandsTotal.WithLabelValues(op, result).Inc()
	m.CommandDuration.WithLabelValues(op).Observe(elapsed.Seconds())
}

// SetRecords updates the listed record gauge
func (m *Metrics) SetRecords(n int) {
	if m == nil {
		return
	}
	m.Records.Set(float64(n))
}

// IncNotifications counts a delivered failure notification
func (m *Metrics) IncNotifications() {
	if m == nil {
		return
	}
	m.Notifications.Inc()
}

// StartMetricsServer serves the registry on addr in the background
func (m *Metrics) StartMetricsServer(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{}))

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		slog.Info("starting metrics server", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("metrics server stopped", "error", err)
		}
	}()

	return srv
}

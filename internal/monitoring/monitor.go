package monitoring

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Monitor owns the server's prometheus registry and the series every
// component reports into.
type Monitor struct {
	registry  *prometheus.Registry
	startTime time.Time

	StoreOps         *prometheus.CounterVec
	StoreLatency     *prometheus.HistogramVec
	Notifications    *prometheus.CounterVec
	BroadcastDropped prometheus.Counter
	Displays         prometheus.Gauge
	OrderTransitions *prometheus.CounterVec
}

// NewMonitor creates a new monitoring instance
func NewMonitor() *Monitor {
	registry := prometheus.NewRegistry()

	m := &Monitor{
		registry:  registry,
		startTime: time.Now(),
		StoreOps: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "brigade_store_operations_total",
				Help: "Order store operations by outcome",
			},
			[]string{"operation", "result"},
		),
		StoreLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "brigade_store_operation_seconds",
				Help:    "Order store operation latency",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		Notifications: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "brigade_notifications_total",
				Help: "Change notifications received per channel",
			},
			[]string{"channel"},
		),
		BroadcastDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "brigade_broadcast_dropped_total",
			Help: "Events dropped because a display's send buffer was full",
		}),
		Displays: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "brigade_connected_displays",
			Help: "Displays currently connected to the realtime hub",
		}),
		OrderTransitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "brigade_order_transitions_total",
				Help: "Committed order status transitions by target status",
			},
			[]string{"status"},
		),
	}

	registry.MustRegister(
		m.StoreOps,
		m.StoreLatency,
		m.Notifications,
		m.BroadcastDropped,
		m.Displays,
		m.OrderTransitions,
	)
	return m
}

// ObserveStore records the outcome and latency of one store operation.
func (m *Monitor) ObserveStore(operation string, started time.Time, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.StoreOps.WithLabelValues(operation, result).Inc()
	m.StoreLatency.WithLabelValues(operation).Observe(time.Since(started).Seconds())
}

// Uptime returns how long the monitor has been running.
func (m *Monitor) Uptime() time.Duration {
	return time.Since(m.startTime)
}

// Handler serves the registry in the prometheus exposition format.
func (m *Monitor) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

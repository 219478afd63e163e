package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the collectors exported by the gateway and lifecycle service.
// Each instance owns its registry so tests can build as many as they like.
type Metrics struct {
	registry *prometheus.Registry

	ActiveConnections prometheus.Gauge
	RelayDelivered    prometheus.Counter
	RelayDropped      prometheus.Counter
	SessionEvents     *prometheus.CounterVec
	MessagesSent      *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		ActiveConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "campusconnect",
			Subsystem: "gateway",
			Name:      "active_connections",
			Help:      "Websocket connections currently held by this instance.",
		}),
		RelayDelivered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "campusconnect",
			Subsystem: "gateway",
			Name:      "relay_delivered_total",
			Help:      "Events pushed to a live connection.",
		}),
		RelayDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "campusconnect",
			Subsystem: "gateway",
			Name:      "relay_dropped_total",
			Help:      "Events dropped because the receiver was offline or its buffer was full.",
		}),
		SessionEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "campusconnect",
			Subsystem: "sessions",
			Name:      "events_total",
			Help:      "Session lifecycle transitions by event type.",
		}, []string{"type"}),
		MessagesSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "campusconnect",
			Subsystem: "messages",
			Name:      "sent_total",
			Help:      "Persisted chat messages by message type.",
		}, []string{"type"}),
	}

	m.registry.MustRegister(
		m.ActiveConnections,
		m.RelayDelivered,
		m.RelayDropped,
		m.SessionEvents,
		m.MessagesSent,
		collectors.NewGoCollector(),
	)
	return m
}

// Handler returns an http.Handler for Prometheus scraping
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

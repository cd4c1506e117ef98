// Package metrics holds the prometheus collectors for the client runtime.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	ConnectionsOpened    prometheus.Counter
	ConnectionsClosed    prometheus.Counter
	TransportDisconnects prometheus.Counter
	ConnectionState      prometheus.Gauge
	EventsEmitted        *prometheus.CounterVec
	EventsReceived       *prometheus.CounterVec
	Requests             *prometheus.CounterVec
	SessionTransitions   *prometheus.CounterVec
}

// New creates and registers all collectors under namespace.
func New(namespace string) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		ConnectionsOpened: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "realtime",
			Name:      "connections_opened_total",
			Help:      "Realtime connections opened.",
		}),
		ConnectionsClosed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "realtime",
			Name:      "connections_closed_total",
			Help:      "Realtime connections closed by the client.",
		}),
		TransportDisconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "realtime",
			Name:      "transport_disconnects_total",
			Help:      "Transport-level disconnects observed.",
		}),
		ConnectionState: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "realtime",
			Name:      "connection_state",
			Help:      "0 disconnected, 1 connecting, 2 connected.",
		}),
		EventsEmitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "realtime",
			Name:      "events_emitted_total",
			Help:      "Outbound realtime events by name.",
		}, []string{"event"}),
		EventsReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "realtime",
			Name:      "events_received_total",
			Help:      "Inbound realtime events by name.",
		}, []string{"event"}),
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "hooks",
			Name:      "requests_total",
			Help:      "Hook requests by kind and outcome.",
		}, []string{"kind", "outcome"}),
		SessionTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "transitions_total",
			Help:      "Committed session transitions by operation.",
		}, []string{"op"}),
	}

	m.registry.MustRegister(
		m.ConnectionsOpened,
		m.ConnectionsClosed,
		m.TransportDisconnects,
		m.ConnectionState,
		m.EventsEmitted,
		m.EventsReceived,
		m.Requests,
		m.SessionTransitions,
	)
	return m
}

// Registry exposes the underlying registry for gathering in tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ConnectionOpened() {
	if m == nil {
		return
	}
	m.ConnectionsOpened.Inc()
}

func (m *Metrics) ConnectionClosed() {
	if m == nil {
		return
	}
	m.ConnectionsClosed.Inc()
}

func (m *Metrics) TransportDisconnected() {
	if m == nil {
		return
	}
	m.TransportDisconnects.Inc()
}

func (m *Metrics) SetConnectionState(v int) {
	if m == nil {
		return
	}
	m.ConnectionState.Set(float64(v))
}

func (m *Metrics) EventEmitted(event string) {
	if m == nil {
		return
	}
	m.EventsEmitted.WithLabelValues(event).Inc()
}

func (m *Metrics) EventReceived(event string) {
	if m == nil {
		return
	}
	m.EventsReceived.WithLabelValues(event).Inc()
}

// RequestDone records one hook attempt; outcome is "success", "error" or "discarded".
func (m *Metrics) RequestDone(kind, outcome string) {
	if m == nil {
		return
	}
	m.Requests.WithLabelValues(kind, outcome).Inc()
}

func (m *Metrics) SessionTransition(op string) {
	if m == nil {
		return
	}
	m.SessionTransitions.WithLabelValues(op).Inc()
}

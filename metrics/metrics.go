// Package metrics provides Prometheus instrumentation for WebSocket servers.
//
// Every method is safe to call on a nil *Metrics, which records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Frame outcomes used as the outcome label of frames_total.
const (
	OutcomeText      = "text"
	OutcomeIgnored   = "ignored"
	OutcomeMalformed = "malformed"
)

// Directions used as the direction label.
const (
	DirectionIn  = "in"
	DirectionOut = "out"
)

// Metrics holds the collectors of a WebSocket server.
type Metrics struct {
	Handshakes         *prometheus.CounterVec
	ActiveConnections  prometheus.Gauge
	ConnectionDuration prometheus.Histogram
	Frames             *prometheus.CounterVec
	PayloadBytes       *prometheus.CounterVec
	RateLimited        prometheus.Counter
}

// New creates the collectors and registers them with reg.
// A nil reg creates unregistered collectors.
func New(namespace string, reg prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "websocket"
	}
	f := promauto.With(reg)

	return &Metrics{
		Handshakes: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "handshakes_total",
				Help:      "Total number of upgrade handshakes by result",
			},
			[]string{"result"},
		),
		ActiveConnections: f.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "active_connections",
				Help:      "Number of currently open WebSocket connections",
			},
		),
		ConnectionDuration: f.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "connection_duration_seconds",
				Help:      "Connection lifetime in seconds",
				Buckets:   []float64{.1, .5, 1, 5, 10, 30, 60, 300, 600, 1800, 3600},
			},
		),
		Frames: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "frames_total",
				Help:      "Total number of frames by direction and outcome",
			},
			[]string{"direction", "outcome"},
		),
		PayloadBytes: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "payload_bytes_total",
				Help:      "Total payload bytes by direction",
			},
			[]string{"direction"},
		),
		RateLimited: f.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rate_limited_total",
				Help:      "Total number of inbound messages delayed by the rate limiter",
			},
		),
	}
}

// Handshake records the result of an upgrade attempt.
func (m *Metrics) Handshake(accepted bool) {
	if m == nil {
		return
	}
	result := "rejected"
	if accepted {
		result = "accepted"
	}
	m.Handshakes.WithLabelValues(result).Inc()
}

// ConnectionOpened records a new connection.
func (m *Metrics) ConnectionOpened() {
	if m == nil {
		return
	}
	m.ActiveConnections.Inc()
}

// ConnectionClosed records the end of a connection that lived for d.
func (m *Metrics) ConnectionClosed(d time.Duration) {
	if m == nil {
		return
	}
	m.ActiveConnections.Dec()
	m.ConnectionDuration.Observe(d.Seconds())
}

// FrameRead records an inbound frame with the given outcome and payload size.
func (m *Metrics) FrameRead(outcome string, n int) {
	if m == nil {
		return
	}
	m.Frames.WithLabelValues(DirectionIn, outcome).Inc()
	m.PayloadBytes.WithLabelValues(DirectionIn).Add(float64(n))
}

// FrameWritten records an outbound text frame carrying n payload bytes.
func (m *Metrics) FrameWritten(n int) {
	if m == nil {
		return
	}
	m.Frames.WithLabelValues(DirectionOut, OutcomeText).Inc()
	m.PayloadBytes.WithLabelValues(DirectionOut).Add(float64(n))
}

// MessageRateLimited records an inbound message that had to wait for the limiter.
func (m *Metrics) MessageRateLimited() {
	if m == nil {
		return
	}
	m.RateLimited.Inc()
}

// Package server instruments the hub and dispatcher with Prometheus metrics.
package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "agenthub"

// Reasons an inbound frame or outbound delivery can be dropped.
const (
	dropReasonDecode     = "decode"
	dropReasonRateLimit  = "rate_limit"
	dropReasonBufferFull = "buffer_full"
)

var (
	metricActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: metricsNamespace,
		Subsystem: "hub",
		Name:      "active_sessions",
		Help:      "Number of sessions currently registered.",
	})

	metricEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Subsystem: "dispatch",
		Name:      "events_total",
		Help:      "Inbound events routed, by event type.",
	}, []string{"type"})

	metricBroadcastDeliveries = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Subsystem: "hub",
		Name:      "broadcast_deliveries_total",
		Help:      "Messages delivered through capability-routed fan-out.",
	})

	metricFramesDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Subsystem: "dispatch",
		Name:      "frames_dropped_total",
		Help:      "Frames dropped before reaching a handler, by reason.",
	}, []string{"reason"})
)

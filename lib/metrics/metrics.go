// Package metrics holds the Prometheus counters shared by the
// listener runtime (lib/service) and every per-protocol connection
// handler (lib/srv/...), so a connection handler can record its own
// recovered panics without importing the service package that starts
// it.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

// ConnectionsTotal counts accepted connections per protocol, labeled
// by the same component names used for logging.
var ConnectionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
	Name: "protocolsd_connections_total",
	Help: "Total number of accepted connections, by protocol.",
}, []string{"protocol"})

// ListenerBindFailuresTotal counts listeners that failed to bind at
// startup. A bind failure disables only that protocol; it never takes
// the whole process down.
var ListenerBindFailuresTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
	Name: "protocolsd_listener_bind_failures_total",
	Help: "Total number of listener bind failures, by protocol.",
}, []string{"protocol"})

// ConnectionPanicsTotal counts per-connection goroutine panics
// recovered by a protocol handler, by protocol.
var ConnectionPanicsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
	Name: "protocolsd_connection_panics_total",
	Help: "Total number of per-connection goroutine panics recovered, by protocol.",
}, []string{"protocol"})

func init() {
	prometheus.MustRegister(ConnectionsTotal, ListenerBindFailuresTotal, ConnectionPanicsTotal)
}

// RecoverConnection is deferred at the top of every per-connection
// goroutine. It turns a panic into a log line and a counter increment
// instead of taking the whole process down - each accepted connection
// is its own task and one misbehaving task must not affect any other.
func RecoverConnection(protocol string, log logrus.FieldLogger) {
	if r := recover(); r != nil {
		ConnectionPanicsTotal.WithLabelValues(protocol).Inc()
		if log != nil {
			log.WithField("panic", r).Error("recovered panic in connection handler")
		}
	}
}

// Package telemetry exposes Prometheus metrics for the stream client and the
// reference producer. Collectors are registered on the default registry.
package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Frame results.
const (
	ResultOK           = "ok"
	ResultDecodeError  = "decode_error"
	ResultOutOfRange   = "out_of_range"
	ResultTransportErr = "transport_error"
)

var (
	FramesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "stylesync",
		Subsystem: "stream",
		Name:      "frames_total",
		Help:      "Frames received from the metrics endpoint, by decode result",
	}, []string{"result"})

	RangeViolationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "stylesync",
		Subsystem: "stream",
		Name:      "range_violations_total",
		Help:      "Decoded values outside their documented domain, by field",
	}, []string{"field"})

	TransportErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "stylesync",
		Subsystem: "stream",
		Name:      "transport_errors_total",
		Help:      "Transport failures, by operation",
	}, []string{"op"})

	ReconnectsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "stylesync",
		Subsystem: "stream",
		Name:      "reconnects_total",
		Help:      "Reconnect attempts made after a dropped connection",
	})

	ConnectionState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "stylesync",
		Subsystem: "stream",
		Name:      "connection_state",
		Help:      "1 for the current connection state, 0 otherwise",
	}, []string{"state"})

	IngestsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "stylesync",
		Subsystem: "store",
		Name:      "ingests_total",
		Help:      "Snapshots applied to the rolling series store",
	})

	SeriesLength = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "stylesync",
		Subsystem: "store",
		Name:      "series_length",
		Help:      "Number of points currently in the rolling window",
	})

	ServerPushesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "stylesync",
		Subsystem: "server",
		Name:      "pushes_total",
		Help:      "Frames pushed to WebSocket clients, by outcome",
	}, []string{"status"})

	ServerClients = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "stylesync",
		Subsystem: "server",
		Name:      "ws_clients",
		Help:      "Connected WebSocket clients",
	})

	SampleDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "stylesync",
		Subsystem: "server",
		Name:      "sample_duration_seconds",
		Help:      "Time spent sampling host metrics",
		Buckets:   prometheus.DefBuckets,
	})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "stylesync",
		Subsystem: "server",
		Name:      "http_requests_total",
		Help:      "HTTP requests served, by method, route and status",
	}, []string{"method", "endpoint", "status"})
)

// connectionStates lists every label value of ConnectionState.
var connectionStates = []string{"connecting", "connected", "disconnected", "closed"}

// SetConnectionState marks state as current and zeroes the rest.
func SetConnectionState(state string) {
	for _, s := range connectionStates {
		v := 0.0
		if s == state {
			v = 1
		}
		ConnectionState.WithLabelValues(s).Set(v)
	}
}

// Handler serves the default registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}

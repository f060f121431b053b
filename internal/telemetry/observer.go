package telemetry

import (
	"errors"
	"time"

	"github.com/rileyhilliard/stylesync/internal/series"
	"github.com/rileyhilliard/stylesync/internal/snapshot"
	"github.com/rileyhilliard/stylesync/internal/stream"
)

// StreamObserver records stream client events as Prometheus metrics.
type StreamObserver struct {
	stream.NopObserver
}

func (StreamObserver) OnStateChange(s stream.State) {
	SetConnectionState(s.String())
}

func (StreamObserver) OnFrame(snapshot.MetricSnapshot) {
	FramesTotal.WithLabelValues(ResultOK).Inc()
}

func (StreamObserver) OnDecodeError(error) {
	FramesTotal.WithLabelValues(ResultDecodeError).Inc()
}

func (StreamObserver) OnRangeViolation(violations []snapshot.RangeViolation) {
	FramesTotal.WithLabelValues(ResultOutOfRange).Inc()
	for _, v := range violations {
		RangeViolationsTotal.WithLabelValues(v.Field).Inc()
	}
}

func (StreamObserver) OnTransportError(err error) {
	op := "unknown"
	var terr *stream.TransportError
	if errors.As(err, &terr) {
		op = terr.Op
	}
	TransportErrorsTotal.WithLabelValues(op).Inc()
}

func (StreamObserver) OnReconnect(int, time.Duration) {
	ReconnectsTotal.Inc()
}

// StoreSink forwards snapshots to a store and tracks its size.
type StoreSink struct {
	Store *series.Store
}

// Ingest implements stream.Ingester.
func (s StoreSink) Ingest(m snapshot.MetricSnapshot) {
	s.Store.Ingest(m)
	IngestsTotal.Inc()
	SeriesLength.Set(float64(s.Store.Len()))
}

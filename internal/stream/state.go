package stream

import (
	"fmt"
	"time"

	"github.com/rileyhilliard/stylesync/internal/snapshot"
)

// State is the connection lifecycle of a Client.
type State int

const (
	// StateDisconnected is the initial state and the state after a drop.
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	// StateClosed is terminal; the client cannot be reused.
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Observer receives client events. Calls are made from the goroutine that
// triggered them and must not block.
type Observer interface {
	OnStateChange(State)
	OnFrame(snapshot.MetricSnapshot)
	OnDecodeError(error)
	OnRangeViolation([]snapshot.RangeViolation)
	OnTransportError(error)
	OnReconnect(attempt int, delay time.Duration)
}

// NopObserver ignores every event. Embed it to implement a subset.
type NopObserver struct{}

func (NopObserver) OnStateChange(State)                        {}
func (NopObserver) OnFrame(snapshot.MetricSnapshot)            {}
func (NopObserver) OnDecodeError(error)                        {}
func (NopObserver) OnRangeViolation([]snapshot.RangeViolation) {}
func (NopObserver) OnTransportError(error)                     {}
func (NopObserver) OnReconnect(int, time.Duration)             {}

// Observers fans every event out to each observer in order.
type Observers []Observer

func (o Observers) OnStateChange(s State) {
	for _, obs := range o {
		obs.OnStateChange(s)
	}
}

func (o Observers) OnFrame(s snapshot.MetricSnapshot) {
	for _, obs := range o {
		obs.OnFrame(s)
	}
}

func (o Observers) OnDecodeError(err error) {
	for _, obs := range o {
		obs.OnDecodeError(err)
	}
}

func (o Observers) OnRangeViolation(v []snapshot.RangeViolation) {
	for _, obs := range o {
		obs.OnRangeViolation(v)
	}
}

func (o Observers) OnTransportError(err error) {
	for _, obs := range o {
		obs.OnTransportError(err)
	}
}

func (o Observers) OnReconnect(attempt int, delay time.Duration) {
	for _, obs := range o {
		obs.OnReconnect(attempt, delay)
	}
}

package dashboard

import (
	"sync"
	"time"

	"github.com/rileyhilliard/stylesync/internal/stream"
)

// Status is the connection summary shown in the header.
type Status struct {
	State        stream.State
	DecodeErrors int
	LastError    error
	Reconnecting bool
	Attempt      int
	RetryIn      time.Duration
	ChangedAt    time.Time
}

// Events is a stream.Observer that records connection events for the
// dashboard. Like the store it coalesces notifications: the client never
// blocks on the UI and the model re-reads Status when woken.
type Events struct {
	stream.NopObserver

	mu     sync.Mutex
	status Status
	now    func() time.Time
	notify chan struct{}
}

// NewEvents returns an observer in the disconnected state.
func NewEvents() *Events {
	return &Events{
		now:    time.Now,
		notify: make(chan struct{}, 1),
	}
}

// Changes fires after any recorded event.
func (e *Events) Changes() <-chan struct{} {
	return e.notify
}

// Status returns the current summary.
func (e *Events) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.status
}

func (e *Events) OnStateChange(s stream.State) {
	e.update(func(st *Status) {
		st.State = s
		st.ChangedAt = e.now()
		if s == stream.StateConnected {
			st.Reconnecting = false
			st.Attempt = 0
			st.LastError = nil
		}
	})
}

func (e *Events) OnDecodeError(err error) {
	e.update(func(st *Status) {
		st.DecodeErrors++
		st.LastError = err
	})
}

func (e *Events) OnTransportError(err error) {
	e.update(func(st *Status) {
		st.LastError = err
	})
}

func (e *Events) OnReconnect(attempt int, delay time.Duration) {
	e.update(func(st *Status) {
		st.Reconnecting = true
		st.Attempt = attempt
		st.RetryIn = delay
	})
}

func (e *Events) update(fn func(*Status)) {
	e.mu.Lock()
	fn(&e.status)
	e.mu.Unlock()

	select {
	case e.notify <- struct{}{}:
	default:
	}
}

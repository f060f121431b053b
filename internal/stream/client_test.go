package stream

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rileyhilliard/stylesync/internal/logger"
	"github.com/rileyhilliard/stylesync/internal/series"
	"github.com/rileyhilliard/stylesync/internal/snapshot"
)

const (
	frame42  = `{"cpu_percent": 42.5, "memory": {"total": 1e9, "available": 5e8, "percent": 50}, "disk": {"total": 2e9, "used": 1e9, "free": 1e9, "percent": 50}}`
	frame10  = `{"cpu_percent": 10, "memory": {"total": 1e9, "available": 5e8, "percent": 50}, "disk": {"total": 2e9, "used": 1e9, "free": 1e9, "percent": 50}}`
	frameNoC = `{"memory": {"total": 1e9, "available": 5e8, "percent": 50}, "disk": {"total": 2e9, "used": 1e9, "free": 1e9, "percent": 50}}`
)

type recordingObserver struct {
	NopObserver

	mu           sync.Mutex
	states       []State
	decodeErrs   []error
	violations   [][]snapshot.RangeViolation
	transportErr []error
	reconnects   []int
}

func (o *recordingObserver) OnStateChange(s State) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.states = append(o.states, s)
}

func (o *recordingObserver) OnDecodeError(err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.decodeErrs = append(o.decodeErrs, err)
}

func (o *recordingObserver) OnRangeViolation(v []snapshot.RangeViolation) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.violations = append(o.violations, v)
}

func (o *recordingObserver) OnTransportError(err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.transportErr = append(o.transportErr, err)
}

func (o *recordingObserver) OnReconnect(attempt int, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.reconnects = append(o.reconnects, attempt)
}

func (o *recordingObserver) snapshotStates() []State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]State(nil), o.states...)
}

var upgrader = websocket.Upgrader{}

// wsServer upgrades every request and hands the connection to handle.
// handle receives the zero-based connection index.
func wsServer(t *testing.T, handle func(n int, conn *websocket.Conn)) (*httptest.Server, string) {
	t.Helper()
	var count atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		handle(int(count.Add(1)-1), conn)
	}))
	t.Cleanup(srv.Close)
	return srv, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func send(t *testing.T, conn *websocket.Conn, frames ...string) {
	t.Helper()
	for _, f := range frames {
		require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(f)))
	}
}

func closeNormally(conn *websocket.Conn) {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye")
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
}

// waitForPeerClose blocks until the client goes away.
func waitForPeerClose(conn *websocket.Conn) error {
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return err
		}
	}
}

func TestClient_EndToEnd(t *testing.T) {
	_, url := wsServer(t, func(_ int, conn *websocket.Conn) {
		send(t, conn, frame10, frameNoC, `not json`, frame42)
		conn.WriteMessage(websocket.BinaryMessage, []byte(frame10))
		closeNormally(conn)
	})

	store := series.NewStore()
	obs := &recordingObserver{}
	c := New(url, store, WithObserver(obs), WithLogger(logger.NewBufferLogger()))
	defer c.Close()

	err := c.Run(context.Background())

	var terr *TransportError
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, "read", terr.Op)
	assert.Equal(t, url, terr.URL)

	state := store.Snapshot()
	assert.Equal(t, []float64{10, 42.5, 10}, state.CPUSeries)
	require.NotNil(t, state.Current)
	assert.Equal(t, 10.0, state.Current.CPUPercent)

	obs.mu.Lock()
	defer obs.mu.Unlock()
	require.Len(t, obs.decodeErrs, 2)
	var decodeErr *snapshot.DecodeError
	require.ErrorAs(t, obs.decodeErrs[0], &decodeErr)
	assert.Equal(t, "cpu_percent", decodeErr.Field)
	assert.Len(t, obs.transportErr, 1)
	assert.Equal(t, []State{StateConnecting, StateConnected, StateDisconnected}, obs.states)
	assert.Equal(t, StateDisconnected, c.State())
}

func TestClient_StaleAfterDrop(t *testing.T) {
	_, url := wsServer(t, func(_ int, conn *websocket.Conn) {
		send(t, conn, frame42)
	})

	store := series.NewStore()
	c := New(url, store)
	defer c.Close()

	err := c.Run(context.Background())
	require.Error(t, err)

	// the last snapshot survives the drop
	state := store.Snapshot()
	require.NotNil(t, state.Current)
	assert.Equal(t, 42.5, state.Current.CPUPercent)
}

func TestClient_CloseUnblocksRun(t *testing.T) {
	peerClose := make(chan error, 1)
	_, url := wsServer(t, func(_ int, conn *websocket.Conn) {
		send(t, conn, frame42)
		peerClose <- waitForPeerClose(conn)
	})

	store := series.NewStore()
	c := New(url, store)

	done := make(chan error, 1)
	go func() { done <- c.Run(context.Background()) }()

	require.Eventually(t, func() bool { return store.Len() == 1 }, 2*time.Second, 10*time.Millisecond)
	require.NoError(t, c.Close())

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after Close")
	}
	assert.Equal(t, StateClosed, c.State())

	select {
	case err := <-peerClose:
		assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "got %v", err)
	case <-time.After(2 * time.Second):
		t.Fatal("server never saw the close frame")
	}
}

func TestClient_ContextCancelCloses(t *testing.T) {
	_, url := wsServer(t, func(_ int, conn *websocket.Conn) {
		_ = waitForPeerClose(conn)
	})

	c := New(url, series.NewStore())
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	require.Eventually(t, func() bool { return c.State() == StateConnected }, 2*time.Second, 10*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	assert.Equal(t, StateClosed, c.State())
}

func TestClient_DialFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	srv.Close()

	obs := &recordingObserver{}
	c := New(url, series.NewStore(), WithObserver(obs))
	defer c.Close()

	err := c.Connect(context.Background())
	var terr *TransportError
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, "dial", terr.Op)
	assert.Contains(t, terr.Error(), "dial "+url)
	assert.Equal(t, StateDisconnected, c.State())
	assert.Equal(t, []State{StateConnecting, StateDisconnected}, obs.snapshotStates())

	// Run without reconnect surfaces the same failure
	err = c.Run(context.Background())
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, "dial", terr.Op)
}

func TestClient_DialRejectedHandshake(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer srv.Close()

	c := New("ws"+strings.TrimPrefix(srv.URL, "http"), series.NewStore())
	defer c.Close()

	err := c.Connect(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP 403")
}

func TestClient_Reconnects(t *testing.T) {
	_, url := wsServer(t, func(n int, conn *websocket.Conn) {
		if n == 0 {
			send(t, conn, frame10)
			closeNormally(conn)
			return
		}
		send(t, conn, frame42)
		_ = waitForPeerClose(conn)
	})

	store := series.NewStore()
	obs := &recordingObserver{}
	c := New(url, store,
		WithObserver(obs),
		WithReconnect(Backoff{Initial: 10 * time.Millisecond, MaxAttempts: 3}),
	)

	done := make(chan error, 1)
	go func() { done <- c.Run(context.Background()) }()

	require.Eventually(t, func() bool { return store.Len() == 2 }, 3*time.Second, 10*time.Millisecond)
	require.NoError(t, c.Close())
	require.NoError(t, <-done)

	assert.Equal(t, []float64{10, 42.5}, store.Snapshot().CPUSeries)
	obs.mu.Lock()
	defer obs.mu.Unlock()
	assert.Equal(t, []int{1}, obs.reconnects)
	assert.Len(t, obs.transportErr, 1)
}

func TestClient_ReconnectGivesUp(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) > 1 {
			http.Error(w, "gone", http.StatusServiceUnavailable)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		send(t, conn, frame10)
		conn.Close()
	}))
	defer srv.Close()

	obs := &recordingObserver{}
	c := New("ws"+strings.TrimPrefix(srv.URL, "http"), series.NewStore(),
		WithObserver(obs),
		WithReconnect(Backoff{Initial: time.Millisecond, MaxAttempts: 2}),
	)
	defer c.Close()

	err := c.Run(context.Background())
	var terr *TransportError
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, "dial", terr.Op)

	obs.mu.Lock()
	defer obs.mu.Unlock()
	assert.Equal(t, []int{1, 2}, obs.reconnects)
	assert.Equal(t, int32(3), hits.Load())
}

type recordingSink struct {
	mu  sync.Mutex
	got []snapshot.MetricSnapshot
}

func (s *recordingSink) Ingest(m snapshot.MetricSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.got = append(s.got, m)
}

func TestClient_HandleFrame(t *testing.T) {
	received := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	t.Run("valid frame is ingested once", func(t *testing.T) {
		sink := &recordingSink{}
		c := New(DefaultURL, sink, WithClock(func() time.Time { return received }))

		s, err := c.HandleFrame([]byte(frame42))
		require.NoError(t, err)
		assert.Equal(t, 42.5, s.CPUPercent)
		assert.Equal(t, received, s.Timestamp)
		require.Len(t, sink.got, 1)
		assert.Equal(t, s, sink.got[0])
	})

	t.Run("decode error drops frame", func(t *testing.T) {
		sink := &recordingSink{}
		obs := &recordingObserver{}
		buf := logger.NewBufferLogger()
		c := New(DefaultURL, sink, WithObserver(obs), WithLogger(buf))

		_, err := c.HandleFrame([]byte(frameNoC))
		var decodeErr *snapshot.DecodeError
		require.ErrorAs(t, err, &decodeErr)
		assert.Equal(t, "cpu_percent", decodeErr.Field)
		assert.Empty(t, sink.got)
		assert.Len(t, obs.decodeErrs, 1)
		assert.True(t, buf.Contains("warn", "dropping frame"))
	})

	t.Run("out of range accepted by default", func(t *testing.T) {
		sink := &recordingSink{}
		obs := &recordingObserver{}
		c := New(DefaultURL, sink, WithObserver(obs))

		s, err := c.HandleFrame([]byte(strings.Replace(frame42, "42.5", "150", 1)))
		require.NoError(t, err)
		assert.Equal(t, 150.0, s.CPUPercent)
		require.Len(t, obs.violations, 1)
		assert.Equal(t, "cpu_percent", obs.violations[0][0].Field)
	})

	t.Run("out of range clamped on request", func(t *testing.T) {
		sink := &recordingSink{}
		c := New(DefaultURL, sink, WithRangePolicy(snapshot.RangeClamp))

		s, err := c.HandleFrame([]byte(strings.Replace(frame42, "42.5", "150", 1)))
		require.NoError(t, err)
		assert.Equal(t, 100.0, s.CPUPercent)
		assert.Equal(t, 100.0, sink.got[0].CPUPercent)
	})
}

func TestClient_CloseIsIdempotent(t *testing.T) {
	c := New(DefaultURL, &recordingSink{})
	require.NoError(t, c.Close())
	require.NoError(t, c.Close())
	assert.Equal(t, StateClosed, c.State())

	select {
	case <-c.Done():
	default:
		t.Fatal("Done should be closed")
	}

	err := c.Connect(context.Background())
	assert.True(t, errors.Is(err, ErrClosed))
	assert.Equal(t, StateClosed, c.State())
}

func TestClient_ConnectTwiceKeepsOneConnection(t *testing.T) {
	var opened atomic.Int32
	peerClose := make(chan error, 2)
	_, url := wsServer(t, func(_ int, conn *websocket.Conn) {
		opened.Add(1)
		peerClose <- waitForPeerClose(conn)
	})

	c := New(url, &recordingSink{})
	require.NoError(t, c.Connect(context.Background()))

	err := c.Connect(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrAlreadyConnected))
	var terr *TransportError
	require.True(t, errors.As(err, &terr))
	assert.Equal(t, "dial", terr.Op)
	assert.Equal(t, StateConnected, c.State())

	require.NoError(t, c.Close())

	select {
	case err := <-peerClose:
		assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "got %v", err)
	case <-time.After(2 * time.Second):
		t.Fatal("server never saw the close frame")
	}
	assert.Equal(t, int32(1), opened.Load(), "second Connect must not dial")
	assert.Empty(t, peerClose)
}

func TestNew_Defaults(t *testing.T) {
	c := New("", &recordingSink{})
	assert.Equal(t, DefaultURL, c.URL())
	assert.Equal(t, StateDisconnected, c.State())
	assert.Equal(t, DefaultHandshakeTimeout, c.dialer.HandshakeTimeout)

	c = New("ws://example:1/x", &recordingSink{}, WithHandshakeTimeout(time.Second))
	assert.Equal(t, time.Second, c.dialer.HandshakeTimeout)
}

func TestTransportError_Unwrap(t *testing.T) {
	cause := errors.New("boom")
	err := &TransportError{Op: "read", URL: "ws://x", Err: cause}
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "read ws://x: boom", err.Error())
}

// Package stream owns the WebSocket connection to a metrics endpoint and
// turns inbound frames into snapshots for a sink.
package stream

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rileyhilliard/stylesync/internal/logger"
	"github.com/rileyhilliard/stylesync/internal/snapshot"
)

// DefaultURL is the endpoint of the reference producer.
const DefaultURL = "ws://localhost:8000/ws/metrics"

// DefaultHandshakeTimeout bounds the WebSocket opening handshake.
const DefaultHandshakeTimeout = 10 * time.Second

// ErrClosed is returned when using a Client after Close.
var ErrClosed = errors.New("stream client closed")

// ErrAlreadyConnected is returned by Connect while a connection is open.
var ErrAlreadyConnected = errors.New("stream client already connected")

// Ingester consumes decoded snapshots. *series.Store satisfies it.
type Ingester interface {
	Ingest(snapshot.MetricSnapshot)
}

// TransportError reports a failure to open or keep the connection.
type TransportError struct {
	Op  string // "dial" or "read"
	URL string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Client maintains one connection at a time and applies frames to its sink
// in delivery order. Frames are decoded and ingested on the Run goroutine,
// so the sink sees a single writer.
type Client struct {
	url       string
	sink      Ingester
	dialer    *websocket.Dialer
	header    http.Header
	decoder   snapshot.Decoder
	observer  Observer
	reconnect ReconnectPolicy
	log       logger.Logger
	now       func() time.Time

	mu     sync.Mutex
	conn   *websocket.Conn
	state  State
	closed bool
	done   chan struct{}
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the client logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

// WithObserver sets the event observer.
func WithObserver(o Observer) Option {
	return func(c *Client) {
		if o != nil {
			c.observer = o
		}
	}
}

// WithReconnect sets the policy used after a dropped connection.
func WithReconnect(p ReconnectPolicy) Option {
	return func(c *Client) {
		if p != nil {
			c.reconnect = p
		}
	}
}

// WithRangePolicy sets how out-of-range values are treated.
func WithRangePolicy(p snapshot.RangePolicy) Option {
	return func(c *Client) {
		c.decoder.Policy = p
	}
}

// WithHandshakeTimeout bounds the opening handshake.
func WithHandshakeTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.dialer.HandshakeTimeout = d
		}
	}
}

// WithHeader adds request headers to the opening handshake.
func WithHeader(h http.Header) Option {
	return func(c *Client) {
		c.header = h
	}
}

// WithClock replaces time.Now as the receipt time for frames without a
// timestamp.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		if now != nil {
			c.now = now
		}
	}
}

// New creates a client for url that forwards snapshots to sink.
// No connection is made until Connect or Run.
func New(url string, sink Ingester, opts ...Option) *Client {
	if url == "" {
		url = DefaultURL
	}
	c := &Client{
		url:  url,
		sink: sink,
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: DefaultHandshakeTimeout,
		},
		observer:  NopObserver{},
		reconnect: NoReconnect,
		log:       logger.Noop(),
		now:       time.Now,
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// URL returns the endpoint the client dials.
func (c *Client) URL() string {
	return c.url
}

// State returns the current connection state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Connect opens the connection. It does not retry, and fails with
// ErrAlreadyConnected rather than replacing an open connection.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return &TransportError{Op: "dial", URL: c.url, Err: ErrClosed}
	}
	if c.conn != nil {
		c.mu.Unlock()
		return &TransportError{Op: "dial", URL: c.url, Err: ErrAlreadyConnected}
	}
	c.mu.Unlock()

	c.setState(StateConnecting)
	c.log.Debug("dialing %s", c.url)

	conn, resp, err := c.dialer.DialContext(ctx, c.url, c.header)
	if err != nil {
		if resp != nil {
			err = fmt.Errorf("%w (HTTP %d)", err, resp.StatusCode)
		}
		terr := &TransportError{Op: "dial", URL: c.url, Err: err}
		c.setState(StateDisconnected)
		c.observer.OnTransportError(terr)
		return terr
	}

	c.mu.Lock()
	if c.closed {
		// Close raced the dial
		c.mu.Unlock()
		conn.Close()
		return &TransportError{Op: "dial", URL: c.url, Err: ErrClosed}
	}
	if c.conn != nil {
		// a concurrent Connect won
		c.mu.Unlock()
		conn.Close()
		return &TransportError{Op: "dial", URL: c.url, Err: ErrAlreadyConnected}
	}
	c.conn = conn
	c.mu.Unlock()

	c.setState(StateConnected)
	c.log.Info("connected to %s", c.url)
	return nil
}

// Run reads frames until the connection drops, ctx is cancelled, or Close
// is called. It connects first if needed. After a drop the reconnect policy
// decides whether to dial again; under NoReconnect Run returns the
// *TransportError. Cancelling ctx closes the client. Run returns nil after
// Close and ctx.Err() after cancellation.
func (c *Client) Run(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() { c.Close() })
	defer stop()

	if c.currentConn() == nil {
		if err := c.Connect(ctx); err != nil {
			if c.isClosed() {
				return c.exitErr(ctx)
			}
			if rerr := c.redial(ctx); rerr != nil {
				if errors.Is(rerr, errNoRetry) {
					return err
				}
				return rerr
			}
		}
	}

	for {
		conn := c.currentConn()
		if conn == nil {
			return c.exitErr(ctx)
		}

		err := c.readLoop(conn)
		if c.isClosed() {
			return c.exitErr(ctx)
		}

		terr := &TransportError{Op: "read", URL: c.url, Err: err}
		if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
			c.log.Warn("connection lost: %v", err)
		} else {
			c.log.Info("connection ended: %v", err)
		}
		c.dropConn(conn)
		c.setState(StateDisconnected)
		c.observer.OnTransportError(terr)

		if err := c.redial(ctx); err != nil {
			if errors.Is(err, errNoRetry) {
				return terr
			}
			return err
		}
	}
}

var errNoRetry = errors.New("reconnect disabled")

// redial consults the reconnect policy until a dial succeeds or the policy
// gives up. It returns errNoRetry when the policy refuses the first attempt,
// the last dial error when it gives up later.
func (c *Client) redial(ctx context.Context) error {
	var lastErr error = errNoRetry
	for attempt := 1; ; attempt++ {
		delay, ok := c.reconnect.Next(attempt)
		if !ok {
			return lastErr
		}

		c.observer.OnReconnect(attempt, delay)
		c.log.Info("reconnecting in %s (attempt %d)", delay, attempt)

		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return c.exitErr(ctx)
		case <-c.done:
			timer.Stop()
			return c.exitErr(ctx)
		}

		lastErr = c.Connect(ctx)
		if lastErr == nil {
			return nil
		}
		if c.isClosed() {
			return c.exitErr(ctx)
		}
	}
}

func (c *Client) readLoop(conn *websocket.Conn) error {
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		// errors are reported to the observer; the connection stays open
		_, _ = c.HandleFrame(raw)
	}
}

// HandleFrame decodes one payload and, on success, forwards the snapshot to
// the sink exactly once. A decode failure drops the frame.
func (c *Client) HandleFrame(raw []byte) (snapshot.MetricSnapshot, error) {
	s, violations, err := c.decoder.Decode(raw, c.now())
	if err != nil {
		c.log.Warn("dropping frame: %v", err)
		c.observer.OnDecodeError(err)
		return snapshot.MetricSnapshot{}, err
	}

	if len(violations) > 0 {
		c.log.Debug("frame out of range (%s): %v", c.decoder.Policy, violations)
		c.observer.OnRangeViolation(violations)
	}

	c.sink.Ingest(s)
	c.observer.OnFrame(s)
	return s, nil
}

// Close sends a normal closure frame and releases the connection. It is safe
// to call more than once and from any goroutine.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	close(c.done)
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()

	var err error
	if conn != nil {
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
		err = conn.Close()
	}

	c.setState(StateClosed)
	c.log.Debug("closed")
	return err
}

// Done is closed when the client is closed.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

func (c *Client) setState(s State) {
	c.mu.Lock()
	if c.state == s || (c.state == StateClosed && s != StateClosed) {
		c.mu.Unlock()
		return
	}
	c.state = s
	c.mu.Unlock()
	c.observer.OnStateChange(s)
}

func (c *Client) currentConn() *websocket.Conn {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn
}

func (c *Client) dropConn(conn *websocket.Conn) {
	c.mu.Lock()
	if c.conn == conn {
		c.conn = nil
	}
	c.mu.Unlock()
	conn.Close()
}

func (c *Client) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *Client) exitErr(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return nil
}

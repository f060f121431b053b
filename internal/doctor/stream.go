package doctor

import (
	"context"
	"fmt"
	"time"

	"github.com/rileyhilliard/stylesync/internal/snapshot"
	"github.com/rileyhilliard/stylesync/internal/stream"
)

// DefaultTimeout bounds each network check.
const DefaultTimeout = 5 * time.Second

const producerHint = "Start a producer with 'stylesync serve' or check stream.url"

// EndpointCheck verifies the WebSocket handshake with the stream endpoint.
type EndpointCheck struct {
	URL     string
	Timeout time.Duration
}

func (c *EndpointCheck) Name() string     { return "stream_endpoint" }
func (c *EndpointCheck) Category() string { return "STREAM" }

func (c *EndpointCheck) Run() CheckResult {
	timeout := orDefault(c.Timeout)
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	client := stream.New(c.URL, discardSink{}, stream.WithHandshakeTimeout(timeout))
	start := time.Now()
	if err := client.Connect(ctx); err != nil {
		return CheckResult{
			Name:       c.Name(),
			Status:     StatusFail,
			Message:    fmt.Sprintf("Handshake failed: %v", err),
			Suggestion: producerHint,
		}
	}
	elapsed := time.Since(start)
	_ = client.Close()

	return CheckResult{
		Name:    c.Name(),
		Status:  StatusPass,
		Message: fmt.Sprintf("Connected to %s (%dms)", client.URL(), elapsed.Milliseconds()),
	}
}

func (c *EndpointCheck) Fix() error {
	return nil
}

// FirstFrameCheck waits for the first frame and verifies it decodes.
type FirstFrameCheck struct {
	URL     string
	Timeout time.Duration
}

func (c *FirstFrameCheck) Name() string     { return "stream_first_frame" }
func (c *FirstFrameCheck) Category() string { return "STREAM" }

func (c *FirstFrameCheck) Run() CheckResult {
	timeout := orDefault(c.Timeout)
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	sink := &firstFrameSink{frames: make(chan snapshot.MetricSnapshot, 1)}
	watch := &decodeWatcher{errs: make(chan error, 1)}
	client := stream.New(c.URL, sink,
		stream.WithObserver(watch),
		stream.WithHandshakeTimeout(timeout),
	)

	runErr := make(chan error, 1)
	go func() { runErr <- client.Run(ctx) }()
	defer client.Close()

	select {
	case s := <-sink.frames:
		return CheckResult{
			Name:   c.Name(),
			Status: StatusPass,
			Message: fmt.Sprintf("First frame decoded (cpu %.1f%%, memory %.1f%%, disk %.1f%%)",
				s.CPUPercent, s.Memory.Percent, s.Disk.Percent),
		}

	case err := <-watch.errs:
		return CheckResult{
			Name:       c.Name(),
			Status:     StatusFail,
			Message:    fmt.Sprintf("First frame rejected: %v", err),
			Suggestion: "The producer must send cpu_percent, memory and disk as JSON",
		}

	case err := <-runErr:
		if ctx.Err() != nil {
			return c.timeoutResult(timeout)
		}
		msg := "Connection ended before the first frame"
		if err != nil {
			msg = fmt.Sprintf("%s: %v", msg, err)
		}
		return CheckResult{
			Name:       c.Name(),
			Status:     StatusFail,
			Message:    msg,
			Suggestion: producerHint,
		}

	case <-ctx.Done():
		return c.timeoutResult(timeout)
	}
}

func (c *FirstFrameCheck) timeoutResult(timeout time.Duration) CheckResult {
	return CheckResult{
		Name:       c.Name(),
		Status:     StatusFail,
		Message:    fmt.Sprintf("No frame received within %s", timeout),
		Suggestion: "Check the producer's push interval",
	}
}

func (c *FirstFrameCheck) Fix() error {
	return nil
}

func orDefault(d time.Duration) time.Duration {
	if d <= 0 {
		return DefaultTimeout
	}
	return d
}

type discardSink struct{}

func (discardSink) Ingest(snapshot.MetricSnapshot) {}

type firstFrameSink struct {
	frames chan snapshot.MetricSnapshot
}

func (s *firstFrameSink) Ingest(snap snapshot.MetricSnapshot) {
	select {
	case s.frames <- snap:
	default:
	}
}

type decodeWatcher struct {
	stream.NopObserver
	errs chan error
}

func (w *decodeWatcher) OnDecodeError(err error) {
	select {
	case w.errs <- err:
	default:
	}
}

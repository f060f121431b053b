package doctor

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

const goodFrame = `{"cpu_percent": 12.5,
 "memory": {"total": 100, "available": 40, "percent": 60},
 "disk": {"total": 100, "used": 25, "free": 75, "percent": 25}}`

// frameServer upgrades every request and sends frames, then idles until the
// client leaves.
func frameServer(t *testing.T, frames ...string) string {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for _, f := range frames {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(f)); err != nil {
				return
			}
		}
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func deadURL(t *testing.T) string {
	t.Helper()
	srv := httptest.NewServer(http.NotFoundHandler())
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	srv.Close()
	return url
}

func TestEndpointCheck(t *testing.T) {
	t.Run("handshake succeeds", func(t *testing.T) {
		check := &EndpointCheck{URL: frameServer(t), Timeout: 2 * time.Second}
		result := check.Run()

		if result.Status != StatusPass {
			t.Fatalf("expected StatusPass, got %v: %s", result.Status, result.Message)
		}
		if !strings.HasPrefix(result.Message, "Connected to ws://") {
			t.Errorf("unexpected message %q", result.Message)
		}
	})

	t.Run("nothing listening", func(t *testing.T) {
		check := &EndpointCheck{URL: deadURL(t), Timeout: 2 * time.Second}
		result := check.Run()

		if result.Status != StatusFail {
			t.Fatalf("expected StatusFail, got %v", result.Status)
		}
		if result.Suggestion != producerHint {
			t.Errorf("unexpected suggestion %q", result.Suggestion)
		}
	})

	t.Run("name and category", func(t *testing.T) {
		check := &EndpointCheck{}
		if check.Name() != "stream_endpoint" || check.Category() != "STREAM" {
			t.Errorf("got %s/%s", check.Name(), check.Category())
		}
	})
}

func TestFirstFrameCheck(t *testing.T) {
	t.Run("valid frame", func(t *testing.T) {
		check := &FirstFrameCheck{URL: frameServer(t, goodFrame), Timeout: 2 * time.Second}
		result := check.Run()

		if result.Status != StatusPass {
			t.Fatalf("expected StatusPass, got %v: %s", result.Status, result.Message)
		}
		if !strings.Contains(result.Message, "cpu 12.5%") {
			t.Errorf("unexpected message %q", result.Message)
		}
	})

	t.Run("malformed frame", func(t *testing.T) {
		check := &FirstFrameCheck{URL: frameServer(t, `{"memory": {}}`), Timeout: 2 * time.Second}
		result := check.Run()

		if result.Status != StatusFail {
			t.Fatalf("expected StatusFail, got %v", result.Status)
		}
		if !strings.HasPrefix(result.Message, "First frame rejected") {
			t.Errorf("unexpected message %q", result.Message)
		}
	})

	t.Run("silent producer", func(t *testing.T) {
		check := &FirstFrameCheck{URL: frameServer(t), Timeout: 200 * time.Millisecond}
		result := check.Run()

		if result.Status != StatusFail {
			t.Fatalf("expected StatusFail, got %v", result.Status)
		}
		if result.Message != "No frame received within 200ms" {
			t.Errorf("unexpected message %q", result.Message)
		}
	})

	t.Run("nothing listening", func(t *testing.T) {
		check := &FirstFrameCheck{URL: deadURL(t), Timeout: 2 * time.Second}
		result := check.Run()

		if result.Status != StatusFail {
			t.Fatalf("expected StatusFail, got %v", result.Status)
		}
		if !strings.HasPrefix(result.Message, "Connection ended before the first frame") {
			t.Errorf("unexpected message %q", result.Message)
		}
	})
}

func TestOrDefault(t *testing.T) {
	if got := orDefault(0); got != DefaultTimeout {
		t.Errorf("orDefault(0) = %s", got)
	}
	if got := orDefault(time.Second); got != time.Second {
		t.Errorf("orDefault(1s) = %s", got)
	}
}

package server

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/rileyhilliard/stylesync/internal/snapshot"
	"github.com/rileyhilliard/stylesync/internal/telemetry"
)

// handleWebSocket upgrades the request and pushes one frame immediately,
// then one per interval until the peer leaves or the server stops.
func (s *Server) handleWebSocket(c *gin.Context) {
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.log.Warn("websocket upgrade from %s: %v", c.ClientIP(), err)
		return
	}

	defer conn.Close()
	stop, ok := s.track()
	if !ok {
		return
	}
	defer s.wg.Done()

	telemetry.ServerClients.Inc()
	defer telemetry.ServerClients.Dec()
	s.log.Info("client connected: %s", c.ClientIP())

	gone := make(chan struct{})
	go s.readPump(conn, gone)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	if !s.push(ctx, conn) {
		return
	}
	for {
		select {
		case <-ticker.C:
			if !s.push(ctx, conn) {
				return
			}
		case <-gone:
			s.log.Info("client disconnected: %s", c.ClientIP())
			return
		case <-stop:
			msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down")
			_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
			return
		}
	}
}

// readPump drains inbound messages so control frames are processed, and
// closes gone when the peer disconnects.
func (s *Server) readPump(conn *websocket.Conn, gone chan<- struct{}) {
	defer close(gone)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.log.Debug("websocket read: %v", err)
			}
			return
		}
	}
}

// push writes one frame. It returns false when the connection is unusable.
// A failed sample skips the tick without dropping the client.
func (s *Server) push(ctx context.Context, conn *websocket.Conn) bool {
	frame, err := s.sample(ctx)
	if err != nil {
		s.log.Warn("sample failed: %v", err)
		telemetry.ServerPushesTotal.WithLabelValues("sample_error").Inc()
		return true
	}

	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(frame); err != nil {
		s.log.Debug("websocket write: %v", err)
		telemetry.ServerPushesTotal.WithLabelValues("write_error").Inc()
		return false
	}
	telemetry.ServerPushesTotal.WithLabelValues("ok").Inc()
	return true
}

func (s *Server) sample(ctx context.Context) (snapshot.Frame, error) {
	start := time.Now()
	defer func() { telemetry.SampleDuration.Observe(time.Since(start).Seconds()) }()
	return s.sampler.Sample(ctx)
}

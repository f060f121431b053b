// Package server is the reference producer: a gin HTTP server that samples the
// host and pushes metric frames to WebSocket clients.
package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/rileyhilliard/stylesync/internal/collector"
	"github.com/rileyhilliard/stylesync/internal/logger"
	"github.com/rileyhilliard/stylesync/internal/telemetry"
)

// Defaults for Config.
const (
	DefaultAddr     = "0.0.0.0:8000"
	DefaultInterval = 2 * time.Second

	writeWait       = 5 * time.Second
	shutdownTimeout = 5 * time.Second
)

// Config controls the HTTP surface.
type Config struct {
	Addr           string
	Interval       time.Duration
	AllowedOrigins []string
}

// Server serves the metrics endpoints.
type Server struct {
	cfg      Config
	sampler  collector.Sampler
	log      logger.Logger
	engine   *gin.Engine
	upgrader websocket.Upgrader

	mu       sync.Mutex
	stopping bool
	stop     chan struct{}
	wg       sync.WaitGroup
}

// New builds a server. Routes are registered immediately so Handler can be
// used without Run.
func New(cfg Config, sampler collector.Sampler, log logger.Logger) *Server {
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if log == nil {
		log = logger.Noop()
	}
	s := &Server{
		cfg:     cfg,
		sampler: sampler,
		log:     log,
		engine:  gin.New(),
		stop:    make(chan struct{}),
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || originAllowed(cfg.AllowedOrigins, origin)
		},
	}

	s.engine.Use(gin.Recovery(), s.requestLogger(), CORSMiddleware(cfg.AllowedOrigins))
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.engine.GET("/", s.handleRoot)
	s.engine.GET("/metrics", s.handleMetrics)
	s.engine.GET("/metrics/prometheus", gin.WrapH(telemetry.Handler()))
	s.engine.GET("/services", s.handleServices)
	s.engine.GET("/ws/metrics", s.handleWebSocket)
}

// Handler returns the HTTP handler with every route registered.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run listens on the configured address and serves until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled, then shuts down
// gracefully: WebSocket clients receive a going-away close frame and
// in-flight requests get a bounded time to finish. A Server may be served
// again after Serve returns, but not by two Serve calls at once.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.mu.Lock()
	if s.stopping {
		s.stopping = false
		s.stop = make(chan struct{})
	}
	s.mu.Unlock()

	srv := &http.Server{
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("listening on %s", ln.Addr())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		s.shutdownStreams()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.log.Info("shutting down")
	s.shutdownStreams()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// shutdownStreams tells every push loop to close and waits for them.
func (s *Server) shutdownStreams() {
	s.mu.Lock()
	if !s.stopping {
		s.stopping = true
		close(s.stop)
	}
	s.mu.Unlock()
	s.wg.Wait()
}

// track registers a push loop and returns the channel that stops it.
// It returns false once shutdown has begun.
func (s *Server) track() (<-chan struct{}, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopping {
		return nil, false
	}
	s.wg.Add(1)
	return s.stop, true
}

func (s *Server) handleRoot(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "Welcome to StyleSync API"})
}

func (s *Server) handleMetrics(c *gin.Context) {
	frame, err := s.sample(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, frame)
}

func (s *Server) handleServices(c *gin.Context) {
	procs, err := s.sampler.Processes(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, procs)
}

// requestLogger logs and counts every request. WebSocket upgrades are
// logged when the upgrade completes.
func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		telemetry.HTTPRequestsTotal.WithLabelValues(c.Request.Method, route, strconv.Itoa(status)).Inc()
		s.log.Debug("%s %s %d %s", c.Request.Method, c.Request.URL.Path, status, time.Since(start).Round(time.Microsecond))
	}
}

// CORSMiddleware echoes allowed origins back with permissive method and
// header lists. An entry of "*" allows every origin.
func CORSMiddleware(allowedOrigins []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := strings.TrimRight(c.GetHeader("Origin"), "/")

		if origin != "" && originAllowed(allowedOrigins, origin) {
			c.Header("Vary", "Origin")
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Access-Control-Allow-Credentials", "true")
			c.Header("Access-Control-Allow-Methods", "GET, OPTIONS")
			c.Header("Access-Control-Allow-Headers", "*")
			c.Header("Access-Control-Max-Age", "86400")
		}

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

func originAllowed(allowed []string, origin string) bool {
	origin = strings.TrimRight(origin, "/")
	for _, o := range allowed {
		o = strings.TrimRight(strings.TrimSpace(o), "/")
		if o == "" {
			continue
		}
		if o == "*" || o == origin {
			return true
		}
	}
	return false
}

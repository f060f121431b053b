package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/rileyhilliard/stylesync/internal/collector"
	"github.com/rileyhilliard/stylesync/internal/config"
	"github.com/rileyhilliard/stylesync/internal/errors"
	"github.com/rileyhilliard/stylesync/internal/logger"
	"github.com/rileyhilliard/stylesync/internal/server"
	"github.com/rileyhilliard/stylesync/internal/ui"
)

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	Addr     string
	Interval time.Duration
}

var serveOpts ServeOptions

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Publish this host's metrics over WebSocket",
	Long: `Sample CPU, memory, disk and network usage on this machine and push a
snapshot to every WebSocket client on /ws/metrics each interval.

Also serves:
  GET /                     welcome message
  GET /metrics              one snapshot as JSON
  GET /services             running processes
  GET /metrics/prometheus   Prometheus exposition

Examples:
  stylesync serve
  stylesync serve --addr 127.0.0.1:9000 --interval 1s`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return Serve(ctx, serveOpts)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveOpts.Addr, "addr", "", "listen address (overrides server.addr)")
	serveCmd.Flags().DurationVar(&serveOpts.Interval, "interval", 0, "push interval, e.g. 1s (overrides server.interval)")
}

// Serve runs the producer until ctx is cancelled.
func Serve(ctx context.Context, opts ServeOptions) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	applyServeFlags(&cfg.Server, opts)
	if err := config.Validate(cfg); err != nil {
		return err
	}

	if !logger.DebugEnabled() {
		gin.SetMode(gin.ReleaseMode)
	}

	log := logger.NewEnvLogger("[server]")
	sampler := collector.NewHostSampler(cfg.Server.DiskPath, log)
	sampler.MaxProcesses = cfg.Server.MaxProcesses

	srv := server.New(server.Config{
		Addr:           cfg.Server.Addr,
		Interval:       cfg.Server.Interval,
		AllowedOrigins: cfg.Server.AllowedOrigins,
	}, sampler, log)

	accent := lipgloss.NewStyle().Foreground(ui.ColorNeonCyan)
	fmt.Printf("%s Serving metrics on %s every %s\n",
		lipgloss.NewStyle().Foreground(ui.ColorSuccess).Render(ui.SymbolComplete),
		accent.Render("ws://"+cfg.Server.Addr+"/ws/metrics"),
		cfg.Server.Interval)

	if err := srv.Run(ctx); err != nil {
		return errors.WrapWithCode(err, errors.ErrServer,
			"Metrics server stopped: "+cfg.Server.Addr,
			"Check that the address is free, or pick another with --addr")
	}
	return nil
}

func applyServeFlags(sc *config.ServerConfig, opts ServeOptions) {
	if opts.Addr != "" {
		sc.Addr = opts.Addr
	}
	if opts.Interval > 0 {
		sc.Interval = opts.Interval
	}
}

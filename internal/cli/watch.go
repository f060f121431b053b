package cli

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/rileyhilliard/stylesync/internal/config"
	"github.com/rileyhilliard/stylesync/internal/dashboard"
	"github.com/rileyhilliard/stylesync/internal/errors"
	"github.com/rileyhilliard/stylesync/internal/logger"
	"github.com/rileyhilliard/stylesync/internal/series"
	"github.com/rileyhilliard/stylesync/internal/snapshot"
	"github.com/rileyhilliard/stylesync/internal/stream"
	"github.com/rileyhilliard/stylesync/internal/telemetry"
)

// debugLogFile receives log output while the dashboard owns the terminal.
const debugLogFile = "stylesync-debug.log"

// WatchOptions holds flags for the watch command.
type WatchOptions struct {
	URL       string
	Plain     bool
	Reconnect bool
}

var watchOpts WatchOptions

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Open the live metrics dashboard",
	Long: `Connect to a metrics stream and render CPU, memory and disk usage as
they arrive. The last 20 points are kept (dashboard.window).

When stdout is not a terminal, or with --plain, one line is printed per
snapshot instead.

Examples:
  stylesync watch
  stylesync watch --url ws://buildbox:8000/ws/metrics
  stylesync watch --plain --reconnect | tee metrics.log`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return Watch(ctx, watchOpts)
	},
}

func init() {
	watchCmd.Flags().StringVar(&watchOpts.URL, "url", "", "stream endpoint (overrides stream.url)")
	watchCmd.Flags().BoolVar(&watchOpts.Plain, "plain", false, "print one line per snapshot instead of the dashboard")
	watchCmd.Flags().BoolVar(&watchOpts.Reconnect, "reconnect", false, "redial with backoff after the connection drops")
}

// Watch runs the dashboard, or the plain printer, until the user quits or
// ctx is cancelled.
func Watch(ctx context.Context, opts WatchOptions) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	url, err := resolveStreamURL(cfg, opts.URL)
	if err != nil {
		return err
	}

	store := series.NewStore(
		series.WithCapacity(cfg.Dashboard.Window),
		series.WithLabelFormat(cfg.Dashboard.LabelFormat),
		series.WithLogger(logger.NewEnvLogger("[store]")),
	)
	sink := telemetry.StoreSink{Store: store}

	if opts.Plain || !dashboard.IsTerminal(os.Stdout) {
		printer := dashboard.NewPlainPrinter(os.Stdout, sink)
		printer.LabelFormat = cfg.Dashboard.LabelFormat
		client := stream.New(url, printer, clientOptions(cfg, opts.Reconnect, telemetry.StreamObserver{})...)
		return runPlain(ctx, client)
	}

	events := dashboard.NewEvents()
	observers := stream.Observers{telemetry.StreamObserver{}, events}
	client := stream.New(url, sink, clientOptions(cfg, opts.Reconnect, observers)...)
	return runDashboard(ctx, client, store, events)
}

func runPlain(ctx context.Context, client *stream.Client) error {
	err := client.Run(ctx)
	if err == nil || stderrors.Is(err, context.Canceled) {
		return nil
	}
	return errors.WrapWithCode(err, errors.ErrTransport,
		fmt.Sprintf("Lost the metrics stream at %s", client.URL()),
		"Start a producer with 'stylesync serve', or pass --reconnect to keep retrying.")
}

func runDashboard(ctx context.Context, client *stream.Client, store *series.Store, events *dashboard.Events) error {
	// The dashboard owns the terminal; route log output to a file or drop it.
	if logger.DebugEnabled() {
		f, err := tea.LogToFile(debugLogFile, "stylesync")
		if err != nil {
			return errors.WrapWithCode(err, errors.ErrConfig,
				"Failed to open debug log "+debugLogFile,
				"Check write permissions in the current directory")
		}
		defer f.Close()
	} else {
		log.SetOutput(io.Discard)
		defer log.SetOutput(os.Stderr)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	runErr := make(chan error, 1)
	go func() { runErr <- client.Run(ctx) }()

	model := dashboard.NewModel(store, events, client.URL())
	defer model.Close()

	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()

	cancel()
	_ = client.Close()
	<-runErr

	if err != nil && !stderrors.Is(err, tea.ErrProgramKilled) {
		return errors.WrapWithCode(err, errors.ErrConfig,
			"Dashboard stopped unexpectedly",
			"Try --plain if your terminal doesn't support full-screen output")
	}
	return nil
}

// resolveStreamURL prefers the --url flag over config.
func resolveStreamURL(cfg *config.Config, flag string) (string, error) {
	if flag == "" {
		return cfg.Stream.URL, nil
	}
	if err := config.ValidateStreamURL(flag); err != nil {
		return "", errors.WrapWithCode(err, errors.ErrConfig,
			err.Error(),
			"Pass a WebSocket URL like ws://localhost:8000/ws/metrics")
	}
	return flag, nil
}

// clientOptions builds stream client options from config. forceReconnect
// enables backoff even when the config leaves it off.
func clientOptions(cfg *config.Config, forceReconnect bool, observer stream.Observer) []stream.Option {
	opts := []stream.Option{
		stream.WithLogger(logger.NewEnvLogger("[stream]")),
		stream.WithObserver(observer),
		stream.WithHandshakeTimeout(cfg.Stream.HandshakeTimeout),
		stream.WithReconnect(reconnectPolicy(cfg.Stream.Reconnect, forceReconnect)),
	}
	if cfg.Dashboard.ClampPercent {
		opts = append(opts, stream.WithRangePolicy(snapshot.RangeClamp))
	}
	return opts
}

func reconnectPolicy(rc config.ReconnectConfig, force bool) stream.ReconnectPolicy {
	if !rc.Enabled && !force {
		return stream.NoReconnect
	}
	return stream.Backoff{
		Initial:     rc.InitialBackoff,
		Max:         rc.MaxBackoff,
		Multiplier:  rc.Multiplier,
		MaxAttempts: rc.MaxAttempts,
	}
}

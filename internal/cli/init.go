package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/rileyhilliard/stylesync/internal/config"
	"github.com/rileyhilliard/stylesync/internal/dashboard"
	"github.com/rileyhilliard/stylesync/internal/errors"
	"github.com/rileyhilliard/stylesync/internal/stream"
	"github.com/rileyhilliard/stylesync/internal/ui"
)

// probeTimeout bounds the connection test after writing the config.
const probeTimeout = 3 * time.Second

// InitOptions holds options for the init command.
type InitOptions struct {
	URL            string // Pre-specified stream URL
	Dir            string // Directory to write into; defaults to "."
	Overwrite      bool   // Overwrite existing config without asking
	NonInteractive bool   // Skip prompts, use flags and defaults
}

var (
	initURL   string
	initForce bool
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a .stylesync.yaml config",
	Long: `Create a .stylesync.yaml in the current directory.

Prompts for the stream endpoint, reconnect behaviour and window size, then
tests the connection. Without a terminal the defaults and flags are used.

Examples:
  stylesync init
  stylesync init --url ws://buildbox:8000/ws/metrics --force`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return Init(InitOptions{
			URL:            initURL,
			Overwrite:      initForce,
			NonInteractive: !dashboard.IsTerminal(os.Stdin) || os.Getenv("CI") != "",
		})
	},
}

func init() {
	initCmd.Flags().StringVar(&initURL, "url", "", "stream endpoint to save")
	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, "overwrite existing config")
}

// Init writes a new config file.
func Init(opts InitOptions) error {
	dir := opts.Dir
	if dir == "" {
		dir = "."
	}
	configPath := filepath.Join(dir, config.ConfigFileName)

	if _, err := os.Stat(configPath); err == nil && !opts.Overwrite {
		if opts.NonInteractive {
			return errors.New(errors.ErrConfig,
				fmt.Sprintf("Config file already exists: %s", configPath),
				"Use --force to overwrite")
		}

		var overwrite bool
		form := huh.NewForm(
			huh.NewGroup(
				huh.NewConfirm().
					Title(fmt.Sprintf("Config file '%s' already exists. Overwrite?", config.ConfigFileName)).
					Value(&overwrite),
			),
		)
		if err := form.Run(); err != nil {
			return errors.WrapWithCode(err, errors.ErrConfig,
				"Failed to get user input",
				"Try running with --force to overwrite")
		}
		if !overwrite {
			fmt.Println("Cancelled.")
			return nil
		}
	}

	cfg := config.DefaultConfig()
	if opts.URL != "" {
		if err := config.ValidateStreamURL(opts.URL); err != nil {
			return errors.WrapWithCode(err, errors.ErrConfig, err.Error(),
				"Pass a WebSocket URL like ws://localhost:8000/ws/metrics")
		}
		cfg.Stream.URL = opts.URL
	}

	if !opts.NonInteractive {
		if err := promptConfig(cfg); err != nil {
			return err
		}
	}

	if err := config.Validate(cfg); err != nil {
		return err
	}
	if err := config.Write(configPath, cfg); err != nil {
		return err
	}

	fmt.Printf("%s Created %s\n\n", ui.SymbolSuccess, configPath)
	probeEndpoint(cfg.Stream.URL)

	fmt.Println()
	fmt.Println("Next steps:")
	fmt.Println("  stylesync serve   - Publish this machine's metrics")
	fmt.Println("  stylesync watch   - Open the dashboard")
	fmt.Println("  stylesync doctor  - Check configuration")
	return nil
}

// promptConfig asks for the values most people change.
func promptConfig(cfg *config.Config) error {
	url := cfg.Stream.URL
	reconnect := cfg.Stream.Reconnect.Enabled
	window := strconv.Itoa(cfg.Dashboard.Window)

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Stream endpoint").
				Description("WebSocket URL that pushes metric snapshots").
				Placeholder(config.DefaultConfig().Stream.URL).
				Value(&url).
				Validate(config.ValidateStreamURL),
		),
		huh.NewGroup(
			huh.NewConfirm().
				Title("Reconnect after the stream drops?").
				Description("Retries with exponential backoff, 1s up to 30s").
				Value(&reconnect),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("History window").
				Description("Number of points kept for each graph").
				Value(&window).
				Validate(validateWindow),
		),
	)

	if err := form.Run(); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig,
			"Failed to get user input",
			"Check terminal compatibility or pass --url from a non-interactive shell")
	}

	cfg.Stream.URL = strings.TrimSpace(url)
	cfg.Stream.Reconnect.Enabled = reconnect
	cfg.Dashboard.Window, _ = strconv.Atoi(strings.TrimSpace(window))
	return nil
}

func validateWindow(s string) error {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("window must be a whole number")
	}
	if n < 1 || n > config.MaxWindow {
		return fmt.Errorf("window must be between 1 and %d", config.MaxWindow)
	}
	return nil
}

// probeEndpoint tries the handshake once. Failure is reported, not fatal:
// the producer may simply not be running yet.
func probeEndpoint(url string) {
	spinner := ui.NewSpinner("Testing connection to " + url)
	spinner.Start()

	ctx, cancel := context.WithTimeout(context.Background(), probeTimeout)
	defer cancel()

	client := stream.New(url, nil, stream.WithHandshakeTimeout(probeTimeout))
	if err := client.Connect(ctx); err != nil {
		spinner.Fail()
		fmt.Printf("  Nothing answered yet. Start a producer with 'stylesync serve'.\n")
		return
	}
	_ = client.Close()
	spinner.Success()
}

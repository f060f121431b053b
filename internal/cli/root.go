package cli

import (
	stderrors "errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"

	"github.com/rileyhilliard/stylesync/internal/config"
	"github.com/rileyhilliard/stylesync/internal/errors"
	"github.com/rileyhilliard/stylesync/internal/logger"
)

// Global flags
var (
	cfgFile string
	verbose bool
	noColor bool
)

var rootCmd = &cobra.Command{
	Use:   "stylesync",
	Short: "Live host metrics dashboard",
	Long: `stylesync streams CPU, memory and disk metrics over a WebSocket and
renders them as a live terminal dashboard.

Run 'stylesync serve' on the machine to watch, then 'stylesync watch' to
follow it.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		applyGlobalFlags()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: search for .stylesync.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
}

func applyGlobalFlags() {
	if noColor || os.Getenv("NO_COLOR") != "" {
		lipgloss.SetColorProfile(termenv.Ascii)
	}
	if verbose {
		_ = os.Setenv(logger.DebugEnv, "1")
	}
}

// Config returns the --config flag value.
func Config() string {
	return cfgFile
}

// loadConfig resolves the effective config and validates it.
func loadConfig() (*config.Config, error) {
	cfg, _, err := config.Resolve(cfgFile)
	if err != nil {
		return nil, err
	}
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprint(os.Stderr, formatError(err))
		os.Exit(1)
	}
}

func formatError(err error) string {
	var sErr *errors.Error
	if stderrors.As(err, &sErr) {
		return sErr.Error()
	}
	if isUnknownCommandError(err) {
		msg := fmt.Sprintf("✗ %v\n", err)
		if name := extractUnknownCommand(err); name != "" {
			msg += fmt.Sprintf("\n  '%s' isn't a stylesync command. Run 'stylesync --help' to see what is.\n", name)
		}
		return msg
	}
	return fmt.Sprintf("✗ %v\n", err)
}

func isUnknownCommandError(err error) bool {
	msg := err.Error()
	return strings.HasPrefix(msg, "unknown command") ||
		strings.HasPrefix(msg, "unknown flag") ||
		strings.HasPrefix(msg, "unknown shorthand flag")
}

var unknownCommandRe = regexp.MustCompile(`unknown command "([^"]+)"`)

func extractUnknownCommand(err error) string {
	m := unknownCommandRe.FindStringSubmatch(err.Error())
	if m == nil {
		return ""
	}
	return m[1]
}

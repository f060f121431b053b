package config

import (
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/rileyhilliard/stylesync/internal/errors"
)

// MaxWindow caps the rolling window so a typo cannot allocate unbounded memory.
const MaxWindow = 10_000

// Validate checks the config for errors and returns structured error messages.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New(errors.ErrConfig,
			"Config is nil",
			"This is unexpected - try reloading the configuration.")
	}

	if cfg.Version > CurrentConfigVersion {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("This config is from the future (version %d, but stylesync only knows up to %d)", cfg.Version, CurrentConfigVersion),
			"Upgrade stylesync to the latest release.")
	}

	if err := validateStream(cfg.Stream); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig, err.Error(), "Check the 'stream' section in your .stylesync.yaml.")
	}
	if err := validateDashboard(cfg.Dashboard); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig, err.Error(), "Check the 'dashboard' section in your .stylesync.yaml.")
	}
	if err := validateServer(cfg.Server); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig, err.Error(), "Check the 'server' section in your .stylesync.yaml.")
	}
	return nil
}

// ValidateStreamURL checks that raw is an absolute ws:// or wss:// URL.
func ValidateStreamURL(raw string) error {
	if strings.TrimSpace(raw) == "" {
		return fmt.Errorf("stream url is required")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("stream url %q is not a valid URL: %v", raw, err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return fmt.Errorf("stream url %q must use ws:// or wss://", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("stream url %q has no host", raw)
	}
	return nil
}

func validateStream(s StreamConfig) error {
	if err := ValidateStreamURL(s.URL); err != nil {
		return err
	}
	if s.HandshakeTimeout < 0 {
		return fmt.Errorf("handshake_timeout can't be negative (got %s)", s.HandshakeTimeout)
	}

	r := s.Reconnect
	if !r.Enabled {
		return nil
	}
	if r.InitialBackoff <= 0 {
		return fmt.Errorf("reconnect.initial_backoff must be positive (got %s)", r.InitialBackoff)
	}
	if r.MaxBackoff < r.InitialBackoff {
		return fmt.Errorf("reconnect.max_backoff (%s) must be at least initial_backoff (%s)", r.MaxBackoff, r.InitialBackoff)
	}
	if r.Multiplier < 1 {
		return fmt.Errorf("reconnect.multiplier must be at least 1 (got %g)", r.Multiplier)
	}
	if r.MaxAttempts < 0 {
		return fmt.Errorf("reconnect.max_attempts can't be negative (got %d)", r.MaxAttempts)
	}
	return nil
}

func validateDashboard(d DashboardConfig) error {
	if d.Window < 1 || d.Window > MaxWindow {
		return fmt.Errorf("window must be between 1 and %d (got %d)", MaxWindow, d.Window)
	}
	if strings.TrimSpace(d.LabelFormat) == "" {
		return fmt.Errorf("label_format can't be empty")
	}
	// a layout without any time fields renders every label identically
	ref := time.Date(2001, 2, 3, 4, 5, 6, 0, time.UTC)
	if ref.Format(d.LabelFormat) == d.LabelFormat {
		return fmt.Errorf("label_format %q contains no time fields; use a Go layout like 15:04:05", d.LabelFormat)
	}
	return nil
}

func validateServer(s ServerConfig) error {
	if _, _, err := net.SplitHostPort(s.Addr); err != nil {
		return fmt.Errorf("addr %q must be host:port: %v", s.Addr, err)
	}
	if s.Interval < 100*time.Millisecond {
		return fmt.Errorf("interval must be at least 100ms (got %s)", s.Interval)
	}
	if strings.TrimSpace(s.DiskPath) == "" {
		return fmt.Errorf("disk_path can't be empty")
	}
	if s.MaxProcesses < 0 {
		return fmt.Errorf("max_processes can't be negative (got %d)", s.MaxProcesses)
	}
	return nil
}

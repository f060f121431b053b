package config

import "time"

// CurrentConfigVersion is the schema version for the config file.
// Increment when making breaking changes to the config structure.
const CurrentConfigVersion = 1

// Config represents the complete .stylesync.yaml configuration file.
type Config struct {
	Version   int             `yaml:"version" mapstructure:"version"`
	Stream    StreamConfig    `yaml:"stream" mapstructure:"stream"`
	Dashboard DashboardConfig `yaml:"dashboard" mapstructure:"dashboard"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
}

// StreamConfig controls the connection to the metrics endpoint.
type StreamConfig struct {
	// URL is the WebSocket endpoint pushing metric frames.
	URL string `yaml:"url" mapstructure:"url"`

	// HandshakeTimeout bounds the WebSocket opening handshake.
	HandshakeTimeout time.Duration `yaml:"handshake_timeout" mapstructure:"handshake_timeout"`

	Reconnect ReconnectConfig `yaml:"reconnect" mapstructure:"reconnect"`
}

// ReconnectConfig enables redialing after a dropped connection.
// Disabled, a drop leaves the dashboard showing the last values.
type ReconnectConfig struct {
	Enabled        bool          `yaml:"enabled" mapstructure:"enabled"`
	InitialBackoff time.Duration `yaml:"initial_backoff" mapstructure:"initial_backoff"`
	MaxBackoff     time.Duration `yaml:"max_backoff" mapstructure:"max_backoff"`
	Multiplier     float64       `yaml:"multiplier" mapstructure:"multiplier"`

	// MaxAttempts of 0 retries forever.
	MaxAttempts int `yaml:"max_attempts" mapstructure:"max_attempts"`
}

// DashboardConfig controls the rolling window and its presentation.
type DashboardConfig struct {
	// Window is the number of points kept per series.
	Window int `yaml:"window" mapstructure:"window"`

	// ClampPercent pulls out-of-range values into their domain instead of
	// showing them as received.
	ClampPercent bool `yaml:"clamp_percent" mapstructure:"clamp_percent"`

	// LabelFormat is the Go time layout for series labels.
	LabelFormat string `yaml:"label_format" mapstructure:"label_format"`
}

// ServerConfig controls `stylesync serve`.
type ServerConfig struct {
	Addr     string        `yaml:"addr" mapstructure:"addr"`
	Interval time.Duration `yaml:"interval" mapstructure:"interval"`

	// DiskPath is the filesystem reported in the disk section.
	DiskPath string `yaml:"disk_path" mapstructure:"disk_path"`

	// AllowedOrigins for CORS and WebSocket upgrades. "*" allows all.
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`

	// MaxProcesses limits the /services listing; 0 means no limit.
	MaxProcesses int `yaml:"max_processes" mapstructure:"max_processes"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Version: CurrentConfigVersion,
		Stream: StreamConfig{
			URL:              "ws://localhost:8000/ws/metrics",
			HandshakeTimeout: 10 * time.Second,
			Reconnect: ReconnectConfig{
				Enabled:        false,
				InitialBackoff: time.Second,
				MaxBackoff:     30 * time.Second,
				Multiplier:     2,
				MaxAttempts:    0,
			},
		},
		Dashboard: DashboardConfig{
			Window:       20,
			ClampPercent: false,
			LabelFormat:  "15:04:05",
		},
		Server: ServerConfig{
			Addr:           "0.0.0.0:8000",
			Interval:       2 * time.Second,
			DiskPath:       "/",
			AllowedOrigins: []string{"*"},
			MaxProcesses:   0,
		},
	}
}

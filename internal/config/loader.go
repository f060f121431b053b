package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/rileyhilliard/stylesync/internal/errors"
)

const (
	// ConfigFileName is the default config file name.
	ConfigFileName = ".stylesync.yaml"
	// GlobalConfigDir is the directory for global config.
	GlobalConfigDir = ".config/stylesync"
	// GlobalConfigFile is the global config file name.
	GlobalConfigFile = "config.yaml"
	// EnvPrefix prefixes environment overrides, e.g. STYLESYNC_STREAM_URL.
	EnvPrefix = "STYLESYNC"
)

// Load reads config from the specified path. Environment variables override
// file values.
func Load(path string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		if os.IsNotExist(err) {
			return nil, errors.WrapWithCode(err, errors.ErrConfig,
				"Config file not found",
				"Run 'stylesync init' to create a config file, or specify one with --config")
		}
		return nil, errors.WrapWithCode(err, errors.ErrConfig,
			"Failed to read config file",
			"Check the file exists and is valid YAML")
	}

	return parseConfig(v, path)
}

// LoadDefaults returns defaults with environment overrides applied.
func LoadDefaults() (*Config, error) {
	return parseConfig(newViper(), "environment")
}

// Find locates the config file using the search order:
// 1. Explicit path (from --config flag)
// 2. .stylesync.yaml in current directory
// 3. .stylesync.yaml in parent directories (stops at git root or home)
// 4. ~/.config/stylesync/config.yaml (global defaults)
//
// Returns the path to the config file, or empty string if not found.
func Find(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			if os.IsNotExist(err) {
				return "", errors.WrapWithCode(err, errors.ErrConfig,
					"Specified config file not found: "+explicit,
					"Check the path is correct")
			}
			return "", errors.WrapWithCode(err, errors.ErrConfig,
				"Cannot access config file: "+explicit,
				"Check file permissions")
		}
		return explicit, nil
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", errors.WrapWithCode(err, errors.ErrConfig,
			"Cannot determine current directory",
			"Check directory permissions")
	}

	localConfig := filepath.Join(cwd, ConfigFileName)
	if fileExists(localConfig) {
		return localConfig, nil
	}

	home, _ := os.UserHomeDir()
	dir := cwd
	for !isGitRoot(dir) {
		parent := filepath.Dir(dir)
		if parent == dir || (home != "" && parent == home) {
			break
		}
		dir = parent

		if candidate := filepath.Join(dir, ConfigFileName); fileExists(candidate) {
			return candidate, nil
		}
	}

	if home != "" {
		globalConfig := filepath.Join(home, GlobalConfigDir, GlobalConfigFile)
		if fileExists(globalConfig) {
			return globalConfig, nil
		}
	}

	return "", nil
}

// Resolve finds and loads the config, falling back to defaults when no file
// exists. It returns the path used, empty for defaults.
func Resolve(explicit string) (*Config, string, error) {
	path, err := Find(explicit)
	if err != nil {
		return nil, "", err
	}
	if path == "" {
		cfg, err := LoadDefaults()
		return cfg, "", err
	}
	cfg, err := Load(path)
	return cfg, path, err
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)
	return v
}

// setDefaults registers every key so AutomaticEnv can override keys that
// are absent from the file.
func setDefaults(v *viper.Viper) {
	d := DefaultConfig()
	v.SetDefault("version", d.Version)
	v.SetDefault("stream.url", d.Stream.URL)
	v.SetDefault("stream.handshake_timeout", d.Stream.HandshakeTimeout)
	v.SetDefault("stream.reconnect.enabled", d.Stream.Reconnect.Enabled)
	v.SetDefault("stream.reconnect.initial_backoff", d.Stream.Reconnect.InitialBackoff)
	v.SetDefault("stream.reconnect.max_backoff", d.Stream.Reconnect.MaxBackoff)
	v.SetDefault("stream.reconnect.multiplier", d.Stream.Reconnect.Multiplier)
	v.SetDefault("stream.reconnect.max_attempts", d.Stream.Reconnect.MaxAttempts)
	v.SetDefault("dashboard.window", d.Dashboard.Window)
	v.SetDefault("dashboard.clamp_percent", d.Dashboard.ClampPercent)
	v.SetDefault("dashboard.label_format", d.Dashboard.LabelFormat)
	v.SetDefault("server.addr", d.Server.Addr)
	v.SetDefault("server.interval", d.Server.Interval)
	v.SetDefault("server.disk_path", d.Server.DiskPath)
	v.SetDefault("server.allowed_origins", d.Server.AllowedOrigins)
	v.SetDefault("server.max_processes", d.Server.MaxProcesses)
}

// parseConfig converts viper config to our Config struct with defaults merged in.
func parseConfig(v *viper.Viper, source string) (*Config, error) {
	cfg := DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrConfig,
			"Invalid config format",
			"Check the YAML syntax in "+source)
	}
	return cfg, nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// isGitRoot checks if a directory is a git repository root.
func isGitRoot(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, ".git"))
	return err == nil
}

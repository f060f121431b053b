package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/rileyhilliard/stylesync/internal/errors"
)

const fileHeader = `# stylesync configuration
# Run 'stylesync watch' to open the dashboard, 'stylesync serve' to publish metrics
# Environment overrides use the STYLESYNC_ prefix, e.g. STYLESYNC_STREAM_URL

`

// Marshal renders cfg as the YAML written by Write, header included.
func Marshal(cfg *Config) ([]byte, error) {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrConfig,
			"Failed to generate config",
			"Check the values passed to init")
	}
	return append([]byte(fileHeader), data...), nil
}

// Write saves cfg to path, replacing any existing file.
func Write(path string, cfg *Config) error {
	data, err := Marshal(cfg)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig,
			fmt.Sprintf("Failed to write config file: %s", path),
			"Check directory permissions")
	}
	return nil
}

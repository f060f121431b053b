package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshal(t *testing.T) {
	data, err := Marshal(DefaultConfig())
	require.NoError(t, err)

	out := string(data)
	assert.True(t, strings.HasPrefix(out, "# stylesync configuration"))
	assert.Contains(t, out, "url: ws://localhost:8000/ws/metrics")
	assert.Contains(t, out, "handshake_timeout: 10s")
	assert.Contains(t, out, "window: 20")
	assert.Contains(t, out, "interval: 2s")
}

func TestWrite_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), ConfigFileName)

	cfg := DefaultConfig()
	cfg.Stream.URL = "ws://metrics.internal:9000/ws/metrics"
	cfg.Stream.Reconnect.Enabled = true
	cfg.Stream.Reconnect.MaxBackoff = 45 * time.Second
	cfg.Dashboard.Window = 60
	require.NoError(t, Write(path, cfg))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg.Stream.URL, loaded.Stream.URL)
	assert.True(t, loaded.Stream.Reconnect.Enabled)
	assert.Equal(t, 45*time.Second, loaded.Stream.Reconnect.MaxBackoff)
	assert.Equal(t, 60, loaded.Dashboard.Window)
	assert.NoError(t, Validate(loaded))
}

func TestWrite_BadPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "dir", ConfigFileName)
	err := Write(path, DefaultConfig())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Failed to write config file")

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}

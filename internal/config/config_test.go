package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	off := false
	cfg := &Config{
		DefaultSession: "work",
		Bridge: Bridge{
			DeviceName:     "laptop",
			AutoStart:      &off,
			ReconnectDelay: 5 * time.Second,
		},
	}
	require.NoError(t, Save(path, cfg))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "work", loaded.DefaultSession)
	assert.Equal(t, "laptop", loaded.Bridge.DeviceName)
	assert.False(t, loaded.Bridge.ShouldAutoStart())
	assert.Equal(t, 5*time.Second, loaded.Bridge.ReconnectDelay)
	assert.Equal(t, 1500*time.Millisecond, loaded.Bridge.RestartDelay, "unset fields get defaults")
}

func TestLoadMissingUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)
	assert.Empty(t, cfg.DefaultSession)
	assert.Equal(t, Default(), cfg.Bridge)
	assert.True(t, cfg.Bridge.ShouldAutoStart())
}

func TestLoadDurationStrings(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
default_session = "main"

[bridge]
log_level = "debug"
restart_delay = "250ms"
checkpoint_threshold = 10
`), 0600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Bridge.LogLevel)
	assert.Equal(t, 250*time.Millisecond, cfg.Bridge.RestartDelay)
	assert.Equal(t, 10, cfg.Bridge.CheckpointThreshold)
	assert.Equal(t, 2*time.Second, cfg.Bridge.ReconnectDelay)
}

func TestLoadMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("default_session = [broken"), 0600))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestSavePermissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, Save(path, &Config{DefaultSession: "main"}))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

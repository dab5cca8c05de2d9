// Package config reads and writes the global ~/.wabridge/config.toml.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Config represents the global config file.
type Config struct {
	DefaultSession string `toml:"default_session"`
	Bridge         Bridge `toml:"bridge"`
}

// Bridge tunes the daemon. Zero values fall back to Default.
type Bridge struct {
	DeviceName          string        `toml:"device_name"`
	LogLevel            string        `toml:"log_level"`
	AutoStart           *bool         `toml:"auto_start"`
	RestartDelay        time.Duration `toml:"restart_delay"`
	ReconnectDelay      time.Duration `toml:"reconnect_delay"`
	CheckpointThreshold int           `toml:"checkpoint_threshold"`
}

// Default returns the built-in bridge settings.
func Default() Bridge {
	on := true
	return Bridge{
		DeviceName:          "wabridge",
		LogLevel:            "info",
		AutoStart:           &on,
		RestartDelay:        1500 * time.Millisecond,
		ReconnectDelay:      2 * time.Second,
		CheckpointThreshold: 100,
	}
}

// WithDefaults fills unset fields from Default.
func (b Bridge) WithDefaults() Bridge {
	d := Default()
	if b.DeviceName == "" {
		b.DeviceName = d.DeviceName
	}
	if b.LogLevel == "" {
		b.LogLevel = d.LogLevel
	}
	if b.AutoStart == nil {
		b.AutoStart = d.AutoStart
	}
	if b.RestartDelay <= 0 {
		b.RestartDelay = d.RestartDelay
	}
	if b.ReconnectDelay <= 0 {
		b.ReconnectDelay = d.ReconnectDelay
	}
	if b.CheckpointThreshold <= 0 {
		b.CheckpointThreshold = d.CheckpointThreshold
	}
	return b
}

// ShouldAutoStart reports whether the daemon connects on boot.
func (b Bridge) ShouldAutoStart() bool {
	return b.AutoStart == nil || *b.AutoStart
}

// Load reads config from path. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
	}
	cfg.Bridge = cfg.Bridge.WithDefaults()
	return &cfg, nil
}

// Save writes config to the given path, creating parent dirs as needed.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	encErr := toml.NewEncoder(f).Encode(cfg)
	if closeErr := f.Close(); closeErr != nil && encErr == nil {
		return closeErr
	}
	return encErr
}

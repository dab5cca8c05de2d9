// Package session resolves the active session name and where its files live.
package session

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/matheus3301/wabridge/internal/config"
)

// DefaultName is used when neither the flag nor the config names a session.
const DefaultName = "main"

var namePattern = regexp.MustCompile(`^[a-z0-9_-]{1,64}$`)

// ValidateName rejects names that are unsafe as directory names.
func ValidateName(name string) error {
	if !namePattern.MatchString(name) {
		return fmt.Errorf("invalid session name %q: use 1-64 of a-z, 0-9, '_' or '-'", name)
	}
	return nil
}

// BaseDir returns ~/.wabridge.
func BaseDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = os.TempDir()
	}
	return filepath.Join(home, ".wabridge")
}

// ConfigPath returns the global config file path under base.
func ConfigPath(base string) string {
	return filepath.Join(base, "config.toml")
}

// Resolve picks the session name: flag, then config default_session, then
// DefaultName.
func Resolve(flag string, cfg *config.Config) string {
	if flag != "" {
		return flag
	}
	if cfg != nil && cfg.DefaultSession != "" {
		return cfg.DefaultSession
	}
	return DefaultName
}

// Layout locates one session's files.
type Layout struct {
	Base string
	Name string
}

// NewLayout validates name and returns its layout under base.
func NewLayout(base, name string) (Layout, error) {
	if err := ValidateName(name); err != nil {
		return Layout{}, err
	}
	return Layout{Base: base, Name: name}, nil
}

func (l Layout) Dir() string        { return filepath.Join(l.Base, "sessions", l.Name) }
func (l Layout) SocketPath() string { return filepath.Join(l.Dir(), "daemon.sock") }
func (l Layout) LockPath() string   { return filepath.Join(l.Dir(), "LOCK") }
func (l Layout) LogDir() string     { return filepath.Join(l.Dir(), "logs") }
func (l Layout) LogPath() string    { return filepath.Join(l.LogDir(), "wabridged.log") }

// AuthDBPath is the whatsmeow credential store.
func (l Layout) AuthDBPath() string { return filepath.Join(l.Dir(), "auth.db") }

// StoreDBPath is the bridge's own contacts/chats/messages database.
func (l Layout) StoreDBPath() string { return filepath.Join(l.Dir(), "wabridge.db") }

// Ensure creates the session directory tree, owner-only.
func (l Layout) Ensure() error {
	for _, d := range []string{l.Dir(), l.LogDir()} {
		if err := os.MkdirAll(d, 0700); err != nil {
			return fmt.Errorf("create %s: %w", d, err)
		}
	}
	return nil
}

// Locate loads the global config under base (session.BaseDir() when empty)
// and returns the layout of the session named by flag or the config default.
func Locate(base, flag string) (Layout, *config.Config, error) {
	if base == "" {
		base = BaseDir()
	}
	cfg, err := config.Load(ConfigPath(base))
	if err != nil {
		return Layout{}, nil, err
	}
	layout, err := NewLayout(base, Resolve(flag, cfg))
	if err != nil {
		return Layout{}, nil, err
	}
	return layout, cfg, nil
}

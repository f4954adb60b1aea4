// Package settings provides the user preferences the extraction flow reads:
// viewer theme, document service address, auto mode and the default view.
package settings

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/goccy/go-yaml"
)

// Default values written on first install.
const (
	DefaultTheme     = "dark"
	DefaultServerURL = "https://jsonhero.io"
	DefaultView      = "column"
)

// Settings are the user preferences. Every field is optional; the zero
// value means "not set".
type Settings struct {
	Theme       string `yaml:"theme,omitempty" json:"theme,omitempty"`
	ServerURL   string `yaml:"serverUrl,omitempty" json:"serverUrl,omitempty"`
	AutoMode    bool   `yaml:"autoMode,omitempty" json:"autoMode,omitempty"`
	DefaultView string `yaml:"defaultView,omitempty" json:"defaultView,omitempty"`
}

// Defaults returns the settings a fresh install starts with.
func Defaults() Settings {
	return Settings{
		Theme:       DefaultTheme,
		ServerURL:   DefaultServerURL,
		AutoMode:    false,
		DefaultView: DefaultView,
	}
}

// WithDefaults fills every unset field of s from Defaults.
func WithDefaults(s Settings) Settings {
	d := Defaults()
	if s.Theme == "" {
		s.Theme = d.Theme
	}
	if s.ServerURL == "" {
		s.ServerURL = d.ServerURL
	}
	if s.DefaultView == "" {
		s.DefaultView = d.DefaultView
	}
	return s
}

// Store reads the current settings. The core never writes them.
type Store interface {
	Get(ctx context.Context) (Settings, error)
}

// Static is a Store that always returns the same settings.
type Static Settings

func (s Static) Get(context.Context) (Settings, error) {
	return Settings(s), nil
}

// FileStore reads settings from a YAML file on every Get, so edits made
// while the server runs are picked up. A missing file reads as empty
// settings.
type FileStore struct {
	path string
	mu   sync.Mutex
}

// NewFileStore creates a FileStore backed by path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the backing file.
func (f *FileStore) Path() string { return f.path }

func (f *FileStore) Get(ctx context.Context) (Settings, error) {
	if err := ctx.Err(); err != nil {
		return Settings{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return Settings{}, nil
	}
	if err != nil {
		return Settings{}, fmt.Errorf("settings: read %s: %w", f.path, err)
	}

	var s Settings
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Settings{}, fmt.Errorf("settings: parse %s: %w", f.path, err)
	}
	return s, nil
}

// Install writes Defaults to the backing file unless it already exists.
// It reports whether a file was written.
func (f *FileStore) Install() (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, err := os.Stat(f.path); err == nil {
		return false, nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return false, fmt.Errorf("settings: stat %s: %w", f.path, err)
	}

	data, err := yaml.Marshal(Defaults())
	if err != nil {
		return false, fmt.Errorf("settings: encode defaults: %w", err)
	}
	if dir := filepath.Dir(f.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return false, fmt.Errorf("settings: create %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(f.path, data, 0o644); err != nil {
		return false, fmt.Errorf("settings: write %s: %w", f.path, err)
	}
	return true, nil
}

// Package localstore keeps the device credentials on the local filesystem.
//
// The credentials file holds four NUL-terminated strings. Restarting the
// process while the reset window is open clears them on the next boot: a
// sentinel file is created when the window opens and removed when it closes,
// so finding it at boot means the previous run was interrupted inside the window.
package localstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"time"

	"solar_collector/internal/hardware"
	"solar_collector/internal/logger"

	"github.com/spf13/afero"
)

// File names relative to the store directory.
const (
	ConfigFile   = "config.txt"
	SentinelFile = "reset-config.txt"
)

// DefaultResetWindow is how long the reset window stays open at boot.
const DefaultResetWindow = 3 * time.Second

// ErrNotConfigured is returned when no credentials have been saved.
var ErrNotConfigured = errors.New("localstore: no saved configuration")

// Credentials are the provisioning values: two for the network and two for
// the remote service.
type Credentials struct {
	WiFiSSID     string
	WiFiPassword string
	RemoteHost   string
	RemoteAuth   string
}

func (c Credentials) fields() []string {
	return []string{c.WiFiSSID, c.WiFiPassword, c.RemoteHost, c.RemoteAuth}
}

// Blinker shows the reset window on the status LED.
type Blinker interface {
	Blink(rate time.Duration)
	Steady(on bool)
}

// Store reads and writes credentials under dir on fs.
type Store struct {
	fs  afero.Fs
	dir string
	log *logger.Logger
}

// New returns a store rooted at dir.
func New(fs afero.Fs, dir string, log *logger.Logger) *Store {
	if dir == "" {
		dir = "/"
	}
	return &Store{fs: fs, dir: dir, log: log}
}

func (s *Store) configPath() string { return path.Join(s.dir, ConfigFile) }
func (s *Store) sentinelPath() string { return path.Join(s.dir, SentinelFile) }

// Init runs the boot protocol and returns the saved credentials. cleared is
// true when a leftover sentinel caused the credentials to be wiped.
// ErrNotConfigured is returned when nothing is saved.
func (s *Store) Init(ctx context.Context, window time.Duration, led Blinker) (creds Credentials, cleared bool, err error) {
	if err := s.fs.MkdirAll(s.dir, 0o755); err != nil {
		return Credentials{}, false, fmt.Errorf("create %s: %w", s.dir, err)
	}

	exists, err := afero.Exists(s.fs, s.sentinelPath())
	if err != nil {
		return Credentials{}, false, fmt.Errorf("stat sentinel: %w", err)
	}

	if exists {
		if err := s.fs.Remove(s.configPath()); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Credentials{}, false, fmt.Errorf("clear %s: %w", ConfigFile, err)
		}
		cleared = true
		s.log.Warnw("local_config_cleared", "dir", s.dir)
	} else if err := s.resetWindow(ctx, window, led); err != nil {
		return Credentials{}, false, err
	}

	creds, err = s.Load()
	return creds, cleared, err
}

func (s *Store) resetWindow(ctx context.Context, window time.Duration, led Blinker) error {
	if err := afero.WriteFile(s.fs, s.sentinelPath(), nil, 0o644); err != nil {
		return fmt.Errorf("create sentinel: %w", err)
	}
	s.log.Infow("reset_window_open", "window", window)
	if led != nil {
		led.Blink(hardware.BlinkResetWindow)
	}

	t := time.NewTimer(window)
	defer t.Stop()
	select {
	case <-ctx.Done():
		// Leave the sentinel: an interrupted window means reset on next boot.
		return ctx.Err()
	case <-t.C:
	}

	if err := s.fs.Remove(s.sentinelPath()); err != nil {
		return fmt.Errorf("remove sentinel: %w", err)
	}
	if led != nil {
		led.Steady(true)
	}
	s.log.Infow("reset_window_closed")
	return nil
}

// Load reads the saved credentials.
func (s *Store) Load() (Credentials, error) {
	data, err := afero.ReadFile(s.fs, s.configPath())
	if errors.Is(err, os.ErrNotExist) {
		return Credentials{}, ErrNotConfigured
	}
	if err != nil {
		return Credentials{}, fmt.Errorf("read %s: %w", ConfigFile, err)
	}

	parts := bytes.Split(data, []byte{0})
	get := func(i int) string {
		if i < len(parts) {
			return string(parts[i])
		}
		return ""
	}
	return Credentials{
		WiFiSSID:     get(0),
		WiFiPassword: get(1),
		RemoteHost:   get(2),
		RemoteAuth:   get(3),
	}, nil
}

// Save replaces the credentials and cancels a pending reset.
func (s *Store) Save(c Credentials) error {
	var buf bytes.Buffer
	for _, f := range c.fields() {
		buf.WriteString(f)
		buf.WriteByte(0)
	}
	if err := afero.WriteFile(s.fs, s.configPath(), buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("write %s: %w", ConfigFile, err)
	}
	if err := s.fs.Remove(s.sentinelPath()); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove sentinel: %w", err)
	}
	s.log.Infow("local_config_saved", "remote_host", c.RemoteHost)
	return nil
}

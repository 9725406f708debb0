package localstore

import (
	"context"
	"testing"
	"time"

	"solar_collector/internal/logger"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBlinker struct {
	blinks []time.Duration
	steady []bool
}

func (b *fakeBlinker) Blink(rate time.Duration) { b.blinks = append(b.blinks, rate) }
func (b *fakeBlinker) Steady(on bool) { b.steady = append(b.steady, on) }

var creds = Credentials{
	WiFiSSID:     "garage",
	WiFiPassword: "hunter2",
	RemoteHost:   "https://solar.example.org",
	RemoteAuth:   "token",
}

func TestSaveAndLoad(t *testing.T) {
	fs := afero.NewMemMapFs()
	s := New(fs, "/data", logger.Nop())
	require.NoError(t, fs.MkdirAll("/data", 0o755))

	require.NoError(t, s.Save(creds))
	got, err := s.Load()

	require.NoError(t, err)
	assert.Equal(t, creds, got)

	raw, err := afero.ReadFile(fs, "/data/config.txt")
	require.NoError(t, err)
	assert.Equal(t, "garage\x00hunter2\x00https://solar.example.org\x00token\x00", string(raw))
}

func TestLoad_NotConfigured(t *testing.T) {
	s := New(afero.NewMemMapFs(), "/", logger.Nop())

	_, err := s.Load()

	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestInit_WindowElapsesKeepsConfig(t *testing.T) {
	fs := afero.NewMemMapFs()
	s := New(fs, "/", logger.Nop())
	require.NoError(t, s.Save(creds))
	led := &fakeBlinker{}

	got, cleared, err := s.Init(context.Background(), time.Millisecond, led)

	require.NoError(t, err)
	assert.False(t, cleared)
	assert.Equal(t, creds, got)
	assert.Equal(t, []time.Duration{100 * time.Millisecond}, led.blinks)
	assert.Equal(t, []bool{true}, led.steady)
	exists, _ := afero.Exists(fs, "/reset-config.txt")
	assert.False(t, exists)
}

func TestInit_InterruptedWindowClearsOnNextBoot(t *testing.T) {
	fs := afero.NewMemMapFs()
	s := New(fs, "/", logger.Nop())
	require.NoError(t, s.Save(creds))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err := s.Init(ctx, time.Hour, &fakeBlinker{})
	require.ErrorIs(t, err, context.Canceled)

	exists, _ := afero.Exists(fs, "/reset-config.txt")
	require.True(t, exists)

	led := &fakeBlinker{}
	_, cleared, err := s.Init(context.Background(), time.Millisecond, led)

	assert.True(t, cleared)
	assert.ErrorIs(t, err, ErrNotConfigured)
	assert.Empty(t, led.blinks)
}

func TestSave_RemovesSentinel(t *testing.T) {
	fs := afero.NewMemMapFs()
	s := New(fs, "/", logger.Nop())
	require.NoError(t, afero.WriteFile(fs, "/reset-config.txt", nil, 0o644))

	require.NoError(t, s.Save(creds))

	exists, _ := afero.Exists(fs, "/reset-config.txt")
	assert.False(t, exists)
	_, cleared, err := s.Init(context.Background(), time.Millisecond, nil)
	require.NoError(t, err)
	assert.False(t, cleared)
}

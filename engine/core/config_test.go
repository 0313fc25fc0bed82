package core

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `
[window]
name = "stats"
width = 640
height = 480

[renderer]
clear_color = [0.1, 0.2, 0.3, 1.0]
present_mode = "mailbox"
frames_in_flight = 2
fence_timeout = "500ms"
extent_policy = "maximum"

[ui]
font = "fonts/mono.fnt"

[log]
level = "debug"
`

func TestParseConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, ParseConfig([]byte(sampleConfig), cfg))

	assert.Equal(t, "stats", cfg.Window.Name)
	assert.Equal(t, uint32(640), cfg.Window.Width)
	assert.Equal(t, uint32(480), cfg.Window.Height)
	// Unset keys keep their defaults.
	assert.Equal(t, uint32(100), cfg.Window.X)
	assert.Equal(t, "b8g8r8a8_unorm", cfg.Renderer.SurfaceFormat)
	assert.Equal(t, uint32(4096), cfg.Renderer.MaxDrawCommands)

	assert.Equal(t, [4]float32{0.1, 0.2, 0.3, 1.0}, cfg.Renderer.ClearColor)
	assert.Equal(t, "mailbox", cfg.Renderer.PresentMode)
	assert.Equal(t, uint32(2), cfg.Renderer.FramesInFlight)
	assert.Equal(t, Duration(500*time.Millisecond), cfg.Renderer.FenceTimeout)
	assert.Equal(t, "maximum", cfg.Renderer.ExtentPolicy)
	assert.Equal(t, "fonts/mono.fnt", cfg.UI.Font)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"zero width", func(c *Config) { c.Window.Width = 0 }},
		{"unknown present mode", func(c *Config) { c.Renderer.PresentMode = "vsync" }},
		{"unknown extent policy", func(c *Config) { c.Renderer.ExtentPolicy = "largest" }},
		{"no frames in flight", func(c *Config) { c.Renderer.FramesInFlight = 0 }},
		{"negative timeout", func(c *Config) { c.Renderer.FenceTimeout = Duration(-time.Second) }},
		{"clear color out of range", func(c *Config) { c.Renderer.ClearColor[2] = 1.5 }},
		{"bad log level", func(c *Config) { c.Log.Level = "chatty" }},
	}
	require.NoError(t, DefaultConfig().Validate())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestParseConfigErrors(t *testing.T) {
	assert.Error(t, ParseConfig([]byte("[renderer\n"), DefaultConfig()))
	assert.Error(t, ParseConfig([]byte("[renderer]\nfence_timeout = \"soon\"\n"), DefaultConfig()))
	assert.Error(t, ParseConfig([]byte("[renderer]\npresent_mode = \"vsync\"\n"), DefaultConfig()))
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()

	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)

	cfg, err = LoadConfig(filepath.Join(dir, "missing.toml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)

	path := filepath.Join(dir, "overlay.toml")
	require.NoError(t, os.WriteFile(path, []byte(sampleConfig), 0o644))
	cfg, err = LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "stats", cfg.Window.Name)

	require.NoError(t, os.WriteFile(path, []byte("[window]\nwidth = 0\n"), 0o644))
	_, err = LoadConfig(path)
	assert.Error(t, err)
}

func TestDurationText(t *testing.T) {
	var d Duration
	require.NoError(t, d.UnmarshalText([]byte("1m30s")))
	assert.Equal(t, Duration(90*time.Second), d)

	text, err := d.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "1m30s", string(text))
}

package core

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Duration is a time.Duration that reads from TOML strings such as "2s".
type Duration time.Duration

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

type WindowConfig struct {
	// The application name used in windowing.
	Name string `toml:"name"`
	// Window starting position x axis.
	X uint32 `toml:"x"`
	// Window starting position y axis.
	Y uint32 `toml:"y"`
	// Window starting width.
	Width uint32 `toml:"width"`
	// Window starting height.
	Height uint32 `toml:"height"`
}

type RendererConfig struct {
	// RGBA color the render pass clears to.
	ClearColor [4]float32 `toml:"clear_color"`
	// immediate, mailbox, fifo or fifo_relaxed. Falls back to fifo.
	PresentMode string `toml:"present_mode"`
	// Preferred swapchain format, e.g. b8g8r8a8_unorm.
	SurfaceFormat string `toml:"surface_format"`
	// Requested swapchain images. 0 uses the surface minimum.
	ImageCount uint32 `toml:"image_count"`
	// Number of fence/semaphore/command buffer sets cycled by the frame loop.
	FramesInFlight uint32 `toml:"frames_in_flight"`
	// Upper bound for the per-frame fence wait. 0 waits forever.
	FenceTimeout Duration `toml:"fence_timeout"`
	// current or maximum.
	ExtentPolicy string `toml:"extent_policy"`
	// Enable the Khronos validation layer.
	Validation bool `toml:"validation"`
	// Scratch budget of the overlay encoder, in draw commands per frame.
	MaxDrawCommands uint32 `toml:"max_draw_commands"`
}

type LogConfig struct {
	Level string `toml:"level"`
}

type UIConfig struct {
	// AngelCode .fnt descriptor for overlay text. Empty uses the built-in 7x13 face.
	Font string `toml:"font"`
}

type Config struct {
	Window   WindowConfig   `toml:"window"`
	Renderer RendererConfig `toml:"renderer"`
	UI       UIConfig       `toml:"ui"`
	Log      LogConfig      `toml:"log"`
}

func DefaultConfig() *Config {
	return &Config{
		Window: WindowConfig{
			Name:   "Anima Overlay",
			X:      100,
			Y:      100,
			Width:  1280,
			Height: 720,
		},
		Renderer: RendererConfig{
			ClearColor:      [4]float32{0.0, 0.0, 1.0, 1.0},
			PresentMode:     "fifo",
			SurfaceFormat:   "b8g8r8a8_unorm",
			ImageCount:      0,
			FramesInFlight:  1,
			FenceTimeout:    Duration(2 * time.Second),
			ExtentPolicy:    "current",
			Validation:      false,
			MaxDrawCommands: 4096,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// LoadConfig reads a TOML file on top of the defaults. A missing file yields the defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		LogWarn("config file %s not found, using defaults", path)
		return cfg, nil
	}
	if err != nil {
		return nil, err
	}
	if err := ParseConfig(data, cfg); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// ParseConfig decodes data into cfg and validates the result.
func ParseConfig(data []byte, cfg *Config) error {
	if err := toml.Unmarshal(data, cfg); err != nil {
		return err
	}
	return cfg.Validate()
}

func (c *Config) Validate() error {
	if c.Window.Width == 0 || c.Window.Height == 0 {
		return fmt.Errorf("window size must be non-zero, got %dx%d", c.Window.Width, c.Window.Height)
	}
	switch c.Renderer.PresentMode {
	case "immediate", "mailbox", "fifo", "fifo_relaxed":
	default:
		return fmt.Errorf("unknown present_mode %q", c.Renderer.PresentMode)
	}
	switch c.Renderer.ExtentPolicy {
	case "current", "maximum":
	default:
		return fmt.Errorf("unknown extent_policy %q", c.Renderer.ExtentPolicy)
	}
	if c.Renderer.FramesInFlight == 0 {
		return errors.New("frames_in_flight must be at least 1")
	}
	if c.Renderer.FenceTimeout < 0 {
		return errors.New("fence_timeout must not be negative")
	}
	for i, v := range c.Renderer.ClearColor {
		if v < 0 || v > 1 {
			return fmt.Errorf("clear_color[%d] = %v is outside [0,1]", i, v)
		}
	}
	if _, err := ParseLogLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log level: %w", err)
	}
	return nil
}

// Package config handles viewer configuration loading and management.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/Faultbox/xrview/internal/interaction"
	"github.com/Faultbox/xrview/internal/presentation"
)

// ErrInvalidConfig is returned by Validate.
var ErrInvalidConfig = errors.New("invalid config")

// Config holds all viewer settings.
type Config struct {
	Graphics GraphicsConfig `yaml:"graphics"`
	Viewer   ViewerConfig   `yaml:"viewer"`
	XR       XRConfig       `yaml:"xr"`
	Probe    ProbeConfig    `yaml:"probe"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// GraphicsConfig holds display and rendering settings.
type GraphicsConfig struct {
	Width      int  `yaml:"width"`
	Height     int  `yaml:"height"`
	Fullscreen bool `yaml:"fullscreen"`
	VSync      bool `yaml:"vsync"`
}

// Preset is a named model that can be opened without the file picker.
type Preset struct {
	Name string `yaml:"name"`
	Path string `yaml:"path"`
}

// ViewerConfig holds model viewer settings.
type ViewerConfig struct {
	InitialMode   presentation.Mode `yaml:"initial_mode"`
	InitialModel  string            `yaml:"initial_model"`
	Presets       []Preset          `yaml:"presets"`
	MaxFileSizeMB int               `yaml:"max_file_size_mb"`
	IdleSway      bool              `yaml:"idle_sway"` // Desktop idle rotation
}

// XRConfig holds immersive session settings.
type XRConfig struct {
	BridgeEnabled  bool             `yaml:"bridge_enabled"`
	BridgeAddr     string           `yaml:"bridge_addr"`
	PrimaryHand    interaction.Hand `yaml:"primary_hand"`
	FloatAmplitude float32          `yaml:"float_amplitude"`
	EmulateOnMouse bool             `yaml:"emulate_on_mouse"` // Mouse drives the controller when no bridge is connected
}

// ProbeConfig holds capability probe settings.
type ProbeConfig struct {
	Timeout     time.Duration `yaml:"timeout"`
	DeviceGlob  string        `yaml:"device_glob"`
	RunOnLaunch bool          `yaml:"run_on_launch"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Graphics: GraphicsConfig{
			Width:  1280,
			Height: 720,
			VSync:  true,
		},
		Viewer: ViewerConfig{
			InitialMode:   presentation.Desktop,
			MaxFileSizeMB: 50,
			IdleSway:      true,
		},
		XR: XRConfig{
			BridgeEnabled:  false,
			BridgeAddr:     "127.0.0.1:8787",
			PrimaryHand:    interaction.Right,
			FloatAmplitude: 0.002,
			EmulateOnMouse: true,
		},
		Probe: ProbeConfig{
			Timeout:     3 * time.Second,
			DeviceGlob:  "/dev/video*",
			RunOnLaunch: true,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// MaxFileSize returns the model size limit in bytes.
func (c *Config) MaxFileSize() int64 {
	return int64(c.Viewer.MaxFileSizeMB) << 20
}

// Validate reports the first setting that cannot be used.
func (c *Config) Validate() error {
	switch {
	case c.Graphics.Width <= 0 || c.Graphics.Height <= 0:
		return fmt.Errorf("%w: window size %dx%d", ErrInvalidConfig, c.Graphics.Width, c.Graphics.Height)
	case c.Viewer.MaxFileSizeMB <= 0:
		return fmt.Errorf("%w: max_file_size_mb must be positive", ErrInvalidConfig)
	case c.XR.PrimaryHand != interaction.Left && c.XR.PrimaryHand != interaction.Right:
		return fmt.Errorf("%w: primary_hand %q", ErrInvalidConfig, c.XR.PrimaryHand)
	case c.XR.BridgeEnabled && c.XR.BridgeAddr == "":
		return fmt.Errorf("%w: bridge_addr required when bridge is enabled", ErrInvalidConfig)
	case c.Probe.Timeout <= 0:
		return fmt.Errorf("%w: probe timeout must be positive", ErrInvalidConfig)
	}
	for _, p := range c.Viewer.Presets {
		if p.Name == "" || p.Path == "" {
			return fmt.Errorf("%w: preset needs name and path", ErrInvalidConfig)
		}
	}
	return nil
}

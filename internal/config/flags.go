package config

import (
	"flag"

	"github.com/Faultbox/xrview/internal/presentation"
)

var (
	flagConfig     = flag.String("config", "", "Path to config file")
	flagDebug      = flag.Bool("debug", false, "Enable debug logging")
	flagMode       = flag.String("mode", "", "Initial presentation mode (desktop, ar, vr)")
	flagModel      = flag.String("model", "", "OBJ file to open on start")
	flagBridge     = flag.String("bridge", "", "Enable the XR bridge on this address")
	flagFullscreen = flag.Bool("fullscreen", false, "Run in fullscreen mode")
	flagWidth      = flag.Int("width", 0, "Window width")
	flagHeight     = flag.Int("height", 0, "Window height")
)

// ParseFlags parses command-line flags. Call this early in main().
func ParseFlags() {
	flag.Parse()
}

// ConfigPath returns the explicit config path if provided via --config flag.
func ConfigPath() string {
	return *flagConfig
}

// Args returns the non-flag command-line arguments.
func Args() []string {
	return flag.Args()
}

// applyFlags applies CLI flag overrides to the config.
func applyFlags(cfg *Config) error {
	if *flagDebug {
		cfg.Logging.Level = "debug"
	}
	if *flagMode != "" {
		mode, err := presentation.ParseMode(*flagMode)
		if err != nil {
			return err
		}
		cfg.Viewer.InitialMode = mode
	}
	if *flagModel != "" {
		cfg.Viewer.InitialModel = *flagModel
	}
	if *flagBridge != "" {
		cfg.XR.BridgeEnabled = true
		cfg.XR.BridgeAddr = *flagBridge
	}
	if *flagFullscreen {
		cfg.Graphics.Fullscreen = true
	}
	if *flagWidth > 0 {
		cfg.Graphics.Width = *flagWidth
	}
	if *flagHeight > 0 {
		cfg.Graphics.Height = *flagHeight
	}
	return nil
}

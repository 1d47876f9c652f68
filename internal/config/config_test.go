package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Faultbox/xrview/internal/interaction"
	"github.com/Faultbox/xrview/internal/presentation"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Graphics.Width != 1280 || cfg.Graphics.Height != 720 {
		t.Errorf("expected 1280x720, got %dx%d", cfg.Graphics.Width, cfg.Graphics.Height)
	}
	if !cfg.Graphics.VSync {
		t.Error("expected vsync to be true by default")
	}
	if cfg.Viewer.InitialMode != presentation.Desktop {
		t.Errorf("expected desktop mode, got %v", cfg.Viewer.InitialMode)
	}
	if cfg.MaxFileSize() != 50<<20 {
		t.Errorf("expected 50MB limit, got %d", cfg.MaxFileSize())
	}
	if cfg.XR.BridgeEnabled {
		t.Error("expected bridge disabled by default")
	}
	if cfg.XR.PrimaryHand != interaction.Right {
		t.Errorf("expected right hand, got %s", cfg.XR.PrimaryHand)
	}
	if cfg.Probe.Timeout != 3*time.Second {
		t.Errorf("expected probe timeout 3s, got %v", cfg.Probe.Timeout)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("expected log level 'info', got %s", cfg.Logging.Level)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
}

func TestLoadFromFile(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")

	yamlContent := `
graphics:
  width: 1920
  height: 1080
  fullscreen: true
  vsync: false

viewer:
  initial_mode: vr
  max_file_size_mb: 10
  presets:
    - name: teapot
      path: models/teapot.obj

xr:
  bridge_enabled: true
  bridge_addr: "0.0.0.0:9000"
  primary_hand: left

probe:
  timeout: 500ms

logging:
  level: "debug"
  log_file: "xrview.log"
`
	if err := os.WriteFile(configPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg := Default()
	if err := loadFromFile(cfg, configPath); err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Graphics.Width != 1920 || !cfg.Graphics.Fullscreen || cfg.Graphics.VSync {
		t.Errorf("graphics not loaded: %+v", cfg.Graphics)
	}
	if cfg.Viewer.InitialMode != presentation.VR {
		t.Errorf("expected vr mode, got %v", cfg.Viewer.InitialMode)
	}
	if len(cfg.Viewer.Presets) != 1 || cfg.Viewer.Presets[0].Name != "teapot" {
		t.Errorf("presets not loaded: %+v", cfg.Viewer.Presets)
	}
	if !cfg.XR.BridgeEnabled || cfg.XR.BridgeAddr != "0.0.0.0:9000" || cfg.XR.PrimaryHand != interaction.Left {
		t.Errorf("xr not loaded: %+v", cfg.XR)
	}
	if cfg.Probe.Timeout != 500*time.Millisecond {
		t.Errorf("expected probe timeout 500ms, got %v", cfg.Probe.Timeout)
	}
	// Untouched keys keep their defaults.
	if !cfg.Viewer.IdleSway {
		t.Error("idle_sway default lost")
	}
	if cfg.Logging.LogFile != "xrview.log" {
		t.Errorf("expected log file 'xrview.log', got %s", cfg.Logging.LogFile)
	}
}

func TestLoadFromFileInvalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"syntax", "graphics:\n  width: not a number\n  invalid syntax here\n"},
		{"unknown mode", "viewer:\n  initial_mode: holodeck\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			configPath := filepath.Join(t.TempDir(), "invalid.yaml")
			if err := os.WriteFile(configPath, []byte(tt.yaml), 0644); err != nil {
				t.Fatalf("failed to write test config: %v", err)
			}
			if err := loadFromFile(Default(), configPath); err == nil {
				t.Error("expected error loading invalid YAML, got nil")
			}
		})
	}
}

func TestLoadFromFileMissing(t *testing.T) {
	if err := loadFromFile(Default(), "/nonexistent/path/config.yaml"); err == nil {
		t.Error("expected error loading missing file, got nil")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero width", func(c *Config) { c.Graphics.Width = 0 }},
		{"zero file size", func(c *Config) { c.Viewer.MaxFileSizeMB = 0 }},
		{"bad hand", func(c *Config) { c.XR.PrimaryHand = "both" }},
		{"bridge without addr", func(c *Config) { c.XR.BridgeEnabled = true; c.XR.BridgeAddr = "" }},
		{"zero probe timeout", func(c *Config) { c.Probe.Timeout = 0 }},
		{"unnamed preset", func(c *Config) { c.Viewer.Presets = []Preset{{Path: "a.obj"}} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if err := cfg.Validate(); !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("Validate() = %v, want ErrInvalidConfig", err)
			}
		})
	}
}

func TestSaveToRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := Default()
	cfg.Viewer.InitialMode = presentation.AR
	cfg.Viewer.Presets = []Preset{{Name: "cube", Path: "cube.obj"}}

	if err := cfg.SaveTo(path); err != nil {
		t.Fatalf("SaveTo: %v", err)
	}
	loaded := Default()
	if err := loadFromFile(loaded, path); err != nil {
		t.Fatalf("loadFromFile: %v", err)
	}
	if loaded.Viewer.InitialMode != presentation.AR || len(loaded.Viewer.Presets) != 1 {
		t.Errorf("round trip lost values: %+v", loaded.Viewer)
	}
}

func TestConfigDir(t *testing.T) {
	dir := ConfigDir()
	if dir == "" {
		t.Error("ConfigDir returned empty string")
	}
	if !filepath.IsAbs(dir) {
		t.Errorf("ConfigDir should return absolute path, got %s", dir)
	}
}

func TestFindConfigFile(t *testing.T) {
	origDir, _ := os.Getwd()
	defer os.Chdir(origDir)

	tmpDir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(tmpDir, "xdg"))
	os.Chdir(tmpDir)

	if path := findConfigFile(); path != "" {
		t.Errorf("expected empty path when no config exists, got %s", path)
	}

	if err := os.WriteFile(filepath.Join(tmpDir, "xrview.yaml"), []byte("graphics:\n  width: 800\n"), 0644); err != nil {
		t.Fatalf("failed to create test config: %v", err)
	}
	if path := findConfigFile(); path == "" {
		t.Error("expected to find xrview.yaml in current directory")
	}
}

func TestApplyFlags(t *testing.T) {
	tests := []struct {
		name     string
		setup    func()
		verify   func(*testing.T, *Config)
		teardown func()
		wantErr  bool
	}{
		{
			name:  "debug flag",
			setup: func() { *flagDebug = true },
			verify: func(t *testing.T, cfg *Config) {
				if cfg.Logging.Level != "debug" {
					t.Errorf("expected log level 'debug', got %s", cfg.Logging.Level)
				}
			},
			teardown: func() { *flagDebug = false },
		},
		{
			name:  "mode flag",
			setup: func() { *flagMode = "ar" },
			verify: func(t *testing.T, cfg *Config) {
				if cfg.Viewer.InitialMode != presentation.AR {
					t.Errorf("expected ar mode, got %v", cfg.Viewer.InitialMode)
				}
			},
			teardown: func() { *flagMode = "" },
		},
		{
			name:     "bad mode flag",
			setup:    func() { *flagMode = "xr" },
			teardown: func() { *flagMode = "" },
			wantErr:  true,
		},
		{
			name:  "bridge flag",
			setup: func() { *flagBridge = ":9999" },
			verify: func(t *testing.T, cfg *Config) {
				if !cfg.XR.BridgeEnabled || cfg.XR.BridgeAddr != ":9999" {
					t.Errorf("bridge not enabled: %+v", cfg.XR)
				}
			},
			teardown: func() { *flagBridge = "" },
		},
		{
			name: "width and height flags",
			setup: func() {
				*flagWidth = 2560
				*flagHeight = 1440
			},
			verify: func(t *testing.T, cfg *Config) {
				if cfg.Graphics.Width != 2560 || cfg.Graphics.Height != 1440 {
					t.Errorf("expected 2560x1440, got %dx%d", cfg.Graphics.Width, cfg.Graphics.Height)
				}
			},
			teardown: func() {
				*flagWidth = 0
				*flagHeight = 0
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.setup()
			defer tt.teardown()

			cfg := Default()
			err := applyFlags(cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("applyFlags() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.verify != nil {
				tt.verify(t, cfg)
			}
		})
	}
}

func TestLoadPriority(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	yamlContent := "graphics:\n  width: 1600\n  height: 900\n"
	if err := os.WriteFile(configPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	*flagConfig = configPath
	*flagWidth = 1920
	defer func() {
		*flagConfig = ""
		*flagWidth = 0
	}()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if cfg.Graphics.Width != 1920 {
		t.Errorf("expected width 1920 from flag, got %d", cfg.Graphics.Width)
	}
	if cfg.Graphics.Height != 900 {
		t.Errorf("expected height 900 from file, got %d", cfg.Graphics.Height)
	}
}

package config

import (
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default().Validate() error = %v", err)
	}
	if !cfg.MultimaskOutput || cfg.OverlayAlpha != 0.5 || cfg.MarkerRadius != 20 {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if cfg.Overlay() != (color.RGBA{R: 255, A: 255}) {
		t.Errorf("Overlay() = %v", cfg.Overlay())
	}
	if cfg.FrameInterval() != time.Second/30 {
		t.Errorf("FrameInterval() = %v", cfg.FrameInterval())
	}
}

func TestDirUsesXDG(t *testing.T) {
	if os.Getenv("LOCALAPPDATA") != "" {
		t.Skip("windows layout")
	}
	t.Setenv("XDG_CONFIG_HOME", "/xdg")
	dir, err := Dir()
	if err != nil {
		t.Fatal(err)
	}
	if dir != filepath.Join("/xdg", "sam-segmenter") {
		t.Errorf("Dir() = %q", dir)
	}
}

func TestLoadFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yamlDoc := `
config_dir: /opt/sam2/configs
device: cpu
mode: video
overlay_alpha: 0.25
overlay_color: [0, 255, 0]
frame_extensions: [".png"]
request_timeout: 30s
`
	if err := os.WriteFile(path, []byte(yamlDoc), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("SAM_SEGMENTER_MODE", "image")
	t.Setenv("SAM_SEGMENTER_MULTIMASK_OUTPUT", "false")
	t.Setenv("SAM_SEGMENTER_FRAME_EXTENSIONS", ".jpg, .JPEG")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.ConfigDir != "/opt/sam2/configs" || cfg.Device != "cpu" {
		t.Errorf("file values not applied: %+v", cfg)
	}
	if cfg.Mode != "image" || cfg.MultimaskOutput {
		t.Errorf("env overrides not applied: mode=%q multimask=%v", cfg.Mode, cfg.MultimaskOutput)
	}
	if cfg.OverlayAlpha != 0.25 || cfg.Overlay().G != 255 {
		t.Errorf("overlay = %v %v", cfg.OverlayAlpha, cfg.Overlay())
	}
	if len(cfg.FrameExtensions) != 2 || cfg.FrameExtensions[1] != ".JPEG" {
		t.Errorf("frame extensions = %v", cfg.FrameExtensions)
	}
	if cfg.RequestTimeout != 30*time.Second {
		t.Errorf("request timeout = %v", cfg.RequestTimeout)
	}
	// Untouched keys keep their defaults.
	if cfg.MarkerRadius != 20 || cfg.FrameRate != 30 {
		t.Errorf("defaults lost: %+v", cfg)
	}
}

func TestLoadMissing(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	if _, err := Load(""); err != nil {
		t.Fatalf("Load(\"\") with no file error = %v", err)
	}
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("explicit missing path accepted")
	}
}

func TestLoadBadEnv(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("SAM_SEGMENTER_FRAME_RATE", "fast")
	_, err := Load("")
	if err == nil || !strings.Contains(err.Error(), "FRAME_RATE") {
		t.Fatalf("Load() error = %v", err)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := Default()
	cfg.Device = "cpu"
	if err := cfg.Save(path); err != nil {
		t.Fatal(err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Device != "cpu" || loaded.OverlayColor != cfg.OverlayColor {
		t.Errorf("loaded = %+v", loaded)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"device", func(c *Config) { c.Device = "tpu" }},
		{"mode", func(c *Config) { c.Mode = "audio" }},
		{"alpha", func(c *Config) { c.OverlayAlpha = 1.5 }},
		{"frame rate", func(c *Config) { c.FrameRate = 0 }},
		{"log level", func(c *Config) { c.LogLevel = "loud" }},
		{"server", func(c *Config) { c.ServerURL = "" }},
		{"timeout", func(c *Config) { c.RequestTimeout = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Validate() accepted invalid config")
			}
		})
	}
}

// Package config loads application settings from a YAML file with
// SAM_SEGMENTER_* environment overrides.
package config

import (
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"sam-segmenter/internal/logger"
	"sam-segmenter/internal/predictor"
)

const (
	appName    = "sam-segmenter"
	configFile = "config.yaml"
	envPrefix  = "SAM_SEGMENTER_"

	// ServerAuto asks for the inference server to be found over mDNS.
	ServerAuto = "auto"
)

type Config struct {
	ConfigDir       string        `yaml:"config_dir"`
	CheckpointDir   string        `yaml:"checkpoint_dir"`
	ServerURL       string        `yaml:"server_url"`
	Device          string        `yaml:"device"`
	Mode            string        `yaml:"mode"`
	MultimaskOutput bool          `yaml:"multimask_output"`
	OverlayAlpha    float64       `yaml:"overlay_alpha"`
	OverlayColor    [3]uint8      `yaml:"overlay_color,flow"`
	MarkerRadius    int           `yaml:"marker_radius"`
	FrameExtensions []string      `yaml:"frame_extensions,flow"`
	LogLevel        string        `yaml:"log_level"`
	JSONLogs        bool          `yaml:"json_logs"`
	WindowWidth     int           `yaml:"window_width"`
	WindowHeight    int           `yaml:"window_height"`
	FrameRate       int           `yaml:"frame_rate"`
	RequestTimeout  time.Duration `yaml:"request_timeout"`
}

func Default() *Config {
	return &Config{
		ConfigDir:       filepath.Join("sam2", "configs", "sam2.1"),
		CheckpointDir:   "checkpoints",
		ServerURL:       ServerAuto,
		Device:          "gpu",
		Mode:            "image",
		MultimaskOutput: true,
		OverlayAlpha:    0.5,
		OverlayColor:    [3]uint8{255, 0, 0},
		MarkerRadius:    20,
		FrameExtensions: []string{".jpg", ".jpeg"},
		LogLevel:        "info",
		WindowWidth:     1280,
		WindowHeight:    800,
		FrameRate:       30,
		RequestTimeout:  5 * time.Minute,
	}
}

// Dir returns the per-user configuration directory.
func Dir() (string, error) {
	if runtime.GOOS == "windows" {
		if local := os.Getenv("LOCALAPPDATA"); local != "" {
			return filepath.Join(local, appName), nil
		}
	}
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, ".config", appName), nil
}

// DefaultPath returns the configuration file inside Dir.
func DefaultPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, configFile), nil
}

// Load reads path over the defaults and applies environment overrides. A
// missing file at the default location is not an error; an explicit path must exist.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		p, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	case os.IsNotExist(err) && !explicit:
	default:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes cfg to path, creating its directory.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return os.WriteFile(path, data, 0o600)
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := map[string]*string{
		"CONFIG_DIR":     &c.ConfigDir,
		"CHECKPOINT_DIR": &c.CheckpointDir,
		"SERVER_URL":     &c.ServerURL,
		"DEVICE":         &c.Device,
		"MODE":           &c.Mode,
		"LOG_LEVEL":      &c.LogLevel,
	}
	for key, dst := range str {
		if v, ok := lookup(envPrefix + key); ok {
			*dst = v
		}
	}

	bools := map[string]*bool{
		"MULTIMASK_OUTPUT": &c.MultimaskOutput,
		"JSON_LOGS":        &c.JSONLogs,
	}
	for key, dst := range bools {
		if v, ok := lookup(envPrefix + key); ok {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("%s%s: %w", envPrefix, key, err)
			}
			*dst = b
		}
	}

	if v, ok := lookup(envPrefix + "OVERLAY_ALPHA"); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("%sOVERLAY_ALPHA: %w", envPrefix, err)
		}
		c.OverlayAlpha = f
	}
	if v, ok := lookup(envPrefix + "FRAME_RATE"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%sFRAME_RATE: %w", envPrefix, err)
		}
		c.FrameRate = n
	}
	if v, ok := lookup(envPrefix + "REQUEST_TIMEOUT"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%sREQUEST_TIMEOUT: %w", envPrefix, err)
		}
		c.RequestTimeout = d
	}
	if v, ok := lookup(envPrefix + "FRAME_EXTENSIONS"); ok {
		c.FrameExtensions = splitList(v)
	}
	return nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func (c *Config) Validate() error {
	if _, err := predictor.ParseDevice(c.Device); err != nil {
		return err
	}
	if _, err := predictor.ParseMode(c.Mode); err != nil {
		return err
	}
	if _, err := logger.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	if c.OverlayAlpha < 0 || c.OverlayAlpha > 1 {
		return fmt.Errorf("overlay_alpha %v outside [0,1]", c.OverlayAlpha)
	}
	if c.FrameRate <= 0 {
		return fmt.Errorf("frame_rate must be positive, got %d", c.FrameRate)
	}
	if c.MarkerRadius < 0 {
		return fmt.Errorf("marker_radius must not be negative, got %d", c.MarkerRadius)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("request_timeout must be positive, got %s", c.RequestTimeout)
	}
	if c.ServerURL == "" {
		return fmt.Errorf("server_url is empty; use %q for discovery", ServerAuto)
	}
	return nil
}

// PredictorMode and PredictorDevice assume Validate has passed.
func (c *Config) PredictorMode() predictor.Mode {
	m, _ := predictor.ParseMode(c.Mode)
	return m
}

func (c *Config) PredictorDevice() predictor.Device {
	d, _ := predictor.ParseDevice(c.Device)
	return d
}

func (c *Config) Overlay() color.RGBA {
	return color.RGBA{R: c.OverlayColor[0], G: c.OverlayColor[1], B: c.OverlayColor[2], A: 255}
}

// FrameInterval is the update loop period.
func (c *Config) FrameInterval() time.Duration {
	return time.Second / time.Duration(c.FrameRate)
}

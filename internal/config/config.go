package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/treykane/pixview/internal/logging"
	"github.com/treykane/pixview/internal/raster"
)

var log = logging.New("config")

const (
	configDirName  = ".pixview"
	configFileName = "config.json"

	// EnvConfigPath overrides the config file location.
	EnvConfigPath = "PIXVIEW_CONFIG"
)

var ErrNotConfigured = errors.New("pixview is not configured")

// Watch modes.
const (
	WatchPoll   = "poll"
	WatchNotify = "notify"
	WatchOff    = "off"
)

// Config stores user-defined pixview settings.
type Config struct {
	Background     string `json:"background"`
	TickIntervalMS int    `json:"tick_interval_ms"`
	WindowWidth    int    `json:"window_width"`
	WindowHeight   int    `json:"window_height"`
	WatchMode      string `json:"watch_mode"`
	LogFile        string `json:"log_file,omitempty"`
	GlamourStyle   string `json:"glamour_style"`
}

// Default returns the settings used when no config file exists.
func Default() Config {
	return Config{
		Background:     "#282c34",
		TickIntervalMS: 30,
		WindowWidth:    500,
		WindowHeight:   500,
		WatchMode:      WatchPoll,
		GlamourStyle:   "dark",
	}
}

// TickInterval returns the reload check interval.
func (c Config) TickInterval() time.Duration {
	return time.Duration(c.TickIntervalMS) * time.Millisecond
}

// BackgroundColor returns the parsed letterbox color.
func (c Config) BackgroundColor() (raster.Color, error) {
	return raster.ParseColor(c.Background)
}

// ConfigPath returns the configuration file path.
func ConfigPath() (string, error) {
	if path := strings.TrimSpace(os.Getenv(EnvConfigPath)); path != "" {
		return expandHome(path)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, configDirName, configFileName), nil
}

// Exists reports whether the config file exists.
func Exists() (bool, error) {
	path, err := ConfigPath()
	if err != nil {
		return false, err
	}
	_, err = os.Stat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, fmt.Errorf("stat config path: %w", err)
}

// Load reads and validates the saved configuration. Fields missing from the
// file keep their default values.
func Load() (Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return Config{}, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Config{}, ErrNotConfigured
		}
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	cfg := Default()
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.normalize(); err != nil {
		return Config{}, err
	}
	log.Debug("loaded config", "path", path)
	return cfg, nil
}

// Save writes configuration to disk.
func Save(cfg Config) error {
	if err := cfg.normalize(); err != nil {
		return err
	}

	path, err := ConfigPath()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	data = append(data, '\n')

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	log.Info("saved config", "path", path)
	return nil
}

// Validate reports the first invalid field.
func (c Config) Validate() error {
	if _, err := c.BackgroundColor(); err != nil {
		return fmt.Errorf("invalid background: %w", err)
	}
	if c.TickIntervalMS <= 0 {
		return fmt.Errorf("invalid tick_interval_ms: %d must be positive", c.TickIntervalMS)
	}
	if c.WindowWidth <= 0 || c.WindowHeight <= 0 {
		return fmt.Errorf("invalid window size: %dx%d", c.WindowWidth, c.WindowHeight)
	}
	switch c.WatchMode {
	case WatchPoll, WatchNotify, WatchOff:
	default:
		return fmt.Errorf("invalid watch_mode: %q (want %s, %s or %s)", c.WatchMode, WatchPoll, WatchNotify, WatchOff)
	}
	switch c.GlamourStyle {
	case "dark", "light", "notty", "auto":
	default:
		return fmt.Errorf("invalid glamour_style: %q", c.GlamourStyle)
	}
	return nil
}

func (c *Config) normalize() error {
	c.WatchMode = strings.ToLower(strings.TrimSpace(c.WatchMode))
	if c.WatchMode == "" {
		c.WatchMode = WatchPoll
	}
	c.GlamourStyle = strings.ToLower(strings.TrimSpace(c.GlamourStyle))
	if c.GlamourStyle == "" {
		c.GlamourStyle = "dark"
	}
	c.Background = strings.TrimSpace(c.Background)

	if c.LogFile = strings.TrimSpace(c.LogFile); c.LogFile != "" {
		path, err := expandHome(c.LogFile)
		if err != nil {
			return fmt.Errorf("invalid log_file: %w", err)
		}
		c.LogFile = filepath.Clean(path)
	}
	return c.Validate()
}

func expandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	if path == "~" {
		return home, nil
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~/")), nil
}

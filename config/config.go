package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/ftahirops/xwake/internal/log"
	"github.com/ftahirops/xwake/model"
)

// Config holds user-configurable defaults and integrations.
type Config struct {
	Detection   model.DetectionConfig `yaml:"detection"`
	Source      string                `yaml:"source"`
	HistorySize int                   `yaml:"history_size"`
	RecordPath  string                `yaml:"record_path,omitempty"`
	DataDir     string                `yaml:"data_dir"`
	LogLevel    string                `yaml:"log_level"`
	Alerts      AlertConfig           `yaml:"alerts"`
	Web         WebConfig             `yaml:"web"`
	Database    DatabaseConfig        `yaml:"database"`
	UI          UIConfig              `yaml:"ui"`
}

type AlertConfig struct {
	Webhook     string `yaml:"webhook,omitempty"`
	Command     string `yaml:"command,omitempty"`
	SoundFile   string `yaml:"sound_file,omitempty"`
	SoundPlayer string `yaml:"sound_player,omitempty"`
	MQTTBroker  string `yaml:"mqtt_broker,omitempty"`
	MQTTTopic   string `yaml:"mqtt_topic,omitempty"`
}

type WebConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

type UIConfig struct {
	DefaultPage string `yaml:"default_page"`
}

type DatabaseConfig struct {
	URL string `yaml:"url,omitempty"`
}

// Default returns a config with sensible defaults.
func Default() Config {
	return Config{
		Detection: model.DetectionConfig{
			EARThreshold:      0.25,
			ConsecutiveFrames: 20,
		},
		Source:      "-",
		HistorySize: 600,
		DataDir:     defaultDataDir(),
		LogLevel:    "info",
		Alerts: AlertConfig{
			SoundPlayer: "aplay",
			MQTTTopic:   "xwake/alarms",
		},
		Web: WebConfig{
			Enabled: false,
			Addr:    "127.0.0.1:8765",
		},
		UI: UIConfig{DefaultPage: "overview"},
	}
}

func defaultDataDir() string {
	dir := os.Getenv("XDG_STATE_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "xwake-data"
		}
		dir = filepath.Join(home, ".local", "state")
	}
	return filepath.Join(dir, "xwake")
}

// Path returns ~/.config/xwake/config.yaml (or XDG_CONFIG_HOME).
// Returns empty string if home directory cannot be determined.
func Path() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "xwake", "config.yaml")
}

// Load loads config from the default path; returns defaults on error.
func Load() Config {
	p := Path()
	if p == "" {
		return Default()
	}
	cfg, err := LoadFrom(p)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn("config parse error, using defaults", "path", p, "err", err)
	}
	return cfg
}

// LoadFrom reads a YAML config file over the defaults. On error the
// returned config is the defaults.
func LoadFrom(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Default(), fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes the config to the default path.
func Save(cfg Config) error {
	path := Path()
	if path == "" {
		return fmt.Errorf("cannot determine config directory")
	}
	return SaveTo(path, cfg)
}

// SaveTo writes the config to path.
func SaveTo(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}

// ApplyEnv loads an optional .env file from the working directory and
// overlays XWAKE_* variables onto cfg. Malformed numbers are ignored.
func ApplyEnv(cfg *Config) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn("cannot read .env", "err", err)
	}

	if v := os.Getenv("XWAKE_EAR_THRESHOLD"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Detection.EARThreshold = f
		}
	}
	if v := os.Getenv("XWAKE_CONSECUTIVE_FRAMES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Detection.ConsecutiveFrames = n
		}
	}
	if v := os.Getenv("XWAKE_HISTORY_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.HistorySize = n
		}
	}
	setString(&cfg.Source, "XWAKE_SOURCE")
	setString(&cfg.DataDir, "XWAKE_DATA_DIR")
	setString(&cfg.LogLevel, "XWAKE_LOG_LEVEL")
	setString(&cfg.Alerts.Webhook, "XWAKE_WEBHOOK")
	setString(&cfg.Alerts.Command, "XWAKE_ALERT_COMMAND")
	setString(&cfg.Alerts.SoundFile, "XWAKE_SOUND_FILE")
	setString(&cfg.Alerts.SoundPlayer, "XWAKE_SOUND_PLAYER")
	setString(&cfg.Alerts.MQTTBroker, "XWAKE_MQTT_BROKER")
	setString(&cfg.Alerts.MQTTTopic, "XWAKE_MQTT_TOPIC")
	setString(&cfg.Web.Addr, "XWAKE_WEB_ADDR")
	setString(&cfg.Database.URL, "XWAKE_DATABASE_URL")
	if v := os.Getenv("XWAKE_WEB_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Web.Enabled = b
		}
	}
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

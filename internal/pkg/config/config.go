package config

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v2"
)

// Config is loaded once at process start and passed by value to the
// components that need it.
type Config struct {
	Thresholds ThresholdConfig `yaml:"thresholds"`
	Retention  RetentionConfig `yaml:"retention"`
	Query      QueryConfig     `yaml:"query"`
	HTTP       HTTPConfig      `yaml:"http"`
	Serial     SerialConfig    `yaml:"serial"`
	MQTT       MQTTConfig      `yaml:"mqtt"`
	Database   DatabaseConfig  `yaml:"database"`
}

// ThresholdConfig holds the TDS quality boundaries in ppm. Values at
// or above Moderate classify as "Poor".
type ThresholdConfig struct {
	Good     float64 `yaml:"good"`
	Moderate float64 `yaml:"moderate"`
}

type RetentionConfig struct {
	Days int `yaml:"days"`
	// IntervalHours enables the in-process janitor when > 0. Leave
	// zero to schedule pruning externally.
	IntervalHours int `yaml:"interval_hours"`
}

type QueryConfig struct {
	DefaultLimit int `yaml:"default_limit"`
	ExportLimit  int `yaml:"export_limit"`
}

type HTTPConfig struct {
	Host string `yaml:"host"`
	Port string `yaml:"port"`
}

type SerialConfig struct {
	Port     string `yaml:"port"`
	BaudRate int    `yaml:"baudrate"`
}

type MQTTConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Broker   string `yaml:"broker"`
	Topic    string `yaml:"topic"`
	ClientID string `yaml:"client_id"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

type DatabaseConfig struct {
	Driver string `yaml:"driver"`
	// Path is the sqlite database file.
	Path string `yaml:"path"`

	Host     string `yaml:"host"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	SslMode  string `yaml:"sslmode"`
}

func defaults() Config {
	return Config{
		Thresholds: ThresholdConfig{Good: 300, Moderate: 600},
		Retention:  RetentionConfig{Days: 30},
		Query:      QueryConfig{DefaultLimit: 1000, ExportLimit: 100000},
		HTTP:       HTTPConfig{Host: "0.0.0.0", Port: "5000"},
		Serial:     SerialConfig{Port: "/dev/ttyUSB0", BaudRate: 115200},
		MQTT:       MQTTConfig{Topic: "tds/readings", ClientID: "tds-monitor"},
		Database:   DatabaseConfig{Driver: "sqlite", Path: "data/readings.db", SslMode: "disable"},
	}
}

func Load(r io.Reader) (Config, error) {
	cfg := defaults()

	b, err := io.ReadAll(r)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read configuration: %w", err)
	}

	err = yaml.Unmarshal(b, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("failed to parse configuration: %w", err)
	}

	if cfg.Thresholds.Good > cfg.Thresholds.Moderate {
		return Config{}, fmt.Errorf("threshold good (%.1f) must not exceed moderate (%.1f)", cfg.Thresholds.Good, cfg.Thresholds.Moderate)
	}

	return cfg, nil
}

// LoadFromFile loads config.yaml, falling back to defaults when the
// file does not exist.
func LoadFromFile(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return defaults(), nil
		}
		return Config{}, fmt.Errorf("failed to open configuration file %s: %w", path, err)
	}
	defer f.Close()

	return Load(f)
}

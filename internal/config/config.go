// Package config loads the hub configuration: built-in defaults, then an
// optional YAML file, then environment overrides, then validation.
package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/luki/iothub/internal/fleet"
	"github.com/luki/iothub/internal/telemetry"
)

// ErrInvalidConfig is wrapped by every validation failure that is not a
// roster problem. Roster problems wrap fleet.ErrInvalidRoster.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config represents the complete hub configuration.
type Config struct {
	Simulation SimulationConfig `yaml:"simulation"`
	History    HistoryConfig    `yaml:"history"`
	Devices    []fleet.Seed     `yaml:"devices"`
	Log        LogConfig        `yaml:"log"`
	Metrics    MetricsConfig    `yaml:"metrics"`
	Export     ExportConfig     `yaml:"export"`
}

// SimulationConfig holds the tick and random walk settings.
type SimulationConfig struct {
	Interval           time.Duration `yaml:"interval"`
	MinTemp            float64       `yaml:"min_temp"`
	MaxTemp            float64       `yaml:"max_temp"`
	MaxStep            float64       `yaml:"max_step"`
	OfflineProbability float64       `yaml:"offline_probability"`
	Seed               int64         `yaml:"seed"` // 0 seeds from the clock
}

// HistoryConfig holds the rolling buffer settings.
type HistoryConfig struct {
	Capacity int `yaml:"capacity"`
}

// LogConfig holds the log file settings.
type LogConfig struct {
	Path       string `yaml:"path"`
	Level      string `yaml:"level"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
}

// MetricsConfig holds the optional Prometheus endpoint. An empty address
// disables it.
type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

// ExportConfig holds the CSV export directory.
type ExportConfig struct {
	Dir string `yaml:"dir"`
}

// Load builds the configuration. path may be empty; IOTHUB_CONFIG is used
// in that case, and if that is unset too only defaults and environment
// overrides apply.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv("IOTHUB_CONFIG")
	}
	if path != "" {
		if err := loadFromFile(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load config from %s: %w", path, err)
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the reference configuration.
func Default() *Config {
	devices := make([]fleet.Seed, len(fleet.DefaultSeeds))
	copy(devices, fleet.DefaultSeeds)

	return &Config{
		Simulation: SimulationConfig{
			Interval:           2 * time.Second,
			MinTemp:            fleet.DefaultBounds.Min,
			MaxTemp:            fleet.DefaultBounds.Max,
			MaxStep:            1.0,
			OfflineProbability: 0.05,
		},
		History: HistoryConfig{
			Capacity: 20,
		},
		Devices: devices,
		Log: LogConfig{
			Path:       "iothub.log",
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
		Export: ExportConfig{
			Dir: ".",
		},
	}
}

func loadFromFile(cfg *Config, filename string) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("IOTHUB_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%w: IOTHUB_INTERVAL %q: %v", ErrInvalidConfig, v, err)
		}
		cfg.Simulation.Interval = d
	}
	if v := os.Getenv("IOTHUB_OFFLINE_PROBABILITY"); v != "" {
		p, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("%w: IOTHUB_OFFLINE_PROBABILITY %q: %v", ErrInvalidConfig, v, err)
		}
		cfg.Simulation.OfflineProbability = p
	}
	if v := os.Getenv("IOTHUB_SEED"); v != "" {
		seed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("%w: IOTHUB_SEED %q: %v", ErrInvalidConfig, v, err)
		}
		cfg.Simulation.Seed = seed
	}
	if v := os.Getenv("IOTHUB_LOG_PATH"); v != "" {
		cfg.Log.Path = v
	}
	if v := os.Getenv("IOTHUB_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v, ok := os.LookupEnv("IOTHUB_METRICS_ADDR"); ok {
		cfg.Metrics.Addr = v
	}
	if v := os.Getenv("IOTHUB_EXPORT_DIR"); v != "" {
		cfg.Export.Dir = v
	}
	return nil
}

// Validate checks every setting and the device roster.
func (c *Config) Validate() error {
	s := c.Simulation
	for _, f := range []struct {
		key string
		v   float64
	}{
		{"simulation.min_temp", s.MinTemp},
		{"simulation.max_temp", s.MaxTemp},
		{"simulation.max_step", s.MaxStep},
		{"simulation.offline_probability", s.OfflineProbability},
	} {
		if math.IsNaN(f.v) || math.IsInf(f.v, 0) {
			return fmt.Errorf("%w: %s must be a finite number, got %v", ErrInvalidConfig, f.key, f.v)
		}
	}
	if s.Interval <= 0 {
		return fmt.Errorf("%w: simulation.interval must be positive, got %s", ErrInvalidConfig, s.Interval)
	}
	if s.MinTemp >= s.MaxTemp {
		return fmt.Errorf("%w: simulation.min_temp %.1f must be below max_temp %.1f", ErrInvalidConfig, s.MinTemp, s.MaxTemp)
	}
	if s.MaxStep <= 0 {
		return fmt.Errorf("%w: simulation.max_step must be positive, got %v", ErrInvalidConfig, s.MaxStep)
	}
	if s.OfflineProbability < 0 || s.OfflineProbability > 1 {
		return fmt.Errorf("%w: simulation.offline_probability %v outside [0, 1]", ErrInvalidConfig, s.OfflineProbability)
	}
	if c.History.Capacity < 1 {
		return fmt.Errorf("%w: history.capacity must be at least 1, got %d", ErrInvalidConfig, c.History.Capacity)
	}

	validLevels := []string{"debug", "info", "warn", "error"}
	if !contains(validLevels, strings.ToLower(c.Log.Level)) {
		return fmt.Errorf("%w: invalid log level %s, must be one of: %v", ErrInvalidConfig, c.Log.Level, validLevels)
	}

	if _, err := c.Roster(); err != nil {
		return err
	}
	return nil
}

// Bounds returns the temperature clamp interval.
func (c *Config) Bounds() fleet.Bounds {
	return fleet.Bounds{Min: c.Simulation.MinTemp, Max: c.Simulation.MaxTemp}
}

// Roster validates and returns the configured device roster.
func (c *Config) Roster() (fleet.Roster, error) {
	return fleet.NewRoster(c.Devices, c.Bounds())
}

// Hub returns the scheduler and simulation settings.
func (c *Config) Hub() telemetry.Config {
	return telemetry.Config{
		Interval: c.Simulation.Interval,
		Capacity: c.History.Capacity,
		Params: telemetry.SimParams{
			Bounds:             c.Bounds(),
			MaxStep:            c.Simulation.MaxStep,
			OfflineProbability: c.Simulation.OfflineProbability,
		},
	}
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}

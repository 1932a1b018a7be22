// Package config loads ncpflash settings from a YAML file and the
// environment. Command-line flags are applied on top by the CLI.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the complete ncpflash configuration.
type Config struct {
	// Port is the serial port of the target bootloader
	Port string `yaml:"port"`

	// Interface is the bridge interface wired to the target (0 = ECI,
	// 1 = SCI), -1 when unset
	Interface int `yaml:"interface"`

	// Activate runs the GPIO bootloader activation before flashing
	Activate bool `yaml:"activate"`

	// Checksum is the XMODEM trailer: "crc16" or "sum8"
	Checksum string `yaml:"checksum"`

	Timeouts TimeoutConfig `yaml:"timeouts"`
	Logger   LoggerConfig  `yaml:"logger"`
}

// TimeoutConfig holds the serial protocol timeouts.
type TimeoutConfig struct {
	Sentinel time.Duration `yaml:"sentinel"`
	Line     time.Duration `yaml:"line"`
	Ack      time.Duration `yaml:"ack"`
}

// LoggerConfig holds logging settings.
type LoggerConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Defaults returns the built-in configuration.
func Defaults() *Config {
	return &Config{
		Interface: -1,
		Activate:  true,
		Checksum:  "crc16",
		Timeouts: TimeoutConfig{
			Sentinel: 10 * time.Second,
			Line:     2 * time.Second,
			Ack:      10 * time.Second,
		},
		Logger: LoggerConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
	}
}

// Load reads a YAML config file and applies env var overrides.
// An empty path or a missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
		case err != nil:
			return nil, fmt.Errorf("read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config: %w", err)
			}
		}
	}

	ApplyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// ApplyEnvOverrides maps NCPFLASH_* env vars to config fields.
func ApplyEnvOverrides(cfg *Config) {
	if v := os.Getenv("NCPFLASH_PORT"); v != "" {
		cfg.Port = v
	}
	if v := os.Getenv("NCPFLASH_INTERFACE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Interface = n
		}
	}
	if v := os.Getenv("NCPFLASH_LOG_LEVEL"); v != "" {
		cfg.Logger.Level = v
	}
}

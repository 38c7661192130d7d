// Package config loads the bridge's optional JSON configuration file.
// Command-line flags take precedence over values read here.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Defaults applied by the Get* accessors when a field is unset.
const (
	DefaultListen         = ":8000"
	DefaultBaudRate       = 9600
	DefaultReadTimeout    = time.Second
	DefaultPollInterval   = 50 * time.Millisecond
	DefaultSettleDelay    = 2 * time.Second
	DefaultReopenInterval = time.Duration(0)
)

// Config is the root configuration. Every field is optional; durations are
// strings like "50ms" or "2s".
type Config struct {
	SerialPort     *string `json:"serial_port,omitempty"`
	BaudRate       *int    `json:"baud_rate,omitempty"`
	ReadTimeout    *string `json:"read_timeout,omitempty"`
	PollInterval   *string `json:"poll_interval,omitempty"`
	SettleDelay    *string `json:"settle_delay,omitempty"`
	ReopenInterval *string `json:"reopen_interval,omitempty"`
	Listen         *string `json:"listen,omitempty"`
	Fixture        *string `json:"fixture,omitempty"`
	Verbose        *bool   `json:"verbose,omitempty"`
}

// Load reads a Config from a JSON file. The file must have a .json extension
// and be under 1MB. Fields omitted from the file keep their defaults.
func Load(path string) (*Config, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks that the configuration values are valid.
func (c *Config) Validate() error {
	if c.BaudRate != nil && *c.BaudRate <= 0 {
		return fmt.Errorf("baud_rate must be positive, got %d", *c.BaudRate)
	}

	durations := []struct {
		name  string
		value *string
	}{
		{"read_timeout", c.ReadTimeout},
		{"poll_interval", c.PollInterval},
		{"settle_delay", c.SettleDelay},
		{"reopen_interval", c.ReopenInterval},
	}
	for _, d := range durations {
		if d.value == nil || *d.value == "" {
			continue
		}
		parsed, err := time.ParseDuration(*d.value)
		if err != nil {
			return fmt.Errorf("invalid %s '%s': %w", d.name, *d.value, err)
		}
		if parsed < 0 {
			return fmt.Errorf("%s must not be negative, got %s", d.name, *d.value)
		}
	}
	return nil
}

func durationOr(s *string, def time.Duration) time.Duration {
	if s == nil || *s == "" {
		return def
	}
	d, err := time.ParseDuration(*s)
	if err != nil {
		return def
	}
	return d
}

// GetSerialPort returns the serial device path, or "" when unset.
func (c *Config) GetSerialPort() string {
	if c.SerialPort == nil {
		return ""
	}
	return *c.SerialPort
}

// GetBaudRate returns the baud_rate value or the default.
func (c *Config) GetBaudRate() int {
	if c.BaudRate == nil {
		return DefaultBaudRate
	}
	return *c.BaudRate
}

// GetReadTimeout returns the serial read timeout.
func (c *Config) GetReadTimeout() time.Duration {
	return durationOr(c.ReadTimeout, DefaultReadTimeout)
}

// GetPollInterval returns the pause between line reads.
func (c *Config) GetPollInterval() time.Duration {
	return durationOr(c.PollInterval, DefaultPollInterval)
}

// GetSettleDelay returns the wait after opening the port.
func (c *Config) GetSettleDelay() time.Duration {
	return durationOr(c.SettleDelay, DefaultSettleDelay)
}

// GetReopenInterval returns the reopen delay; zero disables reopening.
func (c *Config) GetReopenInterval() time.Duration {
	return durationOr(c.ReopenInterval, DefaultReopenInterval)
}

// GetListen returns the HTTP listen address.
func (c *Config) GetListen() string {
	if c.Listen == nil || *c.Listen == "" {
		return DefaultListen
	}
	return *c.Listen
}

// GetFixture returns the dev-mode fixture path, or "" when unset.
func (c *Config) GetFixture() string {
	if c.Fixture == nil {
		return ""
	}
	return *c.Fixture
}

// GetVerbose returns the verbose value or false.
func (c *Config) GetVerbose() bool {
	return c.Verbose != nil && *c.Verbose
}

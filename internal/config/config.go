// Package config loads the editor configuration file.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"gieditor/internal/sysex"
)

// Clock sources.
const (
	ClockTimer     = "timer"
	ClockPortAudio = "portaudio"
)

// Config is the editor configuration.
type Config struct {
	DeviceID           uint8         `yaml:"device_id"`
	ModelID            uint32        `yaml:"model_id"`
	Port               string        `yaml:"port"`
	TimeoutTicks       int           `yaml:"timeout_ticks"`
	Clock              string        `yaml:"clock"`
	TickPeriod         time.Duration `yaml:"tick_period"`
	SampleRate         float64       `yaml:"sample_rate"`
	FramesPerBuffer    int           `yaml:"frames_per_buffer"`
	BlacklistOnTimeout bool          `yaml:"blacklist_on_timeout"`
	Blacklist          []string      `yaml:"blacklist"`
	SnapshotDir        string        `yaml:"snapshot_dir"`
	LogLevel           string        `yaml:"log_level"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		DeviceID:           0x10,
		ModelID:            0x4C,
		Port:               "juno",
		TimeoutTicks:       200,
		Clock:              ClockTimer,
		TickPeriod:         10 * time.Millisecond,
		SampleRate:         48000,
		FramesPerBuffer:    512,
		BlacklistOnTimeout: true,
		SnapshotDir:        ".",
		LogLevel:           "info",
	}
}

// Load reads path over the defaults. An empty path returns the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks field ranges.
func (c Config) Validate() error {
	if c.DeviceID > 0x7F {
		return fmt.Errorf("device_id 0x%02X has the high bit set", c.DeviceID)
	}
	if c.ModelID&^0x7F7F7F != 0 {
		return fmt.Errorf("model_id 0x%06X is not three 7-bit bytes", c.ModelID)
	}
	switch c.Clock {
	case ClockTimer:
		if c.TickPeriod <= 0 {
			return fmt.Errorf("tick_period must be positive, got %s", c.TickPeriod)
		}
	case ClockPortAudio:
		if c.SampleRate <= 0 || c.FramesPerBuffer <= 0 {
			return fmt.Errorf("portaudio clock needs sample_rate and frames_per_buffer")
		}
	default:
		return fmt.Errorf("unknown clock %q", c.Clock)
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log_level %q", c.LogLevel)
	}
	_, err := c.BlacklistAddresses()
	return err
}

// BlacklistAddresses parses the configured blacklist.
func (c Config) BlacklistAddresses() ([]uint32, error) {
	out := make([]uint32, 0, len(c.Blacklist))
	for _, s := range c.Blacklist {
		a, err := sysex.ParseAddress(s)
		if err != nil {
			return nil, fmt.Errorf("blacklist: %w", err)
		}
		out = append(out, a)
	}
	return out, nil
}

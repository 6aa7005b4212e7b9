// Package config loads the player configuration from a YAML file and
// PLAYCDDA_* environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Panel struct {
	Enabled      bool          `yaml:"enabled"`
	ChipSelect   int           `yaml:"chip_select"`
	SpeedHz      int           `yaml:"speed_hz"`
	PollInterval time.Duration `yaml:"poll_interval"`
}

type Config struct {
	Device      string   `yaml:"device"`
	Backend     string   `yaml:"backend"`
	Image       []string `yaml:"image"`
	Output      string   `yaml:"output"`
	ReadCommand string   `yaml:"read_command"`
	Volume      int      `yaml:"volume"`
	AbortOnStop bool     `yaml:"abort_on_stop"`
	LogLevel    string   `yaml:"log_level"`
	LogConsole  bool     `yaml:"log_console"`
	MetricsAddr string   `yaml:"metrics_addr"`
	Panel       Panel    `yaml:"panel"`
}

func Default() Config {
	return Config{
		Backend:     "sgio",
		Output:      "speaker",
		ReadCommand: "readcd",
		Volume:      64,
		LogLevel:    "info",
		LogConsole:  true,
		Panel: Panel{
			SpeedHz:      10_000_000,
			PollInterval: 10 * time.Millisecond,
		},
	}
}

// Load reads path, if given, over the defaults and then applies
// environment overrides.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}
	cfg.applyEnv()
	return cfg, cfg.Validate()
}

func (c *Config) applyEnv() {
	c.Device = getEnv("PLAYCDDA_DEVICE", c.Device)
	c.Backend = getEnv("PLAYCDDA_BACKEND", c.Backend)
	if v := getEnv("PLAYCDDA_IMAGE", ""); v != "" {
		c.Image = strings.Split(v, ",")
	}
	c.Output = getEnv("PLAYCDDA_OUTPUT", c.Output)
	c.ReadCommand = getEnv("PLAYCDDA_READ_COMMAND", c.ReadCommand)
	c.Volume = getEnvInt("PLAYCDDA_VOLUME", c.Volume)
	c.AbortOnStop = getEnvBool("PLAYCDDA_ABORT_ON_STOP", c.AbortOnStop)
	c.LogLevel = getEnv("PLAYCDDA_LOG_LEVEL", c.LogLevel)
	c.LogConsole = getEnvBool("PLAYCDDA_LOG_CONSOLE", c.LogConsole)
	c.MetricsAddr = getEnv("PLAYCDDA_METRICS_ADDR", c.MetricsAddr)
	c.Panel.Enabled = getEnvBool("PLAYCDDA_PANEL", c.Panel.Enabled)
}

func (c Config) Validate() error {
	switch c.Backend {
	case "sgio", "paranoia":
	case "image":
		if len(c.Image) == 0 {
			return fmt.Errorf("config: image backend needs at least one track file")
		}
	default:
		return fmt.Errorf("config: unknown backend %q", c.Backend)
	}
	switch c.Output {
	case "speaker", "oto", "null":
	default:
		return fmt.Errorf("config: unknown output %q", c.Output)
	}
	switch c.ReadCommand {
	case "readcd", "readcdda":
	default:
		return fmt.Errorf("config: unknown read command %q", c.ReadCommand)
	}
	if c.Volume < 0 || c.Volume > 64 {
		return fmt.Errorf("config: volume %d out of range 0-64", c.Volume)
	}
	if c.Panel.Enabled && c.Panel.PollInterval <= 0 {
		return fmt.Errorf("config: panel poll interval must be positive")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

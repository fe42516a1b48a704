// Package config loads bridge settings from defaults and an optional YAML file.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sweeney/iobeam-bridge/internal/gpio"
	"github.com/sweeney/iobeam-bridge/internal/iobeam"
	"github.com/sweeney/iobeam-bridge/internal/transport"
)

// Config is the complete bridge configuration.
type Config struct {
	SocketPath                  string        `yaml:"socket_path"`
	ReconnectDelay              time.Duration `yaml:"reconnect_delay"`
	MaxConsecutiveParseFailures int           `yaml:"max_consecutive_parse_failures"`

	MQTT MQTTConfig `yaml:"mqtt"`

	HTTPAddr      string        `yaml:"http_addr"`      // empty disables the status server
	Heartbeat     time.Duration `yaml:"heartbeat"`      // 0 disables
	StatsInterval time.Duration `yaml:"stats_interval"` // status tracker refresh

	LEDPin   int    `yaml:"led_pin"` // negative disables the indicator
	GPIOChip string `yaml:"gpio_chip"`
}

// MQTTConfig contains MQTT broker settings.
type MQTTConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Broker   string `yaml:"broker"`
	ClientID string `yaml:"client_id"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		SocketPath:                  transport.DefaultSocketPath,
		ReconnectDelay:              1 * time.Second,
		MaxConsecutiveParseFailures: 5,
		MQTT: MQTTConfig{
			Enabled:  true,
			Broker:   "tcp://127.0.0.1:1883",
			ClientID: "iobeam-bridge",
		},
		HTTPAddr:      ":8080",
		Heartbeat:     15 * time.Minute,
		StatsInterval: 1 * time.Second,
		LEDPin:        -1,
		GPIOChip:      gpio.DefaultChip,
	}
}

// Load reads a YAML file over the defaults. Keys missing from the file keep
// their default value.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks that the configuration is usable.
func (c Config) Validate() error {
	if c.SocketPath == "" {
		return fmt.Errorf("socket_path is required")
	}
	if c.ReconnectDelay <= 0 {
		return fmt.Errorf("reconnect_delay must be > 0, got %s", c.ReconnectDelay)
	}
	if c.Heartbeat < 0 {
		return fmt.Errorf("heartbeat must be >= 0, got %s", c.Heartbeat)
	}
	if c.StatsInterval <= 0 {
		return fmt.Errorf("stats_interval must be > 0, got %s", c.StatsInterval)
	}
	if c.MQTT.Enabled {
		if c.MQTT.Broker == "" {
			return fmt.Errorf("mqtt.broker is required when mqtt is enabled")
		}
		if c.MQTT.ClientID == "" {
			return fmt.Errorf("mqtt.client_id is required when mqtt is enabled")
		}
	}
	if c.LEDPin >= 0 && c.GPIOChip == "" {
		return fmt.Errorf("gpio_chip is required when led_pin is set")
	}
	return nil
}

// IOBeam returns the connection worker settings.
func (c Config) IOBeam() iobeam.Config {
	return iobeam.Config{
		SocketPath:                  c.SocketPath,
		ReconnectDelay:              c.ReconnectDelay,
		MaxConsecutiveParseFailures: c.MaxConsecutiveParseFailures,
	}
}

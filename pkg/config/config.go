// Package config loads submux client and broker settings from YAML.
//
// Durations are written as Go duration strings ("3s", "250ms"). Missing
// keys keep their defaults:
//
//	address: 127.0.0.1:6380
//	request_timeout: 3s
//	subscriptions_per_connection: 5
//	admission_limit: 64
//	connections: 8
//	max_message_size: 1048576
//	protocol_log: ""
//	log_level: info
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/submux/submux-go/pkg/entry"
	"github.com/submux/submux-go/pkg/service"
	"github.com/submux/submux-go/pkg/transport"
)

// DefaultAddress is the broker address used when none is configured.
const DefaultAddress = "127.0.0.1:6380"

// ErrInvalidConfig is returned for configurations that fail validation.
var ErrInvalidConfig = errors.New("invalid config")

// Config holds the settings shared by the submux binaries.
type Config struct {
	Address                    string        `yaml:"address"`
	RequestTimeout             time.Duration `yaml:"request_timeout"`
	SubscriptionsPerConnection int           `yaml:"subscriptions_per_connection"`
	AdmissionLimit             int           `yaml:"admission_limit"`
	Connections                int           `yaml:"connections"`
	MaxMessageSize             uint32        `yaml:"max_message_size"`
	ProtocolLog                string        `yaml:"protocol_log"`
	LogLevel                   string        `yaml:"log_level"`
}

// Default returns the default configuration.
func Default() Config {
	return Config{
		Address:                    DefaultAddress,
		RequestTimeout:             entry.DefaultRequestTimeout,
		SubscriptionsPerConnection: entry.DefaultSubscriptionsPerConnection,
		AdmissionLimit:             service.DefaultAdmissionLimit,
		Connections:                service.DefaultMaxConnections,
		MaxMessageSize:             transport.DefaultMaxMessageSize,
		LogLevel:                   "info",
	}
}

// Parse decodes YAML over the defaults and validates the result.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Load reads and parses the file at path.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	switch {
	case c.Address == "":
		return fmt.Errorf("%w: address is required", ErrInvalidConfig)
	case c.RequestTimeout <= 0:
		return fmt.Errorf("%w: request_timeout must be positive, got %s", ErrInvalidConfig, c.RequestTimeout)
	case c.SubscriptionsPerConnection <= 0:
		return fmt.Errorf("%w: subscriptions_per_connection must be positive, got %d", ErrInvalidConfig, c.SubscriptionsPerConnection)
	case c.AdmissionLimit <= 0:
		return fmt.Errorf("%w: admission_limit must be positive, got %d", ErrInvalidConfig, c.AdmissionLimit)
	case c.Connections <= 0:
		return fmt.Errorf("%w: connections must be positive, got %d", ErrInvalidConfig, c.Connections)
	case c.MaxMessageSize == 0:
		return fmt.Errorf("%w: max_message_size must be positive", ErrInvalidConfig)
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	return nil
}

// Level parses LogLevel.
func (c Config) Level() (slog.Level, error) {
	var level slog.Level
	if c.LogLevel == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("%w: log_level: %v", ErrInvalidConfig, err)
	}
	return level, nil
}

// EntryConfig returns the per-connection entry settings. Clock and loggers
// are left for the caller.
func (c Config) EntryConfig() entry.Config {
	cfg := entry.DefaultConfig()
	cfg.RequestTimeout = c.RequestTimeout
	cfg.SubscriptionsPerConnection = c.SubscriptionsPerConnection
	return cfg
}

// ConnConfig returns the transport settings.
func (c Config) ConnConfig() transport.ConnConfig {
	return transport.ConnConfig{MaxMessageSize: c.MaxMessageSize}
}

// PoolConfig returns pool settings dialing Address.
func (c Config) PoolConfig() service.Config {
	cfg := service.DefaultConfig()
	cfg.Connect = service.DialConnector(c.Address, c.ConnConfig())
	cfg.MaxConnections = c.Connections
	cfg.AdmissionLimit = c.AdmissionLimit
	cfg.Entry = c.EntryConfig()
	return cfg
}

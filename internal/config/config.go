// Package config reads the service configuration from the environment.
//
// Variables carry the TOURISTS_ prefix. The first underscore after the prefix separates the section
// from the key, so TOURISTS_SERVER_READ_TIMEOUT maps to server.read_timeout. A .env file in the
// working directory is loaded before the environment is read.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	_ "github.com/joho/godotenv/autoload"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix is the prefix of all environment variables read by Load.
const EnvPrefix = "TOURISTS_"

// Config is the root configuration object.
type Config struct {
	Server   ServerConfig   `koanf:"server"   validate:"required"`
	Database DatabaseConfig `koanf:"database" validate:"required"`
	Log      LogConfig      `koanf:"log"      validate:"required"`
}

// ServerConfig groups the settings of the HTTP listener. Timeouts are in seconds.
type ServerConfig struct {
	Port           string `koanf:"port"            validate:"required,numeric"`
	ReadTimeout    int    `koanf:"read_timeout"    validate:"gte=0"`
	WriteTimeout   int    `koanf:"write_timeout"   validate:"gte=0"`
	IdleTimeout    int    `koanf:"idle_timeout"    validate:"gte=0"`
	RequestLogging bool   `koanf:"request_logging"`
	GinMode        string `koanf:"gin_mode"        validate:"oneof=debug release test"`
}

// DatabaseConfig selects the backend of the record store.
type DatabaseConfig struct {
	Driver       string `koanf:"driver"         validate:"required,oneof=sqlite mysql postgres"`
	DSN          string `koanf:"dsn"            validate:"required"`
	MaxOpenConns int    `koanf:"max_open_conns" validate:"gte=0"`
}

// LogConfig controls the zerolog output.
type LogConfig struct {
	Level  string `koanf:"level"  validate:"oneof=trace debug info warn error fatal panic disabled"`
	Format string `koanf:"format" validate:"oneof=console json"`
}

// Default returns the configuration used when no variables are set: a SQLite file named
// tourists.db in the working directory, served on port 8080.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:           "8080",
			ReadTimeout:    20,
			WriteTimeout:   20,
			IdleTimeout:    60,
			RequestLogging: true,
			GinMode:        "release",
		},
		Database: DatabaseConfig{
			Driver:       "sqlite",
			DSN:          "tourists.db",
			MaxOpenConns: 10,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load reads the environment on top of the defaults and validates the result.
func Load() (*Config, error) {
	k := koanf.New(".")
	err := k.Load(env.Provider(EnvPrefix, ".", keyFromEnv), nil)
	if err != nil {
		return nil, fmt.Errorf("loading environment: %w", err)
	}

	cfg := Default()
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("decoding configuration: %w", err)
	}
	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// keyFromEnv turns TOURISTS_SERVER_READ_TIMEOUT into server.read_timeout.
func keyFromEnv(s string) string {
	key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.Replace(key, "_", ".", 1)
}

// Addr is the listen address of the HTTP server.
func (s ServerConfig) Addr() string {
	return ":" + s.Port
}

// ReadTimeoutDuration is the time the HTTP server allows for reading a request.
func (s ServerConfig) ReadTimeoutDuration() time.Duration {
	return time.Duration(s.ReadTimeout) * time.Second
}

// WriteTimeoutDuration is the time the HTTP server allows for writing a response.
func (s ServerConfig) WriteTimeoutDuration() time.Duration {
	return time.Duration(s.WriteTimeout) * time.Second
}

// IdleTimeoutDuration is the time the HTTP server allows for an idle keep-alive connection.
func (s ServerConfig) IdleTimeoutDuration() time.Duration {
	return time.Duration(s.IdleTimeout) * time.Second
}

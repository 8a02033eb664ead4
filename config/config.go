// Package config loads the course scheduler server configuration from YAML.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Catalog   CatalogConfig   `yaml:"catalog"`
	Schedules SchedulesConfig `yaml:"schedules"`
	WebSocket WebSocketConfig `yaml:"websocket"`
	Log       LogConfig       `yaml:"log"`
}

type ServerConfig struct {
	Port         int           `yaml:"port"`
	Host         string        `yaml:"host"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout"`
}

type CatalogConfig struct {
	Dir string `yaml:"dir"`
}

// SchedulesConfig controls schedule storage, seeding and eviction
type SchedulesConfig struct {
	Dir           string        `yaml:"dir"`
	SeedFilter    string        `yaml:"seed_filter"`
	SeedCount     int           `yaml:"seed_count"`
	IdleTimeout   time.Duration `yaml:"idle_timeout"`
	SweepInterval time.Duration `yaml:"sweep_interval"`
}

type WebSocketConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the configuration used when no file is given
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         8080,
			Host:         "localhost",
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		Catalog: CatalogConfig{
			Dir: "catalog",
		},
		Schedules: SchedulesConfig{
			Dir:           "schedules",
			SeedCount:     0,
			IdleTimeout:   30 * time.Minute,
			SweepInterval: time.Minute,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "terminal",
		},
	}
}

// Load reads path on top of the defaults. An empty path yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration %s: %w", path, err)
	}

	return cfg, nil
}

// Validate reports the first invalid setting
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if c.Catalog.Dir == "" {
		return errors.New("catalog.dir is required")
	}
	if c.Schedules.SeedCount < 0 {
		return errors.New("schedules.seed_count must not be negative")
	}
	if c.Schedules.IdleTimeout > 0 && c.Schedules.SweepInterval <= 0 {
		return errors.New("schedules.sweep_interval must be positive when idle_timeout is set")
	}
	switch c.Log.Format {
	case "terminal", "logfmt", "json":
	default:
		return fmt.Errorf("log.format %q must be terminal, logfmt or json", c.Log.Format)
	}
	return nil
}

// Addr returns the listen address
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

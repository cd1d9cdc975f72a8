// Package config loads service configuration from a YAML file with
// environment variable overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root service configuration.
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Database    DatabaseConfig    `yaml:"database"`
	Auth        AuthConfig        `yaml:"auth"`
	Correlation CorrelationConfig `yaml:"correlation"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Port           int           `yaml:"port"`
	ReadTimeout    time.Duration `yaml:"read_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
	IdleTimeout    time.Duration `yaml:"idle_timeout"`
	AllowedOrigins []string      `yaml:"allowed_origins"`
}

// DatabaseConfig configures the backing alert/entity registry.
type DatabaseConfig struct {
	URL          string        `yaml:"url"`
	FetchTimeout time.Duration `yaml:"fetch_timeout"`
	RetryBackoff time.Duration `yaml:"retry_backoff"`
}

// AuthConfig configures bearer-token verification. The token issuer is the
// dashboard's authentication service; only the shared secret lives here.
type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret"`
	Issuer    string `yaml:"issuer"`
}

// CorrelationConfig holds the engine tunables. The pivot category count and
// lateral-movement gap are explicit configuration rather than hard-coded
// constants.
type CorrelationConfig struct {
	PivotCategories int           `yaml:"pivot_categories"`
	ExpandWindow    time.Duration `yaml:"expand_window"`
	MaxGap          time.Duration `yaml:"max_gap"`
	QueryBudget     time.Duration `yaml:"query_budget"`
	SessionTTL      time.Duration `yaml:"session_ttl"`
}

// Default returns the built-in defaults.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Port:         8080,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		Database: DatabaseConfig{
			FetchTimeout: 2 * time.Second,
			RetryBackoff: 250 * time.Millisecond,
		},
		Correlation: CorrelationConfig{
			PivotCategories: 3,
			ExpandWindow:    24 * time.Hour,
			QueryBudget:     5 * time.Second,
			SessionTTL:      30 * time.Minute,
		},
	}
}

// Load reads the config file at path (optional) and applies environment
// overrides on top of the defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.applyEnv()

	if err := cfg.validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("ALERTGRAPH_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Server.Port = port
		}
	}
	if v := os.Getenv("ALERTGRAPH_DATABASE_URL"); v != "" {
		c.Database.URL = v
	}
	if v := os.Getenv("ALERTGRAPH_JWT_SECRET"); v != "" {
		c.Auth.JWTSecret = v
	}
	if v := os.Getenv("ALERTGRAPH_JWT_ISSUER"); v != "" {
		c.Auth.Issuer = v
	}
	if v := os.Getenv("ALERTGRAPH_ALLOWED_ORIGINS"); v != "" {
		origins := strings.Split(v, ",")
		for i := range origins {
			origins[i] = strings.TrimSpace(origins[i])
		}
		c.Server.AllowedOrigins = origins
	}
}

func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	if c.Database.URL == "" {
		return fmt.Errorf("database.url is required (or ALERTGRAPH_DATABASE_URL)")
	}
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is required (or ALERTGRAPH_JWT_SECRET)")
	}
	if c.Correlation.PivotCategories <= 0 {
		return fmt.Errorf("correlation.pivot_categories must be positive")
	}
	return nil
}

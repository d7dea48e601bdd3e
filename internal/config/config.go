package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds the application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	JWT      JWTConfig      `yaml:"jwt"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Port string `yaml:"port"`
}

// DatabaseConfig configures the MySQL connection.
type DatabaseConfig struct {
	// DSN, e.g. "user:password@tcp(localhost:3306)/timesheet?parseTime=true"
	DSN string `yaml:"dsn"`
}

// JWTConfig configures token signing.
type JWTConfig struct {
	Secret string `yaml:"secret"`
}

// Load reads config.yaml (path overridable via CONFIG_FILE) and applies
// environment overrides on top. Environment always wins over the file.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port: ":8080",
		},
	}

	path := os.Getenv("CONFIG_FILE")
	if path == "" {
		path = "config.yaml"
	}
	data, err := os.ReadFile(path)
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	if v := os.Getenv("SERVER_PORT"); v != "" {
		cfg.Server.Port = v
	}
	if v := os.Getenv("DATABASE_DSN"); v != "" {
		cfg.Database.DSN = v
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		cfg.JWT.Secret = v
	}

	if cfg.Server.Port == "" {
		return nil, errors.New("server port must be set")
	}
	if cfg.Database.DSN == "" {
		return nil, errors.New("database DSN must be set (database.dsn or DATABASE_DSN)")
	}
	if cfg.JWT.Secret == "" {
		return nil, errors.New("JWT secret must be set (jwt.secret or JWT_SECRET)")
	}

	return cfg, nil
}

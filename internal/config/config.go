package config

import (
	"fmt"
	"time"
)

// Config holds all configuration for the workspace engine
type Config struct {
	Server     ServerConfig
	Postgres   PostgresConfig
	Engine     EngineConfig
	Migrations MigrationsConfig
	Log        LogConfig
}

// ServerConfig holds the operational HTTP server configuration
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	Env  string `mapstructure:"env"`
}

// PostgresConfig holds PostgreSQL configuration
type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
	SSLMode  string `mapstructure:"ssl_mode"`
	MaxConns int32  `mapstructure:"max_conns"`
	MinConns int32  `mapstructure:"min_conns"`
}

// DSN returns the PostgreSQL connection string
func (c PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Database, c.SSLMode,
	)
}

// EngineConfig holds workspace cache engine configuration
type EngineConfig struct {
	WorkspaceID      string        `mapstructure:"workspace_id"`
	HydrationTimeout time.Duration `mapstructure:"-"`
	HydrationSeconds int           `mapstructure:"hydration_timeout_seconds"`
}

// MigrationsConfig holds schema migration configuration
type MigrationsConfig struct {
	Auto bool `mapstructure:"auto"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

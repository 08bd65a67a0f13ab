package config

import (
	"fmt"

	"github.com/mitchellh/mapstructure"
)

// PoolConfig holds database connection pool settings.
type PoolConfig struct {
	MaxOpenConns           int `yaml:"max_open_conns"`
	MaxIdleConns           int `yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int `yaml:"conn_max_lifetime_minutes"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	Type     string `yaml:"type"`     // Database type ("sqlite", "postgres", "mysql").
	Host     string `yaml:"host"`     // Database host address.
	Port     int    `yaml:"port"`     // Database port number.
	Database string `yaml:"database"` // Database name, or the file path for SQLite.
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Sslmode  string `yaml:"sslmode"` // SSL mode for PostgreSQL.
	// LogLevel is the GORM log level (SILENT, ERROR, WARN, INFO). Defaults to SILENT.
	LogLevel string     `yaml:"log_level"`
	Pool     PoolConfig `yaml:"pool"` // Connection pool settings.
}

// Decode converts a raw adapter.database.<name> map into a DatabaseConfig.
func Decode(raw interface{}) (DatabaseConfig, error) {
	var cfg DatabaseConfig
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "yaml",
		WeaklyTypedInput: true,
		Result:           &cfg,
	})
	if err != nil {
		return cfg, err
	}
	if err := decoder.Decode(raw); err != nil {
		return cfg, fmt.Errorf("failed to decode database config: %w", err)
	}
	return cfg, nil
}

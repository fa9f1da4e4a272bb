// Package config provides configuration management for recipeatlas.
package config

import (
	"time"

	"github.com/recipeatlas/recipeatlas/internal/qualification"
	"github.com/recipeatlas/recipeatlas/internal/rules"
)

// Config is the complete service configuration.
type Config struct {
	Server        ServerConfig
	Database      DatabaseConfig
	Rules         RulesConfig
	Qualification QualificationConfig
	Log           LogConfig
}

// ServerConfig holds listener settings for the HTTP and gRPC APIs.
type ServerConfig struct {
	Host           string
	HTTPPort       int
	GRPCPort       int
	RequestTimeout time.Duration
}

// DatabaseConfig holds the connection URL (sqlite:// or postgres://).
type DatabaseConfig struct {
	URL string
}

// RulesConfig bounds rule size. Zero disables a limit.
type RulesConfig struct {
	MaxGroups             int
	MaxConditionsPerGroup int
	MaxExcludeConditions  int
	MaxInValues           int
}

// QualificationConfig holds qualification thresholds.
type QualificationConfig struct {
	NearPercent int
}

// LogConfig selects log level and output format.
type LogConfig struct {
	Level  string
	Format string
}

// Default returns configuration with default values.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:           "0.0.0.0",
			HTTPPort:       8080,
			GRPCPort:       50051,
			RequestTimeout: 30 * time.Second,
		},
		Database: DatabaseConfig{
			URL: "sqlite://recipeatlas.db",
		},
		Rules: RulesConfig{
			MaxGroups:             rules.DefaultMaxGroups,
			MaxConditionsPerGroup: rules.DefaultMaxConditionsPerGroup,
			MaxExcludeConditions:  rules.DefaultMaxExcludeConditions,
			MaxInValues:           rules.DefaultMaxInValues,
		},
		Qualification: QualificationConfig{
			NearPercent: qualification.DefaultNearPercent,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Limits converts the rules section for rules.NewEngine.
func (c RulesConfig) Limits() rules.Limits {
	return rules.Limits{
		MaxGroups:             c.MaxGroups,
		MaxConditionsPerGroup: c.MaxConditionsPerGroup,
		MaxExcludeConditions:  c.MaxExcludeConditions,
		MaxInValues:           c.MaxInValues,
	}
}

// Thresholds converts the qualification section.
func (c QualificationConfig) Thresholds() qualification.Thresholds {
	return qualification.Thresholds{NearPercent: c.NearPercent}
}

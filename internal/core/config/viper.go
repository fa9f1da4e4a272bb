package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/recipeatlas/recipeatlas/internal/logging"
)

// DefaultConfigName is looked up in the home directory when no --config
// flag is given. A missing default file is not an error.
const DefaultConfigName = ".recipeatlas.yaml"

// flagKeys maps CLI flag names to config keys for BindPFlags.
var flagKeys = map[string]string{
	"host":         "server.host",
	"http-port":    "server.http_port",
	"grpc-port":    "server.grpc_port",
	"database-url": "database.url",
	"log-level":    "log.level",
	"log-format":   "log.format",
}

// LoadConfig loads configuration from file using viper.
// CLI flags > environment > config file > defaults precedence.
// flags may be nil; only flags the user changed override lower layers.
func LoadConfig(configPath string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	// Bind environment variables with RA_ prefix
	v.SetEnvPrefix("RA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	path, explicit, err := resolveConfigPath(configPath)
	if err != nil {
		return nil, err
	}
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			if explicit || !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		} else if err := validateNoCredentialsInFile(path); err != nil {
			return nil, err
		}
	}

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil && f.Changed {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
	}

	cfg := &Config{
		Server: ServerConfig{
			Host:           v.GetString("server.host"),
			HTTPPort:       v.GetInt("server.http_port"),
			GRPCPort:       v.GetInt("server.grpc_port"),
			RequestTimeout: v.GetDuration("server.request_timeout"),
		},
		Database: DatabaseConfig{
			URL: v.GetString("database.url"),
		},
		Rules: RulesConfig{
			MaxGroups:             v.GetInt("rules.max_groups"),
			MaxConditionsPerGroup: v.GetInt("rules.max_conditions_per_group"),
			MaxExcludeConditions:  v.GetInt("rules.max_exclude_conditions"),
			MaxInValues:           v.GetInt("rules.max_in_values"),
		},
		Qualification: QualificationConfig{
			NearPercent: v.GetInt("qualification.near_percent"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
		},
	}

	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// setDefaults mirrors Default.
func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("server.host", d.Server.Host)
	v.SetDefault("server.http_port", d.Server.HTTPPort)
	v.SetDefault("server.grpc_port", d.Server.GRPCPort)
	v.SetDefault("server.request_timeout", d.Server.RequestTimeout.String())
	v.SetDefault("database.url", d.Database.URL)
	v.SetDefault("rules.max_groups", d.Rules.MaxGroups)
	v.SetDefault("rules.max_conditions_per_group", d.Rules.MaxConditionsPerGroup)
	v.SetDefault("rules.max_exclude_conditions", d.Rules.MaxExcludeConditions)
	v.SetDefault("rules.max_in_values", d.Rules.MaxInValues)
	v.SetDefault("qualification.near_percent", d.Qualification.NearPercent)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
}

// resolveConfigPath returns the file to read and whether the user named it.
// Without --config the home directory default is tried.
func resolveConfigPath(configPath string) (string, bool, error) {
	if configPath != "" {
		expanded, err := homedir.Expand(configPath)
		if err != nil {
			return "", true, fmt.Errorf("expand config path: %w", err)
		}
		return expanded, true, nil
	}
	home, err := homedir.Dir()
	if err != nil {
		// No home directory (e.g. minimal containers): defaults and env only.
		return "", false, nil
	}
	return filepath.Join(home, DefaultConfigName), false, nil
}

// validateConfig checks port ranges, positive limits and the NEAR threshold.
func validateConfig(cfg *Config) error {
	if cfg.Server.HTTPPort <= 0 || cfg.Server.HTTPPort > 65535 {
		return fmt.Errorf("http_port must be between 1 and 65535, got %d", cfg.Server.HTTPPort)
	}
	if cfg.Server.GRPCPort <= 0 || cfg.Server.GRPCPort > 65535 {
		return fmt.Errorf("grpc_port must be between 1 and 65535, got %d", cfg.Server.GRPCPort)
	}
	if cfg.Server.HTTPPort == cfg.Server.GRPCPort {
		return fmt.Errorf("http_port and grpc_port must differ, both are %d", cfg.Server.HTTPPort)
	}
	if cfg.Server.RequestTimeout <= 0 {
		return fmt.Errorf("request_timeout must be positive, got %v", cfg.Server.RequestTimeout)
	}
	if cfg.Database.URL == "" {
		return fmt.Errorf("database.url must be set")
	}
	limits := map[string]int{
		"max_groups":               cfg.Rules.MaxGroups,
		"max_conditions_per_group": cfg.Rules.MaxConditionsPerGroup,
		"max_exclude_conditions":   cfg.Rules.MaxExcludeConditions,
		"max_in_values":            cfg.Rules.MaxInValues,
	}
	for name, n := range limits {
		if n < 0 {
			return fmt.Errorf("rules.%s must not be negative, got %d", name, n)
		}
	}
	if cfg.Qualification.NearPercent < 1 || cfg.Qualification.NearPercent > 100 {
		return fmt.Errorf("qualification.near_percent must be between 1 and 100, got %d", cfg.Qualification.NearPercent)
	}
	if !logging.ValidLevel(cfg.Log.Level) {
		return fmt.Errorf("log.level %q is not a known level", cfg.Log.Level)
	}
	if f := strings.ToLower(cfg.Log.Format); f != "json" && f != "console" {
		return fmt.Errorf("log.format must be json or console, got %q", cfg.Log.Format)
	}
	return nil
}

// validateNoCredentialsInFile enforces environment-only database passwords
// (12-factor). Reads the file alone so RA_DATABASE_URL does not mask it.
func validateNoCredentialsInFile(path string) error {
	fv := viper.New()
	fv.SetConfigFile(path)
	if err := fv.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	raw := fv.GetString("database.url")
	if raw == "" {
		return nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid database.url in config file: %w", err)
	}
	if _, hasPassword := u.User.Password(); hasPassword {
		return fmt.Errorf("database passwords not allowed in config files (use RA_DATABASE_URL environment variable)")
	}
	return nil
}

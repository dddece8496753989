// Package config loads server configuration from an optional YAML file and AUDITBRIDGE_ environment variables.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable, e.g. AUDITBRIDGE_DATABASE_DSN.
const EnvPrefix = "AUDITBRIDGE"

// Config holds the application configuration
type Config struct {
	// AppEnv is "development" or "production"; development enables console logging.
	AppEnv   string `mapstructure:"app_env"`
	AppAddr  string `mapstructure:"app_addr"`
	LogLevel string `mapstructure:"log_level"`

	// DatabaseDSN selects the driver: postgres:// or postgresql:// URLs use Postgres, anything else is a SQLite path.
	DatabaseDSN string `mapstructure:"database_dsn"`

	Audit AuditConfig `mapstructure:"audit"`
	Auth  AuthConfig  `mapstructure:"auth"`
}

// AuditConfig configures the blameable and loggable plugins.
type AuditConfig struct {
	// DefaultActor is recorded for changes made outside a request.
	DefaultActor string   `mapstructure:"default_actor"`
	RedactFields []string `mapstructure:"redact_fields"`
}

// AuthConfig configures token issuance.
type AuthConfig struct {
	AccessTokenTTL time.Duration `mapstructure:"access_token_ttl"`
	RememberMeTTL  time.Duration `mapstructure:"remember_me_ttl"`
	// RoleHierarchy maps a role to the roles it implies.
	RoleHierarchy map[string][]string `mapstructure:"role_hierarchy"`
}

// IsDevelopment reports whether the server runs in development mode.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// SetDefaults registers the default of every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("app_env", "development")
	v.SetDefault("app_addr", ":8080")
	v.SetDefault("log_level", "")
	v.SetDefault("database_dsn", "file:auditbridge.db")
	v.SetDefault("audit.default_actor", "system")
	v.SetDefault("audit.redact_fields", []string{"password", "secret", "token", "access_token", "bearer_token"})
	v.SetDefault("auth.access_token_ttl", time.Hour)
	v.SetDefault("auth.remember_me_ttl", 720*time.Hour)
	v.SetDefault("auth.role_hierarchy", map[string][]string{
		"ROLE_ADMIN": {"ROLE_USER", "ROLE_ALLOWED_TO_SWITCH"},
	})
}

// New returns a viper instance reading cfgFile (optional) and the environment.
func New(cfgFile string) (*viper.Viper, error) {
	v := viper.New()
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", cfgFile, err)
		}
	}
	return v, nil
}

// Load decodes and validates the configuration held by v.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if cfg.DatabaseDSN == "" {
		return nil, fmt.Errorf("database_dsn is required")
	}
	switch cfg.AppEnv {
	case "development", "production":
	default:
		return nil, fmt.Errorf("app_env must be development or production, got %q", cfg.AppEnv)
	}
	if cfg.Auth.AccessTokenTTL <= 0 || cfg.Auth.RememberMeTTL <= 0 {
		return nil, fmt.Errorf("token lifetimes must be positive")
	}

	// viper lowercases keys read from files; role names are upper case
	hierarchy := make(map[string][]string, len(cfg.Auth.RoleHierarchy))
	for role, implied := range cfg.Auth.RoleHierarchy {
		upper := make([]string, len(implied))
		for i, r := range implied {
			upper[i] = strings.ToUpper(r)
		}
		hierarchy[strings.ToUpper(role)] = upper
	}
	cfg.Auth.RoleHierarchy = hierarchy

	return &cfg, nil
}

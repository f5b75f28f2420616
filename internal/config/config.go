// Package config loads the resolver's configuration from, in ascending
// priority: in-code defaults, an optional YAML file, then environment
// variables (SPEC_FULL.md §4.J).
package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Config is the root configuration structure.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Catalog   CatalogConfig   `mapstructure:"catalog"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Security  SecurityConfig  `mapstructure:"security"`
	Log       LogConfig       `mapstructure:"log"`
	Audit     AuditConfig     `mapstructure:"audit"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// CatalogConfig controls where the catalog definition is loaded from and
// how reloads behave.
type CatalogConfig struct {
	FilePath            string `mapstructure:"file_path"`
	BlockBreakingReload bool   `mapstructure:"block_breaking_reload"`
	DeprecationEnabled  bool   `mapstructure:"deprecation_enabled"`
}

// CacheConfig controls the resolve-result cache.
type CacheConfig struct {
	MaxSize    int           `mapstructure:"max_size"`
	DefaultTTL time.Duration `mapstructure:"default_ttl"`
}

// TelemetryConfig controls the usage-event emitter.
type TelemetryConfig struct {
	Sink          string        `mapstructure:"sink"` // console | file | noop
	FilePath      string        `mapstructure:"file_path"`
	QueueSize     int           `mapstructure:"queue_size"`
	BatchSize     int           `mapstructure:"batch_size"`
	FlushInterval time.Duration `mapstructure:"flush_interval"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json or console
}

// SecurityConfig holds the auth-gate tokens. An unset submit or approve
// token is auto-generated by ensureSecrets and logged once, never persisted
// back to the config file; the legacy token is never generated.
type SecurityConfig struct {
	SubmitToken  string `mapstructure:"submit_token"`
	ApproveToken string `mapstructure:"approve_token"`
	LegacyToken  string `mapstructure:"legacy_token"`
}

// AuditConfig controls the Postgres-backed audit store.
type AuditConfig struct {
	DatabaseDSN    string `mapstructure:"database_dsn"`
	FallbackBuffer int    `mapstructure:"fallback_buffer"`
}

var (
	bootstrapLoggerOnce sync.Once
	bootstrapLogger     *zap.Logger
)

// Load reads configuration from an optional file and environment
// variables. configFile, if non-empty, overrides the default search path
// (cmd/resolverd passes RESOLVER_CONFIG_FILE).
func Load(configFile string) (*Config, error) {
	v := viper.New()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/resolverd")
	}

	v.SetEnvPrefix("resolver")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("config: read: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	if err := cfg.ensureSecrets(); err != nil {
		return nil, fmt.Errorf("config: ensure secrets: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: validate: %w", err)
	}

	return &cfg, nil
}

// Validate rejects structurally impossible configurations before the rest
// of the service boots.
func (c *Config) Validate() error {
	if c.Cache.MaxSize < 0 {
		return fmt.Errorf("cache.max_size must not be negative")
	}
	if c.Cache.DefaultTTL <= 0 {
		return fmt.Errorf("cache.default_ttl must be positive")
	}
	switch c.Telemetry.Sink {
	case "console", "file", "noop":
	default:
		return fmt.Errorf("telemetry.sink must be one of console|file|noop, got %q", c.Telemetry.Sink)
	}
	if c.Telemetry.Sink == "file" && c.Telemetry.FilePath == "" {
		return fmt.Errorf("telemetry.file_path is required when telemetry.sink is \"file\"")
	}
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be positive")
	}
	return nil
}

// ensureSecrets auto-generates a missing submit or approve token,
// independently per token: an operator who sets only one of the two is not
// left with the other permanently empty. The legacy token is never
// generated.
func (c *Config) ensureSecrets() error {
	generate := func(name string, dest *string) error {
		if *dest != "" {
			return nil
		}
		token, err := generateSecureRandomHex(32)
		if err != nil {
			return fmt.Errorf("auto-generate %s: %w", name, err)
		}
		*dest = token
		logBootstrapWarn(
			fmt.Sprintf("auto-generated %s; set the matching env var to persist it across restarts", name),
			zap.Int("length", len(token)),
		)
		return nil
	}

	if err := generate("security.submit_token", &c.Security.SubmitToken); err != nil {
		return err
	}
	if err := generate("security.approve_token", &c.Security.ApproveToken); err != nil {
		return err
	}
	return nil
}

func logBootstrapWarn(msg string, fields ...zap.Field) {
	bootstrapLoggerOnce.Do(func() {
		cfg := zap.NewProductionConfig()
		cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
		l, err := cfg.Build()
		if err != nil {
			bootstrapLogger = zap.NewNop()
			return
		}
		bootstrapLogger = l
	})
	bootstrapLogger.Warn(msg, fields...)
}

func generateSecureRandomHex(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("crypto/rand: %w", err)
	}
	return hex.EncodeToString(b), nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "10s")
	v.SetDefault("server.write_timeout", "10s")
	v.SetDefault("server.shutdown_timeout", "15s")

	v.SetDefault("catalog.file_path", "catalog.yaml")
	v.SetDefault("catalog.block_breaking_reload", true)
	v.SetDefault("catalog.deprecation_enabled", true)

	v.SetDefault("cache.max_size", 10000)
	v.SetDefault("cache.default_ttl", "60s")

	v.SetDefault("telemetry.sink", "console")
	v.SetDefault("telemetry.queue_size", 1000)
	v.SetDefault("telemetry.batch_size", 50)
	v.SetDefault("telemetry.flush_interval", "5s")
	v.SetDefault("telemetry.file_path", "")

	// Empty defaults make these keys known to viper, so AutomaticEnv values
	// (RESOLVER_SECURITY_SUBMIT_TOKEN etc.) reach Unmarshal.
	v.SetDefault("security.submit_token", "")
	v.SetDefault("security.approve_token", "")
	v.SetDefault("security.legacy_token", "")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("audit.database_dsn", "")
	v.SetDefault("audit.fallback_buffer", 1000)
}

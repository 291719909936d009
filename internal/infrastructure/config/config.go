package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix is the prefix for environment overrides, e.g. ROC_SERVER_PORT
const EnvPrefix = "ROC_"

// DefaultConfigPath is read when no explicit path is given and the file exists
const DefaultConfigPath = "configs/config.yaml"

type Config struct {
	Version     string `koanf:"version"`
	Environment string `koanf:"environment"`
	LogLevel    string `koanf:"log_level"`

	Server     ServerConfig     `koanf:"server"`
	Redis      RedisConfig      `koanf:"redis"`
	Telemetry  TelemetryConfig  `koanf:"telemetry"`
	Compliance ComplianceConfig `koanf:"compliance"`
	Security   SecurityConfig   `koanf:"security"`
}

type ServerConfig struct {
	Port            int           `koanf:"port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	MaxBodyBytes    int64         `koanf:"max_body_bytes"`
}

type RedisConfig struct {
	Enabled      bool          `koanf:"enabled"`
	URL          string        `koanf:"url"`
	Password     string        `koanf:"password"`
	DB           int           `koanf:"db"`
	PoolSize     int           `koanf:"pool_size"`
	MinIdleConns int           `koanf:"min_idle_conns"`
	MaxRetries   int           `koanf:"max_retries"`
	DialTimeout  time.Duration `koanf:"dial_timeout"`
	ReadTimeout  time.Duration `koanf:"read_timeout"`
	WriteTimeout time.Duration `koanf:"write_timeout"`

	SnapshotKeyPrefix string        `koanf:"snapshot_key_prefix"`
	SnapshotTTL       time.Duration `koanf:"snapshot_ttl"`
	SyncInterval      time.Duration `koanf:"sync_interval"`
}

type TelemetryConfig struct {
	Enabled       bool          `koanf:"enabled"`
	OTLPEndpoint  string        `koanf:"otlp_endpoint"`
	SamplingRate  float64       `koanf:"sampling_rate"`
	ExportTimeout time.Duration `koanf:"export_timeout"`
	BatchTimeout  time.Duration `koanf:"batch_timeout"`
}

type ComplianceConfig struct {
	// MaxContactsPerRequest bounds a single filtering pass
	MaxContactsPerRequest int `koanf:"max_contacts_per_request"`
}

type SecurityConfig struct {
	RateLimit RateLimitConfig `koanf:"rate_limit"`
}

type RateLimitConfig struct {
	RequestsPerSecond int      `koanf:"requests_per_second"`
	BurstSize         int      `koanf:"burst_size"`
	TrustedProxies    []string `koanf:"trusted_proxies"`
}

// Defaults returns the built-in configuration
func Defaults() *Config {
	return &Config{
		Version:     "dev",
		Environment: "development",
		LogLevel:    "info",
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			MaxBodyBytes:    10 << 20,
		},
		Redis: RedisConfig{
			Enabled:           false,
			URL:               "localhost:6379",
			DB:                0,
			PoolSize:          10,
			MinIdleConns:      2,
			MaxRetries:        3,
			DialTimeout:       5 * time.Second,
			ReadTimeout:       3 * time.Second,
			WriteTimeout:      3 * time.Second,
			SnapshotKeyPrefix: "roc:dnc:snapshot",
			SnapshotTTL:       24 * time.Hour,
			SyncInterval:      5 * time.Second,
		},
		Telemetry: TelemetryConfig{
			Enabled:       false,
			OTLPEndpoint:  "localhost:4317",
			SamplingRate:  1.0,
			ExportTimeout: 30 * time.Second,
			BatchTimeout:  5 * time.Second,
		},
		Compliance: ComplianceConfig{
			MaxContactsPerRequest: 50000,
		},
		Security: SecurityConfig{
			RateLimit: RateLimitConfig{
				RequestsPerSecond: 100,
				BurstSize:         200,
			},
		},
	}
}

// Load builds the configuration from defaults, an optional YAML file and
// ROC_-prefixed environment variables, in increasing precedence.
// An explicit path must exist; the default path is optional.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Defaults(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("loading defaults: %w", err)
	}

	configPath := path
	if configPath == "" {
		configPath = DefaultConfigPath
	}
	if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
		if path != "" || !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("loading config file %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("loading environment variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// envKey maps ROC_SERVER_READ_TIMEOUT to server.read_timeout. The first
// underscore separates the section; the rest belong to the field name.
func envKey(s string) string {
	key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	section, field, found := strings.Cut(key, "_")
	if !found {
		return key
	}
	switch section {
	case "server", "redis", "telemetry", "compliance":
		return section + "." + field
	case "security":
		if rest, ok := strings.CutPrefix(field, "rate_limit_"); ok {
			return "security.rate_limit." + rest
		}
		return section + "." + field
	default:
		return key
	}
}

// Validate rejects settings the service cannot run with
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}
	if c.Server.MaxBodyBytes <= 0 {
		errs = append(errs, fmt.Errorf("server.max_body_bytes must be positive"))
	}
	if c.Compliance.MaxContactsPerRequest <= 0 {
		errs = append(errs, fmt.Errorf("compliance.max_contacts_per_request must be positive"))
	}
	if c.Security.RateLimit.RequestsPerSecond <= 0 || c.Security.RateLimit.BurstSize <= 0 {
		errs = append(errs, fmt.Errorf("security.rate_limit values must be positive"))
	}
	if c.Telemetry.SamplingRate < 0 || c.Telemetry.SamplingRate > 1 {
		errs = append(errs, fmt.Errorf("telemetry.sampling_rate must be within [0, 1]"))
	}
	if c.Redis.Enabled && c.Redis.URL == "" {
		errs = append(errs, fmt.Errorf("redis.url is required when redis is enabled"))
	}
	if c.Redis.SyncInterval < 0 {
		errs = append(errs, fmt.Errorf("redis.sync_interval cannot be negative"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return nil
}

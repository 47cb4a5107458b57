// Package config provides centralized configuration management
// using Viper for configuration loading and validation
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	apperrors "github.com/alchemorsel/client/pkg/errors"
)

// Storage drivers
const (
	StorageFile     = "file"
	StorageSQLite   = "sqlite"
	StoragePostgres = "postgres"
	StorageRedis    = "redis"
	StorageMemory   = "memory"
)

// legacyBaseURLEnv is honoured when ALCHEMORSEL_API_BASE_URL is unset.
const legacyBaseURLEnv = "API_URL"

// Config holds all client configuration
type Config struct {
	App        AppConfig        `mapstructure:"app"`
	API        APIConfig        `mapstructure:"api"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Monitoring MonitoringConfig `mapstructure:"monitoring"`
}

// AppConfig contains application-level configuration
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
	Debug       bool   `mapstructure:"debug"`
	LogLevel    string `mapstructure:"log_level"`
	LogFormat   string `mapstructure:"log_format"`
}

// APIConfig describes the remote API. The request timeout is fixed and not
// configurable.
type APIConfig struct {
	BaseURL          string  `mapstructure:"base_url"`
	RateLimit        float64 `mapstructure:"rate_limit"`
	RateBurst        int     `mapstructure:"rate_burst"`
	MaxResponseBytes int64   `mapstructure:"max_response_bytes"`
}

// StorageConfig selects the durable storage backing the session.
type StorageConfig struct {
	Driver        string `mapstructure:"driver"`
	Path          string `mapstructure:"path"`
	DSN           string `mapstructure:"dsn"`
	RedisAddr     string `mapstructure:"redis_addr"`
	RedisPassword string `mapstructure:"redis_password"`
	RedisDB       int    `mapstructure:"redis_db"`
	KeyPrefix     string `mapstructure:"key_prefix"`
	EncryptionKey string `mapstructure:"encryption_key"`
	Watch         bool   `mapstructure:"watch"`

	// EncryptionKeyFile names a file holding the key, for secret mounts.
	// It is read only when EncryptionKey is empty.
	EncryptionKeyFile string `mapstructure:"encryption_key_file"`
}

// MonitoringConfig contains monitoring configuration
type MonitoringConfig struct {
	EnableTracing bool    `mapstructure:"enable_tracing"`
	OTLPEndpoint  string  `mapstructure:"otlp_endpoint"`
	SamplingRate  float64 `mapstructure:"sampling_rate"`
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	// A missing .env is fine; anything else is not.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("alchemorsel")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if dir, err := os.UserConfigDir(); err == nil {
			v.AddConfigPath(filepath.Join(dir, "alchemorsel"))
		}
	}

	v.SetEnvPrefix("ALCHEMORSEL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// It's okay if config file doesn't exist, we have defaults
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if config.API.BaseURL == "" {
		config.API.BaseURL = os.Getenv(legacyBaseURLEnv)
	}
	if config.Storage.Path == "" {
		config.Storage.Path = defaultStoragePath()
	}

	if err := resolveSecrets(&config); err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "Alchemorsel")
	v.SetDefault("app.version", "3.0.0")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.debug", false)
	v.SetDefault("app.log_level", "warn")
	v.SetDefault("app.log_format", "console")

	v.SetDefault("api.base_url", "")
	v.SetDefault("api.rate_limit", 0)
	v.SetDefault("api.rate_burst", 5)
	v.SetDefault("api.max_response_bytes", 10<<20)

	v.SetDefault("storage.driver", StorageFile)
	v.SetDefault("storage.path", "")
	v.SetDefault("storage.dsn", "")
	v.SetDefault("storage.redis_addr", "localhost:6379")
	v.SetDefault("storage.redis_password", "")
	v.SetDefault("storage.redis_db", 0)
	v.SetDefault("storage.key_prefix", "alchemorsel:")
	v.SetDefault("storage.encryption_key", "")
	v.SetDefault("storage.encryption_key_file", "")
	v.SetDefault("storage.watch", true)

	v.SetDefault("monitoring.enable_tracing", false)
	v.SetDefault("monitoring.otlp_endpoint", "")
	v.SetDefault("monitoring.sampling_rate", 1.0)
}

// Validate validates the configuration. A missing API base URL is a
// deployment error and is reported as CodeConfiguration.
func (c *Config) Validate() error {
	if err := c.API.Validate(); err != nil {
		return err
	}

	switch c.Storage.Driver {
	case StorageFile, StorageSQLite:
		if c.Storage.Path == "" {
			return apperrors.NewConfigurationError(fmt.Sprintf("storage.path is required for the %s driver", c.Storage.Driver))
		}
	case StoragePostgres:
		if c.Storage.DSN == "" {
			return apperrors.NewConfigurationError("storage.dsn is required for the postgres driver")
		}
	case StorageRedis:
		if c.Storage.RedisAddr == "" {
			return apperrors.NewConfigurationError("storage.redis_addr is required for the redis driver")
		}
	case StorageMemory:
	default:
		return apperrors.NewConfigurationError(fmt.Sprintf("unknown storage.driver %q", c.Storage.Driver))
	}

	if c.API.RateLimit < 0 {
		return apperrors.NewConfigurationError("api.rate_limit must not be negative")
	}
	if c.Monitoring.SamplingRate < 0 || c.Monitoring.SamplingRate > 1 {
		return apperrors.NewConfigurationError("monitoring.sampling_rate must be between 0 and 1")
	}

	return nil
}

// Validate checks that the base URL is present and absolute.
func (c APIConfig) Validate() error {
	if strings.TrimSpace(c.BaseURL) == "" {
		return apperrors.NewConfigurationError("api.base_url is not defined (set ALCHEMORSEL_API_BASE_URL)")
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return apperrors.NewConfigurationError(fmt.Sprintf("api.base_url %q is not an absolute http(s) URL", c.BaseURL)).WithCause(err)
	}
	return nil
}

func defaultStoragePath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "alchemorsel", "storage.json")
}

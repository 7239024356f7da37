package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/ajitpratap0/bgs-goals/internal/eddn"
)

const (
	// DefaultReceiveTimeout is how long the feed may stay silent before a warning is logged.
	DefaultReceiveTimeout = time.Minute

	// DefaultWorkers is the default number of messages processed concurrently.
	DefaultWorkers = 4

	// DefaultCacheTTL bounds how stale interest data may be.
	DefaultCacheTTL = 5 * time.Minute

	// DefaultCarrierRetentionHours is how long fleet carrier sightings are kept.
	DefaultCarrierRetentionHours = 168
)

// Config holds all configuration for bgs-goals.
type Config struct {
	EDDN      EDDNConfig      `mapstructure:"eddn"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Guild     GuildConfig     `mapstructure:"guild"`
	Lifecycle LifecycleConfig `mapstructure:"lifecycle"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	API       APIConfig       `mapstructure:"api"`
}

// EDDNConfig holds feed subscription settings.
type EDDNConfig struct {
	Endpoint       string        `mapstructure:"endpoint"`
	ReceiveTimeout time.Duration `mapstructure:"receive_timeout"`
	MinGameVersion string        `mapstructure:"min_game_version"`
	Workers        int           `mapstructure:"workers"`
}

// MinVersion parses MinGameVersion. Validate has already rejected unparsable values.
func (c EDDNConfig) MinVersion() eddn.Version {
	v, err := eddn.ParseVersion(c.MinGameVersion)
	if err != nil {
		return eddn.DefaultMinGameVersion
	}
	return v
}

// CacheConfig holds interest cache settings.
type CacheConfig struct {
	TTL time.Duration `mapstructure:"ttl"`
}

// DatabaseConfig holds fact store settings.
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// GuildConfig holds write-API settings.
type GuildConfig struct {
	// RequireKnownNames rejects star systems and minor factions the feed has not reported yet.
	RequireKnownNames bool `mapstructure:"require_known_names"`
}

// LifecycleConfig holds retention settings.
type LifecycleConfig struct {
	CarrierRetentionHours int `mapstructure:"carrier_retention_hours"`
}

// CarrierRetention returns the retention as a duration.
func (c LifecycleConfig) CarrierRetention() time.Duration {
	return time.Duration(c.CarrierRetentionHours) * time.Hour
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// APIConfig holds HTTP API server settings.
type APIConfig struct {
	ListenAddr string `mapstructure:"listen_addr"`
	AuthToken  string `mapstructure:"auth_token"`
}

// String returns a safe representation of APIConfig with the token masked.
func (c APIConfig) String() string {
	return fmt.Sprintf("APIConfig{ListenAddr:%s, AuthToken:%s}", c.ListenAddr, maskToken(c.AuthToken))
}

// maskToken shows first 4 + last 4 chars, replacing the middle with asterisks.
func maskToken(token string) string {
	const visible = 4
	if token == "" {
		return ""
	}
	if len(token) <= visible*2 {
		return "***"
	}
	return token[:visible] + "****" + token[len(token)-visible:]
}

// Load reads configuration from an optional .env file, the config file and environment variables.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("reading .env: %w", err)
	}

	v := viper.New()

	// Defaults
	v.SetDefault("eddn.endpoint", eddn.DefaultEndpoint)
	v.SetDefault("eddn.receive_timeout", DefaultReceiveTimeout)
	v.SetDefault("eddn.min_game_version", eddn.DefaultMinGameVersion.String())
	v.SetDefault("eddn.workers", DefaultWorkers)

	v.SetDefault("cache.ttl", DefaultCacheTTL)

	v.SetDefault("database.path", filepath.Join(homeDir(), ".bgs-goals", "bgs.db"))

	v.SetDefault("guild.require_known_names", false)

	v.SetDefault("lifecycle.carrier_retention_hours", DefaultCarrierRetentionHours)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")

	v.SetDefault("api.listen_addr", ":8080")
	v.SetDefault("api.auth_token", "")

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(filepath.Join(homeDir(), ".bgs-goals"))
	v.AddConfigPath(".")

	// Environment variables
	v.SetEnvPrefix("BGS_GOALS")
	v.AutomaticEnv()

	// Map specific env vars
	_ = v.BindEnv("eddn.endpoint", "BGS_GOALS_EDDN_ENDPOINT")
	_ = v.BindEnv("eddn.workers", "BGS_GOALS_EDDN_WORKERS")
	_ = v.BindEnv("database.path", "BGS_GOALS_DATABASE_PATH")
	_ = v.BindEnv("logging.level", "BGS_GOALS_LOGGING_LEVEL")
	_ = v.BindEnv("api.listen_addr", "BGS_GOALS_API_LISTEN_ADDR")
	_ = v.BindEnv("api.auth_token", "BGS_GOALS_API_AUTH_TOKEN")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// Validate checks that required configuration fields are set and consistent.
func (c *Config) Validate() error {
	if c.EDDN.Endpoint == "" {
		return fmt.Errorf("eddn.endpoint must not be empty")
	}
	if c.EDDN.ReceiveTimeout <= 0 {
		return fmt.Errorf("eddn.receive_timeout must be greater than 0")
	}
	if _, err := eddn.ParseVersion(c.EDDN.MinGameVersion); err != nil {
		return fmt.Errorf("eddn.min_game_version: %w", err)
	}
	if c.EDDN.Workers <= 0 {
		return fmt.Errorf("eddn.workers must be greater than 0")
	}
	if c.Cache.TTL <= 0 {
		return fmt.Errorf("cache.ttl must be greater than 0")
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path must not be empty")
	}
	if c.Lifecycle.CarrierRetentionHours < 0 {
		return fmt.Errorf("lifecycle.carrier_retention_hours must be >= 0")
	}
	return nil
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}

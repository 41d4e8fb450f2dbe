package config

import (
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// StartupMode defines how launch failures of best-effort steps are handled
type StartupMode string

const (
	// StartupModeStrict treats the mapping provider step as mandatory (default)
	StartupModeStrict StartupMode = "strict"
	// StartupModeGraceful launches without the mapping provider, logging the failure
	StartupModeGraceful StartupMode = "graceful"
)

// Credential providers
const (
	ProviderEnv   = "env"
	ProviderVault = "vault"
	ProviderAWS   = "aws"
)

// Config holds all configuration for the launch sequence
type Config struct {
	// StartupMode controls whether mapping setup may fail without aborting launch
	StartupMode StartupMode `mapstructure:"startup_mode" validate:"oneof=strict graceful"`

	// StepTimeout is the time budget of each bootstrap step
	StepTimeout time.Duration `mapstructure:"step_timeout" validate:"gt=0"`

	LogLevel string `mapstructure:"log_level" validate:"oneof=debug info warn error"`

	App struct {
		Name string `mapstructure:"name" validate:"required"`
	} `mapstructure:"app"`

	Mapping struct {
		// KeyPattern is the regular expression API keys must match
		KeyPattern string `mapstructure:"key_pattern"`
	} `mapstructure:"mapping"`

	Credentials struct {
		Provider  string        `mapstructure:"provider" validate:"oneof=env vault aws"`
		Key       string        `mapstructure:"key" validate:"required"` // env var name, Vault field or AWS JSON field
		CacheTTL  time.Duration `mapstructure:"cache_ttl" validate:"gte=0"`
		CacheSize int           `mapstructure:"cache_size" validate:"gte=1"`
		Vault     struct {
			Address string `mapstructure:"address"`
			Token   string `mapstructure:"token"`
			Path    string `mapstructure:"path"`
		} `mapstructure:"vault"`
		AWS struct {
			Region    string `mapstructure:"region"`
			SecretID  string `mapstructure:"secret_id"`
			AccessKey string `mapstructure:"access_key"`
			SecretKey string `mapstructure:"secret_key"`
		} `mapstructure:"aws"`
	} `mapstructure:"credentials"`

	Extensions struct {
		Disabled []string `mapstructure:"disabled"`
	} `mapstructure:"extensions"`

	Status struct {
		Enabled   bool   `mapstructure:"enabled"`
		Addr      string `mapstructure:"addr" validate:"required_if=Enabled true"`
		RateLimit struct {
			RequestsPerSecond float64 `mapstructure:"requests_per_second" validate:"gte=0"`
			Burst             int     `mapstructure:"burst" validate:"gte=0"`
		} `mapstructure:"rate_limit"`
	} `mapstructure:"status"`

	Launch struct {
		// OptionsSchema is an optional JSON schema file for launch options
		OptionsSchema string `mapstructure:"options_schema"`
	} `mapstructure:"launch"`

	Journal struct {
		Backend    string `mapstructure:"backend" validate:"oneof=none sqlite redis"`
		SQLitePath string `mapstructure:"sqlite_path"`
		Redis      struct {
			Addr       string `mapstructure:"addr"`
			Password   string `mapstructure:"password"`
			DB         int    `mapstructure:"db" validate:"gte=0"`
			Key        string `mapstructure:"key"`
			MaxEntries int    `mapstructure:"max_entries" validate:"gte=0"`
		} `mapstructure:"redis"`
	} `mapstructure:"journal"`

	// FileUsed is the config file that was read, empty when running on defaults
	FileUsed string `mapstructure:"-"`
}

var validate = validator.New()

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("startup_mode", string(StartupModeStrict))
	v.SetDefault("step_timeout", 5*time.Second)
	v.SetDefault("log_level", "info")
	v.SetDefault("app.name", "launchseq")

	v.SetDefault("mapping.key_pattern", `^AIza[0-9A-Za-z_\-]{35}$`)

	v.SetDefault("credentials.provider", ProviderEnv)
	v.SetDefault("credentials.key", "LAUNCHSEQ_MAPS_API_KEY")
	v.SetDefault("credentials.cache_ttl", 10*time.Minute)
	v.SetDefault("credentials.cache_size", 16)
	v.SetDefault("credentials.vault.address", "http://127.0.0.1:8200")
	v.SetDefault("credentials.vault.token", "")
	v.SetDefault("credentials.vault.path", "secret/launchseq")
	v.SetDefault("credentials.aws.region", "")
	v.SetDefault("credentials.aws.secret_id", "launchseq/credentials")
	v.SetDefault("credentials.aws.access_key", "")
	v.SetDefault("credentials.aws.secret_key", "")

	v.SetDefault("extensions.disabled", []string{})

	v.SetDefault("status.enabled", false)
	v.SetDefault("status.addr", "127.0.0.1:8090")
	v.SetDefault("status.rate_limit.requests_per_second", 20.0)
	v.SetDefault("status.rate_limit.burst", 40)

	v.SetDefault("launch.options_schema", "")

	v.SetDefault("journal.backend", "none")
	v.SetDefault("journal.sqlite_path", "./data/launches.db")
	v.SetDefault("journal.redis.addr", "localhost:6379")
	v.SetDefault("journal.redis.password", "")
	v.SetDefault("journal.redis.db", 0)
	v.SetDefault("journal.redis.key", "launchseq:launches")
	v.SetDefault("journal.redis.max_entries", 1000)
}

// loadFromEnv sets up environment variable loading
func loadFromEnv(v *viper.Viper) {
	v.SetEnvPrefix("LAUNCHSEQ")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	_ = v.BindEnv("startup_mode", "LAUNCHSEQ_STARTUP_MODE")
	_ = v.BindEnv("credentials.vault.token", "LAUNCHSEQ_VAULT_TOKEN", "VAULT_TOKEN")
}

// LoadConfig loads configuration from file and environment variables.
// An empty path searches for launchseq.yaml in . and ./config; a missing
// file is not an error in that case.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("launchseq")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	setDefaults(v)
	loadFromEnv(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	config.FileUsed = v.ConfigFileUsed()

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

// IsGracefulMode returns true if the startup mode is graceful
func (c *Config) IsGracefulMode() bool {
	return c.StartupMode == StartupModeGraceful
}

// validateConfig validates the configuration for security and correctness
func validateConfig(config *Config) error {
	if err := validate.Struct(config); err != nil {
		return err
	}

	switch config.Credentials.Provider {
	case ProviderVault:
		if config.Credentials.Vault.Address == "" {
			return fmt.Errorf("credentials.vault.address is required for the vault provider")
		}
		if config.Credentials.Vault.Path == "" {
			return fmt.Errorf("credentials.vault.path is required for the vault provider")
		}
	case ProviderAWS:
		if config.Credentials.AWS.Region == "" {
			return fmt.Errorf("credentials.aws.region is required for the aws provider")
		}
		if (config.Credentials.AWS.AccessKey == "") != (config.Credentials.AWS.SecretKey == "") {
			return fmt.Errorf("credentials.aws.access_key and secret_key must be set together")
		}
	}

	if config.Status.Enabled {
		if _, _, err := net.SplitHostPort(config.Status.Addr); err != nil {
			return fmt.Errorf("invalid status.addr %q: %w", config.Status.Addr, err)
		}
	}

	switch config.Journal.Backend {
	case "sqlite":
		if config.Journal.SQLitePath == "" {
			return fmt.Errorf("journal.sqlite_path is required for the sqlite backend")
		}
	case "redis":
		if config.Journal.Redis.Addr == "" {
			return fmt.Errorf("journal.redis.addr is required for the redis backend")
		}
	}

	return nil
}

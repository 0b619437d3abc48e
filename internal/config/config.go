package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/aliskhannn/chorequest-bot/internal/domain/entities"
)

var (
	ErrMissingEnvironmentVariables = errors.New("missing required environment variables")
	ErrUnknownStore                = errors.New("unknown store backend")
)

// Store backends.
const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

// Config holds application configuration loaded from files and environment variables.
type Config struct {
	Env         string      `mapstructure:"env"`   // current application environment (local, dev, production etc)
	Store       string      `mapstructure:"store"` // postgres or memory
	DB          DB          `mapstructure:"database"`
	Redis       Redis       `mapstructure:"redis"`
	HTTP        HTTP        `mapstructure:"http"`
	Telegram    Telegram    `mapstructure:"telegram"`
	Progression Progression `mapstructure:"progression"`
	Digest      Digest      `mapstructure:"digest"`
	CatalogPath string      `mapstructure:"catalog_path"` // optional override of the embedded achievement catalog
}

// DB contains database-related configuration parameters.
type DB struct {
	URL             string        `mapstructure:"-"`                 // database connection string loaded from environment
	MaxConnections  int32         `mapstructure:"max_connections"`   // maximum number of open connections in the pool
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"` // maximum lifetime of a single connection
	AutoMigrate     bool          `mapstructure:"auto_migrate"`      // apply migrations on start
}

// DSN returns the database connection string if it is configured.
func (db DB) DSN() (string, error) {
	if db.URL == "" {
		return "", ErrMissingEnvironmentVariables
	}
	return db.URL, nil
}

// Redis configures the transition stream consumer. An empty Addr disables it.
type Redis struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"-"`
	DB       int           `mapstructure:"db"`
	Stream   string        `mapstructure:"stream"`
	Group    string        `mapstructure:"group"`
	Consumer string        `mapstructure:"consumer"`
	Block    time.Duration `mapstructure:"block"`
	MinIdle  time.Duration `mapstructure:"min_idle"`
}

// HTTP configures the API server. An empty Addr disables it.
type HTTP struct {
	Addr    string        `mapstructure:"addr"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// Telegram configures the bot. Without a token notifications are only logged.
type Telegram struct {
	Token    string `mapstructure:"-"`
	Debug    bool   `mapstructure:"debug"`
	Commands bool   `mapstructure:"commands"` // answer bot commands
}

// Progression tunes the completion pipeline.
type Progression struct {
	Timezone       string        `mapstructure:"timezone"` // calendar-day boundary for streaks
	MaxAttempts    int           `mapstructure:"max_attempts"`
	InitialBackoff time.Duration `mapstructure:"initial_backoff"`
	MaxBackoff     time.Duration `mapstructure:"max_backoff"`
}

// Location resolves the streak timezone.
func (p Progression) Location() (*time.Location, error) {
	return entities.ParseTimezoneLocation(p.Timezone)
}

// Digest configures the daily chore digest. An empty Schedule disables it.
type Digest struct {
	Schedule    string `mapstructure:"schedule"`
	Timezone    string `mapstructure:"timezone"`
	Limit       int    `mapstructure:"limit"`
	Shown       int    `mapstructure:"shown"`
	Concurrency int    `mapstructure:"concurrency"`
}

// Location resolves the digest timezone.
func (d Digest) Location() (*time.Location, error) {
	return entities.ParseTimezoneLocation(d.Timezone)
}

// Load reads configuration from an optional file, a .env file and the
// environment. An empty path looks for ./config/config.yaml.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("error loading .env file: %w", err)
	}

	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
	}

	setDefaults(v)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_")) // map nested keys to ENV style names
	v.AutomaticEnv()

	_ = v.BindEnv("telegram_api_token", "TELEGRAM_API_TOKEN")
	_ = v.BindEnv("database_url", "DATABASE_URL")
	_ = v.BindEnv("redis_password", "REDIS_PASSWORD")
	_ = v.BindEnv("env", "APP_ENV")

	if err := v.ReadInConfig(); err != nil {
		var fileLookupErr viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &fileLookupErr) {
			return nil, fmt.Errorf("error loading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %w", err)
	}

	cfg.Telegram.Token = v.GetString("telegram_api_token")
	cfg.DB.URL = v.GetString("database_url")
	cfg.Redis.Password = v.GetString("redis_password")

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("env", "local")
	v.SetDefault("store", StorePostgres)
	v.SetDefault("catalog_path", "")

	v.SetDefault("database.max_connections", 20)
	v.SetDefault("database.max_conn_lifetime", "30m")
	v.SetDefault("database.auto_migrate", false)

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.stream", "chore_transitions")
	v.SetDefault("redis.group", "progression")
	v.SetDefault("redis.consumer", "")
	v.SetDefault("redis.block", "5s")
	v.SetDefault("redis.min_idle", "1m")

	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.timeout", "30s")

	v.SetDefault("telegram.debug", false)
	v.SetDefault("telegram.commands", true)

	v.SetDefault("progression.timezone", "UTC")
	v.SetDefault("progression.max_attempts", 4)
	v.SetDefault("progression.initial_backoff", "20ms")
	v.SetDefault("progression.max_backoff", "500ms")

	v.SetDefault("digest.schedule", "0 8 * * *")
	v.SetDefault("digest.timezone", "UTC")
	v.SetDefault("digest.limit", 10)
	v.SetDefault("digest.shown", 5)
	v.SetDefault("digest.concurrency", 10)
}

// Validate checks values that cannot be defaulted.
func (c *Config) Validate() error {
	switch c.Store {
	case StorePostgres:
		if c.DB.URL == "" {
			return fmt.Errorf("%w: DATABASE_URL", ErrMissingEnvironmentVariables)
		}
	case StoreMemory:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownStore, c.Store)
	}

	if _, err := c.Progression.Location(); err != nil {
		return fmt.Errorf("progression.timezone: %w", err)
	}
	if _, err := c.Digest.Location(); err != nil {
		return fmt.Errorf("digest.timezone: %w", err)
	}
	if c.Progression.MaxAttempts < 1 {
		return errors.New("progression.max_attempts must be at least 1")
	}

	return nil
}

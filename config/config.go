// Package config loads the settings of the invoicepdf commands.
//
// Values come from defaults, then an optional YAML file, then the
// environment. A .env file is read into the environment first; variables
// already set win over it.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/lvillar/invoicepdf/assets"
	"github.com/lvillar/invoicepdf/layout"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "INVOICEPDF_"

// Config holds all settings.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Assets   AssetsConfig   `yaml:"assets"`
	Cache    CacheConfig    `yaml:"cache"`
	Render   RenderConfig   `yaml:"render"`
	Log      LogConfig      `yaml:"log"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr             string        `yaml:"addr"`
	RequestTimeout   time.Duration `yaml:"request_timeout"`
	ReadTimeout      time.Duration `yaml:"read_timeout"`
	WriteTimeout     time.Duration `yaml:"write_timeout"`
	GracefulShutdown time.Duration `yaml:"graceful_shutdown"`
	MaxBodyBytes     int64         `yaml:"max_body_bytes"`
}

// DatabaseConfig selects the document store. An empty driver disables it.
type DatabaseConfig struct {
	Driver  string `yaml:"driver"` // sqlite or postgres
	DSN     string `yaml:"dsn"`
	Migrate bool   `yaml:"migrate"`
	Debug   bool   `yaml:"debug"`
}

// AssetsConfig configures asset fetching.
type AssetsConfig struct {
	Root      string        `yaml:"root"`
	AllowHTTP bool          `yaml:"allow_http"`
	Timeout   time.Duration `yaml:"timeout"`
	MaxBytes  int64         `yaml:"max_bytes"`
}

// CacheConfig selects the shared asset cache.
type CacheConfig struct {
	Driver string        `yaml:"driver"` // none, memory or redis
	TTL    time.Duration `yaml:"ttl"`
	Redis  RedisConfig   `yaml:"redis"`
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
	Prefix   string `yaml:"prefix"`
}

// RenderConfig holds engine settings.
type RenderConfig struct {
	Validate bool           `yaml:"validate"`
	Metrics  layout.Metrics `yaml:"metrics"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level   string `yaml:"level"`
	Format  string `yaml:"format"` // json or console
	Service string `yaml:"service"`
}

// Default returns the development defaults.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:             ":8080",
			RequestTimeout:   30 * time.Second,
			ReadTimeout:      15 * time.Second,
			WriteTimeout:     60 * time.Second,
			GracefulShutdown: 10 * time.Second,
			MaxBodyBytes:     8 << 20,
		},
		Assets: AssetsConfig{
			Timeout:  10 * time.Second,
			MaxBytes: 10 << 20,
		},
		Cache: CacheConfig{
			Driver: "memory",
			TTL:    24 * time.Hour,
			Redis: RedisConfig{
				Addr:     "localhost:6379",
				PoolSize: 10,
				Prefix:   "invoicepdf:",
			},
		},
		Render: RenderConfig{
			Validate: true,
			Metrics:  layout.DefaultMetrics(),
		},
		Log: LogConfig{
			Level:   "info",
			Format:  "json",
			Service: "invoicepdf",
		},
	}
}

// Load reads the YAML file at path (optional) and applies the environment.
// envFiles are loaded with godotenv; when none are given, ./.env is used if
// it exists.
func Load(path string, envFiles ...string) (*Config, error) {
	if err := loadDotenv(envFiles); err != nil {
		return nil, err
	}

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

func loadDotenv(files []string) error {
	if len(files) == 0 {
		if _, err := os.Stat(".env"); err != nil {
			return nil
		}
		files = []string{".env"}
	}
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load env file: %w", err)
	}
	return nil
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "", "sqlite", "postgres":
	default:
		return fmt.Errorf("invalid database driver: %s", c.Database.Driver)
	}
	if c.Database.Driver != "" && c.Database.DSN == "" {
		return fmt.Errorf("database driver %s needs a dsn", c.Database.Driver)
	}

	switch c.Cache.Driver {
	case "", "none", "memory":
	case "redis":
		if c.Cache.Redis.Addr == "" {
			return errors.New("redis cache needs an address")
		}
	default:
		return fmt.Errorf("invalid cache driver: %s", c.Cache.Driver)
	}

	switch c.Log.Format {
	case "", "json", "console":
	default:
		return fmt.Errorf("invalid log format: %s", c.Log.Format)
	}

	if c.Server.RequestTimeout < 0 || c.Server.MaxBodyBytes < 0 {
		return errors.New("server limits must not be negative")
	}
	return c.Render.Metrics.Validate()
}

// AssetConfig converts the asset settings for assets.New.
func (c *Config) AssetConfig(shared assets.Cache) assets.Config {
	return assets.Config{
		Root:      c.Assets.Root,
		AllowHTTP: c.Assets.AllowHTTP,
		Timeout:   c.Assets.Timeout,
		MaxBytes:  c.Assets.MaxBytes,
		Shared:    shared,
		TTL:       c.Cache.TTL,
	}
}

// RedisCacheConfig converts the Redis settings for assets.NewRedisCache.
func (c *Config) RedisCacheConfig() assets.RedisConfig {
	r := c.Cache.Redis
	return assets.RedisConfig{
		Addr:     r.Addr,
		Password: r.Password,
		DB:       r.DB,
		PoolSize: r.PoolSize,
		Prefix:   r.Prefix,
	}
}

// applyEnvOverrides applies INVOICEPDF_* variables.
func applyEnvOverrides(cfg *Config) error {
	str := func(key string, dst *string) {
		if v, ok := os.LookupEnv(EnvPrefix + key); ok {
			*dst = v
		}
	}
	str("SERVER_ADDR", &cfg.Server.Addr)
	str("DB_DRIVER", &cfg.Database.Driver)
	str("DB_DSN", &cfg.Database.DSN)
	str("ASSETS_ROOT", &cfg.Assets.Root)
	str("CACHE_DRIVER", &cfg.Cache.Driver)
	str("REDIS_PASSWORD", &cfg.Cache.Redis.Password)
	str("LOG_LEVEL", &cfg.Log.Level)
	str("LOG_FORMAT", &cfg.Log.Format)

	if v := os.Getenv(EnvPrefix + "REDIS_URL"); v != "" {
		cfg.Cache.Driver = "redis"
		cfg.Cache.Redis.Addr = strings.TrimPrefix(v, "redis://")
	}

	for key, dst := range map[string]*bool{
		"ASSETS_ALLOW_HTTP": &cfg.Assets.AllowHTTP,
		"DB_MIGRATE":        &cfg.Database.Migrate,
		"RENDER_VALIDATE":   &cfg.Render.Validate,
	} {
		if v := os.Getenv(EnvPrefix + key); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("invalid boolean for %s%s: %q", EnvPrefix, key, v)
			}
			*dst = b
		}
	}

	if v := os.Getenv(EnvPrefix + "REQUEST_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid duration for %sREQUEST_TIMEOUT: %w", EnvPrefix, err)
		}
		cfg.Server.RequestTimeout = d
	}
	return nil
}

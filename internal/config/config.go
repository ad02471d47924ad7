// Package config loads PastelFeed settings from defaults, an optional
// config.yaml in the working directory, and environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Config is the full runtime configuration. It is built once at startup and
// passed down explicitly.
type Config struct {
	Port      string
	Env       string
	LogLevel  string
	LogFormat string

	DatabaseDriver string
	DatabaseDSN    string

	SessionStore      string
	SessionExpiration time.Duration
	SessionCookieName string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	RabbitMQURL   string
	RabbitMQQueue string

	UploadDir        string
	UploadPublicPath string
	WebDir           string

	CORSAllowOrigins string
	BodyLimit        int
}

// IsProduction reports whether internal error detail must be hidden and
// cookies marked Secure.
func (c *Config) IsProduction() bool {
	return c.Env == EnvProduction
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_PORT", ":3001")
	v.SetDefault("APP_ENV", EnvDevelopment)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("DATABASE_DRIVER", "sqlite")
	v.SetDefault("DATABASE_DSN", "pastelfeed.db?_foreign_keys=on&_busy_timeout=5000")

	v.SetDefault("SESSION_STORE", "sql")
	v.SetDefault("SESSION_EXPIRATION", 24*time.Hour)
	v.SetDefault("SESSION_COOKIE_NAME", "pastelfeed.sid")

	v.SetDefault("REDIS_ADDR", "127.0.0.1:6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("RABBITMQ_URL", "")
	v.SetDefault("RABBITMQ_QUEUE", "wall_events")

	v.SetDefault("UPLOAD_DIR", "uploads")
	v.SetDefault("UPLOAD_PUBLIC_PATH", "/uploads")
	v.SetDefault("WEB_DIR", "web")

	v.SetDefault("CORS_ALLOW_ORIGINS", strings.Join([]string{
		"http://localhost:8080",
		"http://127.0.0.1:8080",
		"http://localhost:5500",
		"http://127.0.0.1:5500",
		"http://localhost:3000",
		"http://127.0.0.1:3000",
		"http://localhost:3001",
		"http://127.0.0.1:3001",
	}, ","))
	v.SetDefault("BODY_LIMIT", 12*1024*1024)
}

// Load reads the configuration. A missing config.yaml is not an error.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}
	v.AutomaticEnv()

	return fromViper(v)
}

// Default returns the built-in defaults without consulting files or the
// environment.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	cfg, _ := fromViper(v)
	return cfg
}

func fromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Port:      v.GetString("APP_PORT"),
		Env:       strings.ToLower(v.GetString("APP_ENV")),
		LogLevel:  v.GetString("LOG_LEVEL"),
		LogFormat: v.GetString("LOG_FORMAT"),

		DatabaseDriver: strings.ToLower(v.GetString("DATABASE_DRIVER")),
		DatabaseDSN:    v.GetString("DATABASE_DSN"),

		SessionStore:      strings.ToLower(v.GetString("SESSION_STORE")),
		SessionExpiration: v.GetDuration("SESSION_EXPIRATION"),
		SessionCookieName: v.GetString("SESSION_COOKIE_NAME"),

		RedisAddr:     v.GetString("REDIS_ADDR"),
		RedisPassword: v.GetString("REDIS_PASSWORD"),
		RedisDB:       v.GetInt("REDIS_DB"),

		RabbitMQURL:   v.GetString("RABBITMQ_URL"),
		RabbitMQQueue: v.GetString("RABBITMQ_QUEUE"),

		UploadDir:        v.GetString("UPLOAD_DIR"),
		UploadPublicPath: strings.TrimRight(v.GetString("UPLOAD_PUBLIC_PATH"), "/"),
		WebDir:           v.GetString("WEB_DIR"),

		CORSAllowOrigins: v.GetString("CORS_ALLOW_ORIGINS"),
		BodyLimit:        v.GetInt("BODY_LIMIT"),
	}

	if cfg.Port != "" && !strings.Contains(cfg.Port, ":") {
		cfg.Port = ":" + cfg.Port
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.DatabaseDriver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("unsupported DATABASE_DRIVER %q", c.DatabaseDriver)
	}
	switch c.SessionStore {
	case "sql", "redis", "memory":
	default:
		return fmt.Errorf("unsupported SESSION_STORE %q", c.SessionStore)
	}
	if c.SessionExpiration <= 0 {
		return fmt.Errorf("SESSION_EXPIRATION must be positive")
	}
	if c.UploadPublicPath == "" {
		return fmt.Errorf("UPLOAD_PUBLIC_PATH must not be empty")
	}
	return nil
}

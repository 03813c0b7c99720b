package config

import (
	"fmt"
	"time"
)

// Config is the root application configuration.
type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Auth     AuthConfig     `yaml:"auth"`
	Notify   NotifyConfig   `yaml:"notify"`
	Vision   VisionConfig   `yaml:"vision"`
	Log      LogConfig      `yaml:"log"`
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	DSN             string        `yaml:"dsn"                env:"DATABASE_DSN"                env-required:"true"`
	MaxConns        int32         `yaml:"max_conns"          env:"DATABASE_MAX_CONNS"          env-default:"25"`
	MinConns        int32         `yaml:"min_conns"          env:"DATABASE_MIN_CONNS"          env-default:"5"`
	MaxConnLifetime time.Duration `yaml:"max_conn_lifetime"  env:"DATABASE_MAX_CONN_LIFETIME"  env-default:"1h"`
	MaxConnIdleTime time.Duration `yaml:"max_conn_idle_time" env:"DATABASE_MAX_CONN_IDLE_TIME" env-default:"30m"`
}

// AuthConfig holds JWT settings.
type AuthConfig struct {
	JWTSecret string        `yaml:"jwt_secret" env:"AUTH_JWT_SECRET" env-required:"true"`
	TokenTTL  time.Duration `yaml:"token_ttl"  env:"AUTH_TOKEN_TTL"  env-default:"24h"`
}

// NotifyConfig holds vendor-webhook delivery settings.
type NotifyConfig struct {
	WebhookURL string        `yaml:"webhook_url" env:"NOTIFY_WEBHOOK_URL"`
	Timeout    time.Duration `yaml:"timeout"     env:"NOTIFY_TIMEOUT"     env-default:"10s"`
}

// VisionConfig selects the image-description backend. An empty provider
// disables the feature; anything else must be one of the supported values.
type VisionConfig struct {
	Provider string        `yaml:"provider" env:"VISION_PROVIDER"`
	APIKey   string        `yaml:"api_key"  env:"VISION_API_KEY"`
	Model    string        `yaml:"model"    env:"VISION_MODEL"`
	Timeout  time.Duration `yaml:"timeout"  env:"VISION_TIMEOUT" env-default:"20s"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `yaml:"level"  env:"LOG_LEVEL"  env-default:"info"`
	Format string `yaml:"format" env:"LOG_FORMAT" env-default:"json"`
}

// Validate rejects configuration values outside their closed sets.
func (c Config) Validate() error {
	switch c.Vision.Provider {
	case "", "openai", "gemini":
	default:
		return fmt.Errorf("config: unsupported vision provider %q", c.Vision.Provider)
	}
	if c.Vision.Provider != "" && c.Vision.APIKey == "" {
		return fmt.Errorf("config: vision provider %q configured without api key", c.Vision.Provider)
	}
	return nil
}

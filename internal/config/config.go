package config

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const (
	TransportTelegram = "telegram"
	TransportDiscord  = "discord"

	minJWTSecret = 32
)

type Config struct {
	Transport string `env:"TRANSPORT" envDefault:"telegram"`

	// Chat platforms
	TelegramToken string `env:"TELEGRAM_TOKEN"`
	DiscordToken  string `env:"DISCORD_TOKEN"`

	// Storage: postgres://..., sqlite:<path>, or empty for in-memory
	DatabaseURL string `env:"DATABASE_URL"`
	RedisURL    string `env:"REDIS_URL"`

	// Web Server
	WebBind         string `env:"WEB_BIND" envDefault:"0.0.0.0:8443"`
	Domain          string `env:"DOMAIN"`
	WebhookBasePath string `env:"WEBHOOK_BASE_PATH" envDefault:"/webhook"`
	WebhookSecret   string `env:"WEBHOOK_SECRET"`

	// Signs bearer tokens for /api/session; empty disables that route
	APIJWTSecret string        `env:"API_JWT_SECRET"`
	APITokenTTL  time.Duration `env:"API_TOKEN_TTL" envDefault:"720h"`

	// Ordering
	DiscountPercent  int           `env:"DISCOUNT_PERCENT" envDefault:"30"`
	WarningTTL       time.Duration `env:"WARNING_TTL" envDefault:"5s"`
	ReminderInterval time.Duration `env:"REMINDER_INTERVAL" envDefault:"0s"`
	DedupTTL         time.Duration `env:"DEDUP_TTL" envDefault:"10m"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`
}

func Load() (*Config, error) {
	// Load environment variables from .env if present (non-fatal if missing)
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if cfg.WebhookSecret == "" {
		secret, err := randomSecret(48)
		if err != nil {
			return nil, err
		}
		cfg.WebhookSecret = secret
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Transport {
	case TransportTelegram:
		if c.TelegramToken == "" {
			return fmt.Errorf("TELEGRAM_TOKEN is required")
		}
	case TransportDiscord:
		if c.DiscordToken == "" {
			return fmt.Errorf("DISCORD_TOKEN is required")
		}
	default:
		return fmt.Errorf("TRANSPORT must be %q or %q, got %q", TransportTelegram, TransportDiscord, c.Transport)
	}
	if c.DiscountPercent < 0 || c.DiscountPercent > 100 {
		return fmt.Errorf("DISCOUNT_PERCENT must be within 0..100")
	}
	if !strings.HasPrefix(c.WebhookBasePath, "/") {
		return fmt.Errorf("WEBHOOK_BASE_PATH must start with /")
	}
	if c.APIJWTSecret != "" && len(c.APIJWTSecret) < minJWTSecret {
		return fmt.Errorf("API_JWT_SECRET must be at least %d bytes", minJWTSecret)
	}
	return nil
}

// WebhookPath is the secret route Telegram posts updates to.
func (c *Config) WebhookPath() string {
	return strings.TrimRight(c.WebhookBasePath, "/") + "/" + c.WebhookSecret
}

// WebhookURL is empty when no public domain is configured; the bot polls then.
func (c *Config) WebhookURL() string {
	if c.Domain == "" {
		return ""
	}
	return fmt.Sprintf("https://%s%s", c.Domain, c.WebhookPath())
}

func randomSecret(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate webhook secret: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// File: internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type HTTPConfig struct {
	Port           int           `yaml:"port"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	CORSOrigins    []string      `yaml:"cors_origins"`
	RateLimit      int           `yaml:"rate_limit"`        // payment/renewal calls per user per window
	RateLimitWin   time.Duration `yaml:"rate_limit_window"` // window for rate_limit
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type AdminConfig struct {
	Port   int    `yaml:"port"`
	APIKey string `yaml:"api_key"`
}

type DatabaseConfig struct {
	// URL empty selects the in-memory store.
	URL string `yaml:"url"`
}

type RedisConfig struct {
	// URL empty disables the status cache, distributed rate limiting and event fan-out.
	URL      string        `yaml:"url"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`     // premium status cache ttl
	Channel  string        `yaml:"channel"` // pub/sub channel for subscription events
}

type AuthConfig struct {
	JWTSecret  string        `yaml:"jwt_secret"`
	Issuer     string        `yaml:"issuer"`
	CookieName string        `yaml:"cookie_name"`
	TokenTTL   time.Duration `yaml:"token_ttl"`
}

type SubscriptionConfig struct {
	PeriodDays          int      `yaml:"period_days"`
	PlanType            string   `yaml:"plan_type"`
	StalePolicy         string   `yaml:"stale_policy"` // fresh_window|extend_stale
	SupportedCurrencies []string `yaml:"supported_currencies"`
}

type ReconcilerConfig struct {
	Interval   time.Duration `yaml:"interval"`
	StaleAfter time.Duration `yaml:"stale_after"`
}

type PremiumConfig struct {
	// Features lists the feature keys gated behind premium.
	Features []string `yaml:"features"`
}

type Config struct {
	HTTP         HTTPConfig         `yaml:"http"`
	Log          LogConfig          `yaml:"log"`
	Admin        AdminConfig        `yaml:"admin"`
	Database     DatabaseConfig     `yaml:"database"`
	Redis        RedisConfig        `yaml:"redis"`
	Auth         AuthConfig         `yaml:"auth"`
	Subscription SubscriptionConfig `yaml:"subscription"`
	Reconciler   ReconcilerConfig   `yaml:"reconciler"`
	Premium      PremiumConfig      `yaml:"premium"`

	// Language selects the notification catalog; unknown codes use English.
	Language string `yaml:"language"`

	Runtime RuntimeConfig `yaml:"-"`
}

// LoadConfig reads the YAML file at path, loads a .env file when present and
// lets the environment override secrets.
func LoadConfig(path string, dev bool) (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b, dev)
}

// Parse decodes raw YAML and applies env overrides, defaults and validation.
func Parse(b []byte, dev bool) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	overrideFromEnv(&cfg.Database.URL, "DATABASE_URL")
	overrideFromEnv(&cfg.Redis.URL, "REDIS_URL")
	overrideFromEnv(&cfg.Auth.JWTSecret, "AUTH_JWT_SECRET")
	overrideFromEnv(&cfg.Admin.APIKey, "ADMIN_API_KEY")

	applyDefaults(&cfg)

	// Minimal validation
	if cfg.Auth.JWTSecret == "" {
		return nil, errors.New("auth.jwt_secret is required")
	}
	if cfg.Subscription.PeriodDays <= 0 {
		return nil, errors.New("subscription.period_days must be positive")
	}
	switch cfg.Subscription.StalePolicy {
	case "fresh_window", "extend_stale":
	default:
		return nil, fmt.Errorf("subscription.stale_policy %q is not supported", cfg.Subscription.StalePolicy)
	}

	cfg.Runtime.Dev = dev
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.HTTP.Port <= 0 {
		cfg.HTTP.Port = 8080
	}
	if cfg.HTTP.RequestTimeout <= 0 {
		cfg.HTTP.RequestTimeout = 15 * time.Second
	}
	if cfg.HTTP.RateLimit <= 0 {
		cfg.HTTP.RateLimit = 5
	}
	if cfg.HTTP.RateLimitWin <= 0 {
		cfg.HTTP.RateLimitWin = time.Minute
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Admin.Port <= 0 {
		cfg.Admin.Port = 8081
	}
	cfg.Redis.TTL = normalizeTTL(cfg.Redis.TTL)
	if cfg.Redis.Channel == "" {
		cfg.Redis.Channel = "subscription_changed"
	}
	if cfg.Auth.CookieName == "" {
		cfg.Auth.CookieName = "session"
	}
	if cfg.Auth.TokenTTL <= 0 {
		cfg.Auth.TokenTTL = 24 * time.Hour
	}
	if cfg.Subscription.PeriodDays == 0 {
		cfg.Subscription.PeriodDays = 30
	}
	if cfg.Subscription.PlanType == "" {
		cfg.Subscription.PlanType = "premium-monthly"
	}
	cfg.Subscription.StalePolicy = strings.ToLower(strings.TrimSpace(cfg.Subscription.StalePolicy))
	if cfg.Subscription.StalePolicy == "" {
		cfg.Subscription.StalePolicy = "fresh_window"
	}
	if len(cfg.Subscription.SupportedCurrencies) == 0 {
		cfg.Subscription.SupportedCurrencies = []string{"EUR", "USD", "GBP"}
	}
	for i, c := range cfg.Subscription.SupportedCurrencies {
		cfg.Subscription.SupportedCurrencies[i] = strings.ToUpper(strings.TrimSpace(c))
	}
	if len(cfg.Premium.Features) == 0 {
		cfg.Premium.Features = []string{"meal_plans", "export", "health_assistant"}
	}
	if cfg.Language == "" {
		cfg.Language = "en"
	}
	if cfg.Reconciler.Interval <= 0 {
		cfg.Reconciler.Interval = 10 * time.Minute
	}
	if cfg.Reconciler.StaleAfter <= 0 {
		cfg.Reconciler.StaleAfter = 30 * time.Minute
	}
}

// Period returns the renewal period as a duration.
func (s SubscriptionConfig) Period() time.Duration {
	return time.Duration(s.PeriodDays) * 24 * time.Hour
}

func overrideFromEnv(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

func normalizeTTL(d time.Duration) time.Duration {
	if d <= 0 {
		return 2 * time.Minute
	}
	return d
}

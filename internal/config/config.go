package config

import (
	"time"

	"github.com/spf13/viper"
)

type (
	Config struct {
		HTTP
		Global
		Database
		Cache
		Auth
		RateLimit
		Upstream
		Sessions
	}

	HTTP struct {
		Port int32
		Host string
	}
	Global struct {
		ShutdownTimeoutInSeconds int
	}
	Database struct {
		URL string
	}
	Cache struct {
		Enabled  bool
		RedisURL string
		ListTTL  time.Duration // TTL for book listing responses
		BookTTL  time.Duration // TTL for single-book responses
	}
	Auth struct {
		CaptchaSecret   string
		CaptchaDisabled bool // Skip CAPTCHA verification (local dev / tests)
		SecureCookies   bool // Set to false for local dev without HTTPS
		SessionLifetime time.Duration
	}
	RateLimit struct {
		Enabled bool
	}
	Upstream struct {
		AllowedHosts []string
		FetchTimeout time.Duration
	}
	Sessions struct {
		SweepEnabled  bool
		SweepSchedule string // Cron format: "0 * * * *" = hourly
	}
)

func NewConfig() *Config {
	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("port", 8190)
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("shutdown_timeout_in_seconds", 2)
	v.SetDefault("database_url", DefaultDatabaseURL)

	// Cache defaults
	v.SetDefault("cache_enabled", true)
	v.SetDefault("redis_url", "redis://localhost:6379/0")
	v.SetDefault("cache_list_ttl", "60s")
	v.SetDefault("cache_book_ttl", "1h")

	// Auth defaults
	v.SetDefault("captcha_secret", "")
	v.SetDefault("captcha_disabled", false)
	v.SetDefault("auth_secure_cookies", true)
	v.SetDefault("auth_session_lifetime", "6h")

	// Rate limiting defaults
	v.SetDefault("rate_limit_enabled", true)

	// Upstream text fetch defaults
	v.SetDefault("upstream_allowed_hosts", DefaultAllowedHosts)
	v.SetDefault("upstream_fetch_timeout", "15s")

	// Session hygiene defaults
	v.SetDefault("session_sweep_enabled", true)
	v.SetDefault("session_sweep_schedule", "0 * * * *") // Hourly at :00

	return &Config{
		HTTP: HTTP{
			Port: v.GetInt32("PORT"),
			Host: v.GetString("HOST"),
		},
		Global: Global{
			ShutdownTimeoutInSeconds: v.GetInt("SHUTDOWN_TIMEOUT_IN_SECONDS"),
		},
		Database: Database{
			URL: v.GetString("DATABASE_URL"),
		},
		Cache: Cache{
			Enabled:  v.GetBool("CACHE_ENABLED"),
			RedisURL: v.GetString("REDIS_URL"),
			ListTTL:  v.GetDuration("CACHE_LIST_TTL"),
			BookTTL:  v.GetDuration("CACHE_BOOK_TTL"),
		},
		Auth: Auth{
			CaptchaSecret:   v.GetString("CAPTCHA_SECRET"),
			CaptchaDisabled: v.GetBool("CAPTCHA_DISABLED"),
			SecureCookies:   v.GetBool("AUTH_SECURE_COOKIES"),
			SessionLifetime: v.GetDuration("AUTH_SESSION_LIFETIME"),
		},
		RateLimit: RateLimit{
			Enabled: v.GetBool("RATE_LIMIT_ENABLED"),
		},
		Upstream: Upstream{
			AllowedHosts: v.GetStringSlice("UPSTREAM_ALLOWED_HOSTS"),
			FetchTimeout: v.GetDuration("UPSTREAM_FETCH_TIMEOUT"),
		},
		Sessions: Sessions{
			SweepEnabled:  v.GetBool("SESSION_SWEEP_ENABLED"),
			SweepSchedule: v.GetString("SESSION_SWEEP_SCHEDULE"),
		},
	}
}

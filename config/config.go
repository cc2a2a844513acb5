package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cast"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	JWT       JWTConfig       `yaml:"jwt"`
	Cashfree  CashfreeConfig  `yaml:"cashfree"`
	SMTP      SMTPConfig      `yaml:"smtp"`
	Redis     RedisConfig     `yaml:"redis"`
	Logging   LoggingConfig   `yaml:"logging"`
	OTP       OTPConfig       `yaml:"otp"`
	Reconcile ReconcileConfig `yaml:"reconcile"`
	RateLimit RateLimitConfig `yaml:"ratelimit"`
	Admin     AdminConfig     `yaml:"admin"`
}

type ServerConfig struct {
	Port            string        `yaml:"port"`
	Mode            string        `yaml:"mode"` // gin mode: debug, release, test
	Env             string        `yaml:"env"`  // development or production
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type DatabaseConfig struct {
	Driver       string `yaml:"driver"` // postgres or sqlite
	DSN          string `yaml:"dsn"`
	MaxOpenConns int    `yaml:"max_open_conns"`
	MaxIdleConns int    `yaml:"max_idle_conns"`
}

type JWTConfig struct {
	Secret string        `yaml:"secret"`
	TTL    time.Duration `yaml:"ttl"`
}

type CashfreeConfig struct {
	BaseURL        string        `yaml:"base_url"`
	ClientID       string        `yaml:"client_id"`
	ClientSecret   string        `yaml:"client_secret"`
	APIVersion     string        `yaml:"api_version"`
	WebhookSecret  string        `yaml:"webhook_secret"`
	Currency       string        `yaml:"currency"`
	Timeout        time.Duration `yaml:"timeout"`
	MaxRetries     int           `yaml:"max_retries"`
	InitialBackoff time.Duration `yaml:"initial_backoff"`
}

type SMTPConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
	Workers  int    `yaml:"workers"`
}

// Enabled reports whether outgoing email is configured.
func (c SMTPConfig) Enabled() bool {
	return c.Host != ""
}

type RedisConfig struct {
	Addr       string        `yaml:"addr"`
	Password   string        `yaml:"password"`
	DB         int           `yaml:"db"`
	CatalogTTL time.Duration `yaml:"catalog_ttl"`
}

type LoggingConfig struct {
	Level      string `yaml:"level"`
	Filename   string `yaml:"filename"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

type OTPConfig struct {
	TTL time.Duration `yaml:"ttl"`
}

type ReconcileConfig struct {
	Schedule string        `yaml:"schedule"`
	MinAge   time.Duration `yaml:"min_age"`
	Expiry   time.Duration `yaml:"expiry"`
}

type RateLimitConfig struct {
	AuthRPS   float64 `yaml:"auth_rps"`
	AuthBurst int     `yaml:"auth_burst"`
}

type AdminConfig struct {
	Email    string `yaml:"email"`
	Password string `yaml:"password"`
}

// Default returns the configuration used when no file or env override is present.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            "8080",
			Mode:            "debug",
			Env:             "development",
			ShutdownTimeout: 10 * time.Second,
		},
		Database: DatabaseConfig{
			Driver:       "sqlite",
			DSN:          "home_services.db?_pragma=busy_timeout(5000)",
			MaxOpenConns: 10,
			MaxIdleConns: 5,
		},
		JWT: JWTConfig{
			Secret: "home_services_dev_secret",
			TTL:    7 * 24 * time.Hour,
		},
		Cashfree: CashfreeConfig{
			BaseURL:        "https://sandbox.cashfree.com/pg",
			APIVersion:     "2023-08-01",
			Currency:       "INR",
			Timeout:        15 * time.Second,
			MaxRetries:     2,
			InitialBackoff: 200 * time.Millisecond,
		},
		SMTP: SMTPConfig{Port: 587, Workers: 4},
		Redis: RedisConfig{
			CatalogTTL: 5 * time.Minute,
		},
		Logging: LoggingConfig{
			Level:      "info",
			MaxSizeMB:  50,
			MaxBackups: 5,
			MaxAgeDays: 14,
		},
		OTP: OTPConfig{TTL: 10 * time.Minute},
		Reconcile: ReconcileConfig{
			Schedule: "@every 5m",
			MinAge:   10 * time.Minute,
			Expiry:   24 * time.Hour,
		},
		RateLimit: RateLimitConfig{AuthRPS: 1, AuthBurst: 5},
	}
}

// Load reads .env, then the YAML file at CONFIG_PATH (optional), then env overrides.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	path := getEnv("CONFIG_PATH", "config.yaml")
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	case !errors.Is(err, os.ErrNotExist):
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.Server.Port = getEnv("PORT", c.Server.Port)
	c.Server.Mode = getEnv("GIN_MODE", c.Server.Mode)
	c.Server.Env = getEnv("APP_ENV", c.Server.Env)

	c.Database.Driver = getEnv("DB_DRIVER", c.Database.Driver)
	c.Database.DSN = getEnv("DATABASE_URL", c.Database.DSN)

	c.JWT.Secret = getEnv("JWT_SECRET", c.JWT.Secret)

	c.Cashfree.BaseURL = getEnv("CASHFREE_BASE_URL", c.Cashfree.BaseURL)
	c.Cashfree.ClientID = getEnv("CASHFREE_CLIENT_ID", c.Cashfree.ClientID)
	c.Cashfree.ClientSecret = getEnv("CASHFREE_CLIENT_SECRET", c.Cashfree.ClientSecret)
	c.Cashfree.APIVersion = getEnv("CASHFREE_API_VERSION", c.Cashfree.APIVersion)
	c.Cashfree.WebhookSecret = getEnv("CASHFREE_WEBHOOK_SECRET", c.Cashfree.WebhookSecret)

	c.SMTP.Host = getEnv("SMTP_HOST", c.SMTP.Host)
	if port := cast.ToInt(getEnv("SMTP_PORT", "")); port > 0 {
		c.SMTP.Port = port
	}
	c.SMTP.Username = getEnv("SMTP_USER", c.SMTP.Username)
	c.SMTP.Password = getEnv("SMTP_PASSWORD", c.SMTP.Password)
	c.SMTP.From = getEnv("SMTP_FROM", c.SMTP.From)

	c.Redis.Addr = getEnv("REDIS_ADDR", c.Redis.Addr)
	c.Redis.Password = getEnv("REDIS_PASSWORD", c.Redis.Password)
	c.Redis.DB = cast.ToInt(getEnv("REDIS_DB", cast.ToString(c.Redis.DB)))

	if rps := cast.ToFloat64(getEnv("AUTH_RATE_LIMIT_RPS", "")); rps > 0 {
		c.RateLimit.AuthRPS = rps
	}

	c.Logging.Level = getEnv("LOG_LEVEL", c.Logging.Level)
	c.Logging.Filename = getEnv("LOG_FILE", c.Logging.Filename)

	c.Admin.Email = getEnv("FIRST_ADMIN_EMAIL", c.Admin.Email)
	c.Admin.Password = getEnv("FIRST_ADMIN_PASSWORD", c.Admin.Password)
}

// Validate rejects configurations the server cannot start with.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	if c.Database.DSN == "" {
		return errors.New("database dsn is required")
	}
	if c.JWT.Secret == "" {
		return errors.New("jwt secret is required")
	}
	if c.IsProduction() && c.JWT.Secret == Default().JWT.Secret {
		return errors.New("jwt secret must be set in production")
	}
	if c.JWT.TTL <= 0 {
		return errors.New("jwt ttl must be positive")
	}
	if c.OTP.TTL <= 0 {
		return errors.New("otp ttl must be positive")
	}
	return nil
}

// IsProduction reports whether the server runs with production safeguards.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Server.Env, "production")
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

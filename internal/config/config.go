package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DevelopmentSecret signs credentials when no secret is configured outside production.
const DevelopmentSecret = "spotlog-development-secret-do-not-use-in-production"

// ErrMissingSecret is returned by Validate when production runs without a signing secret.
var ErrMissingSecret = errors.New("config: jwt.secret is required in production")

type Config struct {
	AppEnv       string             `yaml:"app_env"` // development, production, test
	Server       ServerConfig       `yaml:"server"`
	Database     DatabaseConfig     `yaml:"database"`
	JWT          JWTConfig          `yaml:"jwt"`
	Auth         AuthConfig         `yaml:"auth"`
	Redis        RedisConfig        `yaml:"redis"`
	Log          LogConfig          `yaml:"log"`
	Housekeeping HousekeepingConfig `yaml:"housekeeping"`
}

type ServerConfig struct {
	Host           string   `yaml:"host"`
	Port           string   `yaml:"port"`
	Mode           string   `yaml:"mode"` // debug, release, test
	TrustedProxies []string `yaml:"trusted_proxies"`
	AllowOrigins   []string `yaml:"allow_origins"`
}

type DatabaseConfig struct {
	Driver       string `yaml:"driver"` // sqlite, mysql, postgres
	DSN          string `yaml:"dsn"`
	MaxOpenConns int    `yaml:"max_open_conns"`
	MaxIdleConns int    `yaml:"max_idle_conns"`
	LogLevel     string `yaml:"log_level"` // silent, error, warn, info
}

type JWTConfig struct {
	Secret     string        `yaml:"secret"`
	Issuer     string        `yaml:"issuer"`
	AccessTTL  time.Duration `yaml:"access_ttl"`
	RefreshTTL time.Duration `yaml:"refresh_ttl"`
}

type AuthConfig struct {
	MinPasswordLength int          `yaml:"min_password_length"`
	BcryptCost        int          `yaml:"bcrypt_cost"`
	Cookies           CookieConfig `yaml:"cookies"`
}

type CookieConfig struct {
	AccessName  string `yaml:"access_name"`
	RefreshName string `yaml:"refresh_name"`
	RefreshPath string `yaml:"refresh_path"`
	Domain      string `yaml:"domain"`
	// Secure is a pointer so an explicit false in YAML survives defaulting.
	Secure *bool `yaml:"secure"`
}

// RedisConfig for the optional security alert queue
type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

// HousekeepingConfig controls pruning of old session rows and security events.
// It runs outside the request path and is off unless enabled.
type HousekeepingConfig struct {
	Enabled          bool          `yaml:"enabled"`
	Schedule         string        `yaml:"schedule"`
	SessionRetention time.Duration `yaml:"session_retention"`
	EventRetention   time.Duration `yaml:"event_retention"`
}

// Load reads configPath (default config.yaml), falls back to defaults when the
// file does not exist, applies environment overrides and validates the result.
func Load(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = "config.yaml"
	}

	cfg := DefaultConfig()

	data, err := os.ReadFile(configPath)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	case !os.IsNotExist(err):
		return nil, err
	}

	cfg.overrideFromEnv()
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func DefaultConfig() *Config {
	return &Config{
		AppEnv: "development",
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: "8080",
			Mode: "debug",
		},
		Database: DatabaseConfig{
			Driver:       "sqlite",
			DSN:          "spotlog.db",
			MaxOpenConns: 25,
			MaxIdleConns: 5,
			LogLevel:     "warn",
		},
		JWT: JWTConfig{
			Issuer:     "spotlog",
			AccessTTL:  15 * time.Minute,
			RefreshTTL: 30 * 24 * time.Hour,
		},
		Auth: AuthConfig{
			MinPasswordLength: 6,
			BcryptCost:        12,
			Cookies: CookieConfig{
				AccessName:  "access_token",
				RefreshName: "refresh_token",
				RefreshPath: "/api/auth/refresh",
			},
		},
		Redis: RedisConfig{
			Enabled: false,
			Addr:    "localhost:6379",
			DB:      0,
		},
		Log: LogConfig{
			Level: "info",
		},
		Housekeeping: HousekeepingConfig{
			Enabled:          false,
			Schedule:         "@daily",
			SessionRetention: 90 * 24 * time.Hour,
			EventRetention:   180 * 24 * time.Hour,
		},
	}
}

// IsProduction reports whether the process runs with production guarantees.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.AppEnv, "production") || c.Server.Mode == "release"
}

// UsesDevelopmentSecret reports whether Validate substituted DevelopmentSecret.
func (c *Config) UsesDevelopmentSecret() bool {
	return c.JWT.Secret == DevelopmentSecret
}

// SecureCookies resolves the cookie Secure flag, defaulting to on in production.
func (c *Config) SecureCookies() bool {
	if c.Auth.Cookies.Secure != nil {
		return *c.Auth.Cookies.Secure
	}
	return c.IsProduction()
}

// Validate resolves the signing secret. A missing secret is fatal in
// production; elsewhere the fixed development secret is used.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.JWT.Secret) == "" {
		if c.IsProduction() {
			return ErrMissingSecret
		}
		c.JWT.Secret = DevelopmentSecret
	}
	if c.JWT.AccessTTL <= 0 || c.JWT.RefreshTTL <= 0 {
		return errors.New("config: jwt ttls must be positive")
	}
	if c.JWT.AccessTTL >= c.JWT.RefreshTTL {
		return errors.New("config: jwt.access_ttl must be shorter than jwt.refresh_ttl")
	}
	return nil
}

// applyDefaults fills zero values a partial YAML file may leave behind.
func (c *Config) applyDefaults() {
	d := DefaultConfig()
	if c.JWT.Issuer == "" {
		c.JWT.Issuer = d.JWT.Issuer
	}
	if c.Auth.MinPasswordLength <= 0 {
		c.Auth.MinPasswordLength = d.Auth.MinPasswordLength
	}
	if c.Auth.BcryptCost <= 0 {
		c.Auth.BcryptCost = d.Auth.BcryptCost
	}
	if c.Auth.Cookies.AccessName == "" {
		c.Auth.Cookies.AccessName = d.Auth.Cookies.AccessName
	}
	if c.Auth.Cookies.RefreshName == "" {
		c.Auth.Cookies.RefreshName = d.Auth.Cookies.RefreshName
	}
	if c.Auth.Cookies.RefreshPath == "" {
		c.Auth.Cookies.RefreshPath = d.Auth.Cookies.RefreshPath
	}
	if c.Housekeeping.Schedule == "" {
		c.Housekeeping.Schedule = d.Housekeeping.Schedule
	}
}

func (c *Config) overrideFromEnv() {
	if env := os.Getenv("APP_ENV"); env != "" {
		c.AppEnv = env
	}
	if host := os.Getenv("SERVER_HOST"); host != "" {
		c.Server.Host = host
	}
	if port := os.Getenv("SERVER_PORT"); port != "" {
		c.Server.Port = port
	}
	if mode := os.Getenv("SERVER_MODE"); mode != "" {
		c.Server.Mode = mode
	}
	if origins := os.Getenv("CORS_ALLOW_ORIGINS"); origins != "" {
		c.Server.AllowOrigins = splitAndTrim(origins, ",")
	}
	if driver := os.Getenv("DB_DRIVER"); driver != "" {
		c.Database.Driver = driver
	}
	if dsn := os.Getenv("DB_DSN"); dsn != "" {
		c.Database.DSN = dsn
	}
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		c.JWT.Secret = secret
	}
	if ttl, err := time.ParseDuration(os.Getenv("JWT_ACCESS_TTL")); err == nil && ttl > 0 {
		c.JWT.AccessTTL = ttl
	}
	if ttl, err := time.ParseDuration(os.Getenv("JWT_REFRESH_TTL")); err == nil && ttl > 0 {
		c.JWT.RefreshTTL = ttl
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		c.Log.Level = level
	}
	// Redis URL override (format: redis://:password@host:port/db)
	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		c.Redis.Enabled = true
		c.parseRedisURL(redisURL)
	}
}

// parseRedisURL parses a Redis URL and sets config values
// Format: redis://:password@host:port/db
func (c *Config) parseRedisURL(redisURL string) {
	url := strings.TrimPrefix(redisURL, "redis://")

	if atIdx := strings.Index(url, "@"); atIdx != -1 {
		authPart := url[:atIdx]
		url = url[atIdx+1:]
		// Password format: :password or user:password
		if colonIdx := strings.Index(authPart, ":"); colonIdx != -1 {
			c.Redis.Password = authPart[colonIdx+1:]
		}
	}

	if slashIdx := strings.LastIndex(url, "/"); slashIdx != -1 {
		dbStr := url[slashIdx+1:]
		url = url[:slashIdx]
		if db, err := strconv.Atoi(dbStr); err == nil {
			c.Redis.DB = db
		}
	}

	c.Redis.Addr = url
}

func splitAndTrim(s, sep string) []string {
	var out []string
	for _, part := range strings.Split(s, sep) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

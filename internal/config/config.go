// Package config loads configuration from environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/nsvirk/hrassistapi/pkg/utils/zaplogger"
)

// Config represents the application configuration
type Config struct {
	APIName              string `env:"HR_API_APP_NAME" default:"HR Assistant API"`
	APIVersion           string `env:"HR_API_APP_VERSION" default:"v1"`
	ServerPort           string `env:"HR_API_SERVER_PORT" default:"3007"`
	ServerLogLevel       string `env:"HR_API_SERVER_LOG_LEVEL" default:"info"`
	Storage              string `env:"HR_API_STORAGE" default:"postgres"`
	SessionBackend       string `env:"HR_API_SESSION_BACKEND" default:""`
	PostgresDsn          string `env:"HR_API_PG_DSN" default:""`
	PostgresSchema       string `env:"HR_API_PG_SCHEMA" default:"hr"`
	PostgresLogLevel     string `env:"HR_API_PG_LOG_LEVEL" default:"warn"`
	RedisHost            string `env:"HR_API_REDIS_HOST" default:""`
	RedisPort            string `env:"HR_API_REDIS_PORT" default:"6379"`
	RedisPassword        string `env:"HR_API_REDIS_PASSWORD" default:""`
	RedisMetricsChannel  string `env:"HR_API_REDIS_METRICS_CHANNEL" default:"hr:metrics"`
	SessionTTLValue      string `env:"HR_API_SESSION_TTL" default:"15m"`
	MetricsRetentionDays string `env:"HR_API_METRICS_RETENTION_DAYS" default:"90"`
	RememberMeIdleDays   string `env:"HR_API_REMEMBER_ME_IDLE_DAYS" default:"0"`
	SweepSchedule        string `env:"HR_API_SWEEP_SCHEDULE" default:"0 3 * * *"`
	JWTSecret            string `env:"HR_API_JWT_SECRET"`
	AuthTTLValue         string `env:"HR_API_AUTH_TTL" default:"24h"`
	CookieSecure         string `env:"HR_API_COOKIE_SECURE" default:"true"`
	Users                string `env:"HR_API_USERS" default:""`
	DocumentBaseURL      string `env:"HR_API_DOCUMENT_BASE_URL" default:"/api/documents"`
}

const (
	StoragePostgres = "postgres"
	StorageRedis    = "redis"
	StorageMemory   = "memory"
)

var (
	SingleLine string = "--------------------------------------------------"
)

var (
	instance *Config
	once     sync.Once
	err      error
)

// Get returns the application configuration
func Get() (*Config, error) {
	once.Do(func() {
		zaplogger.Info(SingleLine)
		zaplogger.Info("Loading Configuration")
		instance, err = loadConfig()
	})
	return instance, err
}

// loadConfig loads configuration from an optional .env file and the environment
func loadConfig() (*Config, error) {
	// A missing .env is normal outside local development
	if loadErr := godotenv.Load(); loadErr == nil {
		zaplogger.Info("  * .env loaded")
	}

	cfg := &Config{}
	if err := cfg.loadFromEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadFromEnv fills every field from its env tag, falling back to the default tag.
// A field without a default tag is required.
func (c *Config) loadFromEnv(lookup func(string) (string, bool)) error {
	t := reflect.TypeOf(*c)
	v := reflect.ValueOf(c).Elem()

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		envTag := field.Tag.Get("env")
		if envTag == "" {
			return fmt.Errorf("missing env tag for field %s", field.Name)
		}

		value, ok := lookup(envTag)
		if !ok || value == "" {
			def, hasDefault := field.Tag.Lookup("default")
			if !hasDefault {
				return fmt.Errorf("env variable %s is required but not set", envTag)
			}
			value = def
		}

		v.Field(i).SetString(value)
	}

	return nil
}

// Validate checks cross-field rules after loading
func (c *Config) Validate() error {
	switch c.Storage {
	case StoragePostgres, StorageMemory:
	default:
		return fmt.Errorf("HR_API_STORAGE must be %q or %q, got %q", StoragePostgres, StorageMemory, c.Storage)
	}
	switch c.SessionStore() {
	case StoragePostgres, StorageRedis, StorageMemory:
	default:
		return fmt.Errorf("HR_API_SESSION_BACKEND must be postgres, redis or memory, got %q", c.SessionBackend)
	}
	if c.usesPostgres() && c.PostgresDsn == "" {
		return errors.New("HR_API_PG_DSN is required when postgres storage is used")
	}
	if c.SessionStore() == StorageRedis && c.RedisHost == "" {
		return errors.New("HR_API_REDIS_HOST is required when HR_API_SESSION_BACKEND=redis")
	}
	if len(c.JWTSecret) < 16 {
		return errors.New("HR_API_JWT_SECRET must be at least 16 characters")
	}
	if _, err := time.ParseDuration(c.SessionTTLValue); err != nil {
		return fmt.Errorf("HR_API_SESSION_TTL: %w", err)
	}
	return nil
}

func (c *Config) usesPostgres() bool {
	return c.Storage == StoragePostgres || c.SessionStore() == StoragePostgres
}

// SessionStore returns the backend used for conversation sessions
func (c *Config) SessionStore() string {
	if c.SessionBackend == "" {
		return c.Storage
	}
	return c.SessionBackend
}

// RedisEnabled reports whether a Redis host is configured
func (c *Config) RedisEnabled() bool {
	return c.RedisHost != ""
}

// SessionTTL returns the conversation session lifetime. Returns 15m if invalid.
func (c *Config) SessionTTL() time.Duration {
	d, err := time.ParseDuration(c.SessionTTLValue)
	if err != nil || d <= 0 {
		return 15 * time.Minute
	}
	return d
}

// AuthTTL returns the lifetime of the auth cookie. Returns 24h if invalid.
func (c *Config) AuthTTL() time.Duration {
	d, err := time.ParseDuration(c.AuthTTLValue)
	if err != nil || d <= 0 {
		return 24 * time.Hour
	}
	return d
}

// SecureCookies reports whether the auth cookie is marked Secure. Returns true if invalid.
func (c *Config) SecureCookies() bool {
	secure, err := strconv.ParseBool(c.CookieSecure)
	if err != nil {
		return true
	}
	return secure
}

// MetricsRetention returns how long metric rows are kept. Returns 90 days if invalid.
func (c *Config) MetricsRetention() time.Duration {
	days, err := strconv.Atoi(c.MetricsRetentionDays)
	if err != nil || days <= 0 {
		days = 90
	}
	return time.Duration(days) * 24 * time.Hour
}

// RememberMeIdle returns the idle window after which remember-me tokens are swept.
// Zero disables idle expiry.
func (c *Config) RememberMeIdle() time.Duration {
	days, err := strconv.Atoi(c.RememberMeIdleDays)
	if err != nil || days <= 0 {
		return 0
	}
	return time.Duration(days) * 24 * time.Hour
}

// String returns the configuration as a string
func (c *Config) String() string {
	var sb strings.Builder
	sb.WriteString("\n--------------------------------------\n")
	sb.WriteString("Configuration:\n")
	sb.WriteString("--------------------------------------\n")

	t := reflect.TypeOf(*c)
	v := reflect.ValueOf(*c)

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		value := v.Field(i).String()

		// Mask sensitive fields
		value = maskSensitiveField(field.Name, value)
		sb.WriteString(fmt.Sprintf("  %s:  %s\n", field.Name, value))
	}

	sb.WriteString("--------------------------------------\n")

	return sb.String()
}

func maskSensitiveField(fieldName, value string) string {
	sensitiveFields := []string{"token", "dsn", "secret", "password", "users"}

	fieldNameLower := strings.ToLower(fieldName)
	for _, sensitive := range sensitiveFields {
		if strings.Contains(fieldNameLower, sensitive) {
			return maskValue(value)
		}
	}

	return value
}

func maskValue(value string) string {
	if len(value) <= 3 {
		return strings.Repeat("*", 7)
	}
	return value[:3] + strings.Repeat("*", 7)
}

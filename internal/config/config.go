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
)

// Config holds application configuration
type Config struct {
	Port     string
	Env      string
	LogLevel string
	// LogFormat is "json" or "text".
	LogFormat string

	// LeadStore selects the lead table backend: memory, postgres or sqlite.
	LeadStore   string
	DatabaseURL string
	SQLitePath  string
	// AutoMigrate applies pending migrations when the API starts.
	AutoMigrate bool

	// Rate limiting for the /api surface
	RateLimitBackend string
	RateLimitWindow  time.Duration
	RateLimitMax     int
	RedisAddr        string
	RedisPassword    string
	RedisTLS         bool

	MaxBodyBytes       int64
	TrustProxy         bool
	CORSAllowedOrigins []string
	MetricsEnabled     bool
	ShutdownTimeout    time.Duration
}

// Supported LeadStore values.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
	StoreSQLite   = "sqlite"
)

// Supported RateLimitBackend values.
const (
	LimiterMemory = "memory"
	LimiterRedis  = "redis"
)

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:      getEnv("PORT", "3000"),
		Env:       getEnv("ENV", "development"),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: strings.ToLower(getEnv("LOG_FORMAT", "json")),

		LeadStore:   strings.ToLower(strings.TrimSpace(getEnv("LEAD_STORE", StoreMemory))),
		DatabaseURL: getEnv("DATABASE_URL", ""),
		SQLitePath:  getEnv("SQLITE_PATH", "leads.db"),
		AutoMigrate: getEnvAsBool("AUTO_MIGRATE", false),

		RateLimitBackend: strings.ToLower(strings.TrimSpace(getEnv("RATE_LIMIT_BACKEND", LimiterMemory))),
		RateLimitWindow:  getEnvAsDuration("RATE_LIMIT_WINDOW", 15*time.Minute),
		RateLimitMax:     getEnvAsInt("RATE_LIMIT_MAX", 100),
		RedisAddr:        getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:    getEnv("REDIS_PASSWORD", ""),
		RedisTLS:         getEnvAsBool("REDIS_TLS", false),

		MaxBodyBytes:       int64(getEnvAsInt("MAX_BODY_BYTES", 10*1024)),
		TrustProxy:         getEnvAsBool("TRUST_PROXY", false),
		CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS"),
		MetricsEnabled:     getEnvAsBool("METRICS_ENABLED", true),
		ShutdownTimeout:    getEnvAsDuration("SHUTDOWN_TIMEOUT", 30*time.Second),
	}
}

// LoadDotEnv populates the process environment from the given .env files.
// Missing files are skipped and variables that are already set win.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, path := range paths {
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			return fmt.Errorf("config: load %s: %w", path, err)
		}
	}
	return nil
}

// Validate reports settings that cannot be served.
func (c *Config) Validate() error {
	switch c.LeadStore {
	case StoreMemory, StoreSQLite:
	case StorePostgres:
		if strings.TrimSpace(c.DatabaseURL) == "" {
			return errors.New("config: DATABASE_URL is required when LEAD_STORE=postgres")
		}
	default:
		return fmt.Errorf("config: unknown LEAD_STORE %q", c.LeadStore)
	}
	switch c.RateLimitBackend {
	case LimiterMemory, LimiterRedis:
	default:
		return fmt.Errorf("config: unknown RATE_LIMIT_BACKEND %q", c.RateLimitBackend)
	}
	if c.RateLimitMax <= 0 || c.RateLimitWindow <= 0 {
		return errors.New("config: rate limit window and max must be positive")
	}
	if c.MaxBodyBytes <= 0 {
		return errors.New("config: MAX_BODY_BYTES must be positive")
	}
	return nil
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsList splits a comma separated variable, dropping empty entries.
func getEnvAsList(key string) []string {
	raw := getEnv(key, "")
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

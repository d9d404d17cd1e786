package mainconfig

import (
	"crypto/tls"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"

	appconfig "github.com/wolfman30/leadcapture/internal/config"
	"github.com/wolfman30/leadcapture/internal/database"
)

// MigrationTarget centralizes the store-to-DSN mapping so the API and the
// migrate binary resolve the same database. ok is false for the memory store.
func MigrationTarget(cfg *appconfig.Config) (driver, dsn string, ok bool, err error) {
	switch cfg.LeadStore {
	case appconfig.StoreMemory:
		return "", "", false, nil
	case appconfig.StorePostgres:
		dsn = strings.TrimSpace(cfg.DatabaseURL)
		if dsn == "" {
			return "", "", false, fmt.Errorf("mainconfig: DATABASE_URL is required for %s", cfg.LeadStore)
		}
		return database.DriverPostgres, dsn, true, nil
	case appconfig.StoreSQLite:
		dsn = strings.TrimSpace(cfg.SQLitePath)
		if dsn == "" {
			return "", "", false, fmt.Errorf("mainconfig: SQLITE_PATH is required for %s", cfg.LeadStore)
		}
		return database.DriverSQLite, dsn, true, nil
	default:
		return "", "", false, fmt.Errorf("mainconfig: unknown lead store %q", cfg.LeadStore)
	}
}

// RedisOptions builds client options for the shared rate limiter.
func RedisOptions(cfg *appconfig.Config) *redis.Options {
	opts := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	return opts
}

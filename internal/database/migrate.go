package database

import (
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	migratedb "github.com/golang-migrate/migrate/v4/database"
	migratepgx "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/wolfman30/leadcapture/migrations"
	"github.com/wolfman30/leadcapture/pkg/logging"
)

// Migration targets. They match the LEAD_STORE values.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Migrator applies the embedded schema history to one database.
type Migrator struct {
	m *migrate.Migrate
}

// NewMigrator opens its own connection for driver/dsn. Close releases it.
func NewMigrator(driver, dsn string, logger *logging.Logger) (*Migrator, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, ErrMissingDSN
	}

	var (
		sqlDriver string
		src       fs.FS
		dir       string
	)
	switch driver {
	case DriverPostgres:
		sqlDriver, src, dir = "pgx", migrations.Postgres, "postgres"
	case DriverSQLite:
		sqlDriver, src, dir = "sqlite", migrations.SQLite, "sqlite"
	default:
		return nil, fmt.Errorf("database: unsupported migration driver %q", driver)
	}

	db, err := sql.Open(sqlDriver, dsn)
	if err != nil {
		return nil, fmt.Errorf("database: open %s: %w", driver, err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("database: ping %s: %w", driver, err)
	}

	var dbDriver migratedb.Driver
	switch driver {
	case DriverPostgres:
		dbDriver, err = migratepgx.WithInstance(db, &migratepgx.Config{})
	case DriverSQLite:
		dbDriver, err = migratesqlite.WithInstance(db, &migratesqlite.Config{})
	}
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("database: %s migration driver: %w", driver, err)
	}

	srcDriver, err := iofs.New(src, dir)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("database: migration source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", srcDriver, driver, dbDriver)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("database: create migrator: %w", err)
	}
	if logger != nil {
		m.Log = migrateLogger{logger: logger}
	}
	return &Migrator{m: m}, nil
}

// Up applies every pending migration. An up-to-date schema is not an error.
func (m *Migrator) Up() error {
	if err := m.m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("database: migrate up: %w", err)
	}
	return nil
}

// Down reverts every applied migration.
func (m *Migrator) Down() error {
	if err := m.m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("database: migrate down: %w", err)
	}
	return nil
}

// Force marks version as applied without running it, clearing a dirty state.
func (m *Migrator) Force(version int) error {
	if err := m.m.Force(version); err != nil {
		return fmt.Errorf("database: force version %d: %w", version, err)
	}
	return nil
}

// Version reports the current schema version. ok is false before the first
// migration.
func (m *Migrator) Version() (version uint, dirty bool, ok bool, err error) {
	version, dirty, err = m.m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, false, nil
	}
	if err != nil {
		return 0, false, false, fmt.Errorf("database: migration version: %w", err)
	}
	return version, dirty, true, nil
}

// Close releases the source and the migrator's connection.
func (m *Migrator) Close() error {
	srcErr, dbErr := m.m.Close()
	return errors.Join(srcErr, dbErr)
}

// Migrate is the one-shot form used at start-up.
func Migrate(driver, dsn string, logger *logging.Logger) error {
	m, err := NewMigrator(driver, dsn, logger)
	if err != nil {
		return err
	}
	defer func() { _ = m.Close() }()
	return m.Up()
}

type migrateLogger struct {
	logger *logging.Logger
}

func (l migrateLogger) Printf(format string, v ...any) {
	l.logger.Info(strings.TrimSpace(fmt.Sprintf(format, v...)), "component", "migrate")
}

func (l migrateLogger) Verbose() bool { return false }

package repository

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	migratepgx "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" database/sql driver
	"go.uber.org/zap"
)

//go:embed migrations
var migrationsFS embed.FS

// newMigrator opens a dedicated connection for cfg; closing the migrator closes it.
func newMigrator(cfg Config, logger *zap.Logger) (*migrate.Migrate, error) {
	var (
		dir    string
		name   string
		db     *sql.DB
		err    error
		driver interface{ Close() error }
	)
	switch cfg.Driver {
	case DriverPostgres:
		dir, name = "migrations/postgres", "pgx5"
		if db, err = sql.Open("pgx", cfg.DSN); err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
	case DriverSQLite, "":
		dir, name = "migrations/sqlite", "sqlite"
		if db, err = OpenSQLite(cfg.DSN, logger); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	src, err := iofs.New(migrationsFS, dir)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("load embedded migrations: %w", err)
	}

	var m *migrate.Migrate
	if name == "pgx5" {
		drv, derr := migratepgx.WithInstance(db, &migratepgx.Config{})
		if derr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("create pgx migrate driver: %w", derr)
		}
		driver = drv
		m, err = migrate.NewWithInstance("iofs", src, name, drv)
	} else {
		drv, derr := migratesqlite.WithInstance(db, &migratesqlite.Config{DatabaseName: "main"})
		if derr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("create sqlite migrate driver: %w", derr)
		}
		driver = drv
		m, err = migrate.NewWithInstance("iofs", src, name, drv)
	}
	if err != nil {
		_ = driver.Close()
		return nil, fmt.Errorf("create migrate instance: %w", err)
	}
	m.Log = migrateLogger{logger: logger}
	return m, nil
}

// MigrateUp applies all pending migrations; no pending migrations is not an error.
func MigrateUp(cfg Config, logger *zap.Logger) error {
	logger = orNop(logger)
	m, err := newMigrator(cfg, logger)
	if err != nil {
		return err
	}
	defer closeMigrator(m, logger)

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

// MigrateDown rolls back steps migrations; steps < 0 rolls back everything.
func MigrateDown(cfg Config, steps int, logger *zap.Logger) error {
	logger = orNop(logger)
	m, err := newMigrator(cfg, logger)
	if err != nil {
		return err
	}
	defer closeMigrator(m, logger)

	if steps < 0 {
		err = m.Down()
	} else {
		err = m.Steps(-steps)
	}
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("roll back migrations: %w", err)
	}
	return nil
}

// MigrationVersion reports the applied version; 0 means none applied.
func MigrationVersion(cfg Config, logger *zap.Logger) (uint, bool, error) {
	logger = orNop(logger)
	m, err := newMigrator(cfg, logger)
	if err != nil {
		return 0, false, err
	}
	defer closeMigrator(m, logger)

	v, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("read migration version: %w", err)
	}
	return v, dirty, nil
}

func closeMigrator(m *migrate.Migrate, logger *zap.Logger) {
	srcErr, dbErr := m.Close()
	if srcErr != nil || dbErr != nil {
		logger.Warn("closing migrator", zap.NamedError("source_error", srcErr), zap.NamedError("db_error", dbErr))
	}
}

// migrateLogger adapts zap to migrate.Logger.
type migrateLogger struct {
	logger *zap.Logger
}

func (l migrateLogger) Printf(format string, v ...interface{}) {
	l.logger.Info(fmt.Sprintf(format, v...))
}

func (l migrateLogger) Verbose() bool { return false }

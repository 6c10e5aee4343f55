package repository

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Config struct {
	Driver           string
	DSN              string
	MaxConns         int32
	MinConns         int32
	MaxConnLifetime  time.Duration
	MaxConnIdleTime  time.Duration
	DialTimeout      time.Duration
	StatementTimeout time.Duration
}

// Open creates a pgx pool for the configured Postgres DSN.
func Open(ctx context.Context, cfg Config, logger *zap.Logger) (*pgxpool.Pool, error) {
	logger = orNop(logger)
	logger.Info("connecting to database", zap.String("driver", DriverPostgres))
	pc, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		logger.Error("failed to parse database config", zap.Error(err))
		return nil, err
	}

	if cfg.MaxConns > 0 {
		pc.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		pc.MinConns = cfg.MinConns
	}
	pc.MaxConnLifetime = cfg.MaxConnLifetime
	pc.MaxConnIdleTime = cfg.MaxConnIdleTime
	pc.ConnConfig.RuntimeParams["application_name"] = "medreports"
	if cfg.StatementTimeout > 0 {
		pc.ConnConfig.RuntimeParams["statement_timeout"] = fmt.Sprint(cfg.StatementTimeout.Milliseconds())
	}

	if cfg.DialTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.DialTimeout)
		defer cancel()
	}
	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		logger.Error("failed to connect to database", zap.Error(err))
		return nil, err
	}

	logger.Info("successfully connected to database")
	return pool, nil
}

// HealthCheck pings the pool to catch DSN issues early.
func HealthCheck(ctx context.Context, pool *pgxpool.Pool, timeout time.Duration, logger *zap.Logger) error {
	logger = orNop(logger)
	logger.Debug("pinging database")
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	if err := pool.Ping(ctx); err != nil {
		logger.Error("database ping failed", zap.Error(err))
		return err
	}
	logger.Debug("database ping successful")
	return nil
}

// OpenSQLite opens a single-writer SQLite database in WAL mode, creating the
// parent directory if needed.
func OpenSQLite(path string, logger *zap.Logger) (*sql.DB, error) {
	logger = orNop(logger)
	if path == "" {
		return nil, fmt.Errorf("database path is required")
	}
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database directory %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// one connection: sqlite serialises writers anyway, and pragmas are per connection
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}
	logger.Info("opened sqlite database", zap.String("path", path))
	return db, nil
}

// Store owns the connection for whichever driver is configured and exposes
// the report repository on top of it.
type Store struct {
	Reports ReportRepository

	driver string
	pool   *pgxpool.Pool
	sqlite *sql.DB
	logger *zap.Logger
}

func OpenStore(ctx context.Context, cfg Config, logger *zap.Logger) (*Store, error) {
	logger = orNop(logger)
	s := &Store{driver: cfg.Driver, logger: logger}
	switch cfg.Driver {
	case DriverPostgres:
		pool, err := Open(ctx, cfg, logger)
		if err != nil {
			return nil, err
		}
		s.pool = pool
		s.Reports = NewPostgresReports(pool, logger)
	case DriverSQLite, "":
		db, err := OpenSQLite(cfg.DSN, logger)
		if err != nil {
			return nil, err
		}
		s.driver = DriverSQLite
		s.sqlite = db
		s.Reports = NewSQLiteReports(db, logger)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
	return s, nil
}

func (s *Store) Driver() string { return s.driver }

func (s *Store) HealthCheck(ctx context.Context, timeout time.Duration) error {
	if s.pool != nil {
		return HealthCheck(ctx, s.pool, timeout, s.logger)
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return s.sqlite.PingContext(ctx)
}

// Close closes the database connections gracefully
func (s *Store) Close() {
	s.logger.Info("closing database connections")
	if s.pool != nil {
		s.pool.Close()
	}
	if s.sqlite != nil {
		if err := s.sqlite.Close(); err != nil {
			s.logger.Error("failed to close sqlite database", zap.Error(err))
		}
	}
	s.logger.Info("database connections closed")
}

func orNop(l *zap.Logger) *zap.Logger {
	if l == nil {
		return zap.NewNop()
	}
	return l
}

package server

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/joseph-ayodele/medreports/internal/common"
	"github.com/joseph-ayodele/medreports/internal/repository"
)

// RepositoryConfig maps the database section of the app config.
func RepositoryConfig(c common.DatabaseConfig) repository.Config {
	return repository.Config{
		Driver:           c.Driver,
		DSN:              c.DSN,
		MaxConns:         c.MaxConns,
		MinConns:         c.MinConns,
		MaxConnLifetime:  c.MaxConnLifetime,
		MaxConnIdleTime:  c.MaxConnIdleTime,
		DialTimeout:      c.DialTimeout,
		StatementTimeout: c.StatementTimeout,
	}
}

// ConnectDB opens the store, optionally applies migrations first, and pings it.
func ConnectDB(ctx context.Context, c common.DatabaseConfig, migrate bool, logger *zap.Logger) (*repository.Store, error) {
	cfg := RepositoryConfig(c)
	if migrate {
		if err := repository.MigrateUp(cfg, logger); err != nil {
			logger.Error("failed to apply migrations", zap.Error(err))
			return nil, err
		}
	}

	store, err := repository.OpenStore(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to connect to database", zap.String("driver", cfg.Driver), zap.Error(err))
		return nil, err
	}
	if err := PingDB(ctx, store, logger, 3*time.Second); err != nil {
		store.Close()
		return nil, err
	}
	logger.Info("successfully connected to database", zap.String("driver", store.Driver()))
	return store, nil
}

// PingDB pings the database to ensure it's responsive
func PingDB(ctx context.Context, store HealthChecker, logger *zap.Logger, timeout time.Duration) error {
	logger.Debug("pinging database")
	if err := store.HealthCheck(ctx, timeout); err != nil {
		logger.Error("database ping failed", zap.Error(err))
		return err
	}
	logger.Debug("database ping successful")
	return nil
}

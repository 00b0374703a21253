package server

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/JakeFAU/leadgen-scraper/internal/config"
	mongostore "github.com/JakeFAU/leadgen-scraper/internal/storage/mongodb"
	pgstore "github.com/JakeFAU/leadgen-scraper/internal/storage/postgres"
)

// Migrate prepares the configured backend: the Postgres schema or the Mongo
// indexes. The memory backend needs nothing.
func Migrate(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	switch cfg.Storage.Backend {
	case config.BackendPostgres:
		pool, err := pgstore.Open(ctx, pgstore.Config{
			DSN:             cfg.Postgres.DSN,
			MaxConns:        cfg.Postgres.MaxConns,
			MinConns:        cfg.Postgres.MinConns,
			MaxConnLifetime: cfg.Postgres.MaxConnLifetime,
		})
		if err != nil {
			return fmt.Errorf("postgres init failed: %w", err)
		}
		defer pool.Close()
		if err := pgstore.Migrate(ctx, pool); err != nil {
			return fmt.Errorf("postgres migrate failed: %w", err)
		}
		logger.Info("postgres schema applied")
	case config.BackendMongo:
		client, db, err := mongostore.Connect(ctx, mongostore.Config{
			URI:            cfg.Mongo.URI,
			Database:       cfg.Mongo.Database,
			ConnectTimeout: cfg.Mongo.ConnectTimeout,
		})
		if err != nil {
			return fmt.Errorf("mongo init failed: %w", err)
		}
		defer func() {
			if err := client.Disconnect(context.WithoutCancel(ctx)); err != nil {
				logger.Warn("mongo disconnect failed", zap.Error(err))
			}
		}()
		if err := mongostore.EnsureIndexes(ctx, db); err != nil {
			return fmt.Errorf("mongo index setup failed: %w", err)
		}
		logger.Info("mongo indexes ensured", zap.String("database", cfg.Mongo.Database))
	default:
		logger.Info("memory backend has no schema to migrate")
	}
	return nil
}

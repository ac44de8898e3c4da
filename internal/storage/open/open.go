// Package open выбирает и открывает реализацию storage.Store по конфигу.
package open

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/magabrotheeeer/storyflow/internal/config"
	"github.com/magabrotheeeer/storyflow/internal/migrations"
	"github.com/magabrotheeeer/storyflow/internal/storage"
	"github.com/magabrotheeeer/storyflow/internal/storage/mongo"
	"github.com/magabrotheeeer/storyflow/internal/storage/postgres"
)

// Store открывает хранилище cfg.Driver. Для PostgreSQL при migrate=true
// перед возвратом накатываются миграции.
func Store(ctx context.Context, cfg config.Storage, migrate bool, log *slog.Logger) (storage.Store, error) {
	const op = "storage.open.Store"

	switch cfg.Driver {
	case storage.DriverPostgres:
		db, err := postgres.New(ctx, cfg.PostgresConnectionString)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if migrate {
			if err := migrations.Run(db.DB, cfg.MigrationsPath); err != nil {
				_ = db.Close(ctx)
				return nil, fmt.Errorf("%s: %w", op, err)
			}
			log.Info("migrations applied", slog.String("path", cfg.MigrationsPath))
		}
		return db, nil
	case storage.DriverMongo:
		db, err := mongo.New(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		return db, nil
	default:
		return nil, fmt.Errorf("%s: unknown storage driver %q", op, cfg.Driver)
	}
}

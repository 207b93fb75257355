package db

import (
	"context"
	"fmt"

	"DevcampAPI/internal/config"
	"DevcampAPI/internal/logger"
	"DevcampAPI/internal/resource"
	"DevcampAPI/internal/store"
	"DevcampAPI/internal/store/memory"
	"DevcampAPI/internal/store/mongo"
	"DevcampAPI/internal/store/postgres"
)

// OpenStore подключает хранилище по STORE_DRIVER: postgres, mongo или memory.
// migrate applies pending migrations first and only matters for postgres.
func OpenStore(ctx context.Context, cfg *config.Config, reg *resource.Registry, migrate bool) (store.Store, error) {
	switch cfg.StoreDriver {
	case "postgres":
		if migrate {
			if err := Migrate(cfg.PostgresDSN, cfg.MigrationsDir); err != nil {
				return nil, err
			}
		}
		pool, err := InitPostgres(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, err
		}
		logger.Info("postgres_connected", nil)
		return postgres.New(pool), nil
	case "mongo":
		client, err := InitMongo(ctx, cfg.Mongo.URI)
		if err != nil {
			return nil, err
		}
		logger.Info("mongo_connected", map[string]any{"database": cfg.Mongo.Database})
		st := mongo.New(client, cfg.Mongo.Database)
		if err := st.EnsureIndexes(ctx, reg.All()); err != nil {
			_ = st.Close(ctx)
			return nil, err
		}
		return st, nil
	case "memory":
		logger.Warn("memory_store", map[string]any{"note": "data is lost on restart"})
		return memory.New(), nil
	}
	return nil, fmt.Errorf("unknown STORE_DRIVER %q", cfg.StoreDriver)
}

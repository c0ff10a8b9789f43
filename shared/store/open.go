package store

import (
	"context"
	"time"

	"github.com/pavitra93/go-coliving-admin/shared/config"
)

// Open connects the repository selected by cfg.Driver. The returned
// function releases the connection. Relational schemas and Mongo indexes
// are created when migrate is true.
func Open(ctx context.Context, cfg *config.DatabaseConfig, migrate bool) (Repository, func(), error) {
	if cfg.Driver == config.DriverMongo {
		client, db, err := config.ConnectMongo(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		closeFn := func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			client.Disconnect(ctx)
		}
		repo := NewMongoRepository(db)
		if migrate {
			if err := repo.EnsureIndexes(ctx); err != nil {
				closeFn()
				return nil, nil, err
			}
		}
		return repo, closeFn, nil
	}

	db, err := config.ConnectDatabase(cfg)
	if err != nil {
		return nil, nil, err
	}
	closeFn := func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	}
	repo := NewGormRepository(db)
	if migrate {
		if err := repo.Migrate(); err != nil {
			closeFn()
			return nil, nil, err
		}
	}
	return repo, closeFn, nil
}

package inquiries

import (
	"context"
	"fmt"

	"inquiry-sync-workers/internal/common/config"
	"inquiry-sync-workers/internal/common/database"
)

// Open connects to the configured store backend and checks the connection.
// The returned func releases it.
func Open(ctx context.Context, cfg *config.Config) (Store, func() error, error) {
	switch cfg.Sync.Store {
	case config.StoreRedis:
		rc, err := database.ConnectRedis(ctx, cfg.Database.Redis)
		if err != nil {
			return nil, nil, err
		}
		return NewRedisStore(rc.Client), rc.Close, nil

	case config.StorePostgres, "":
		pg, err := database.ConnectPostgres(ctx, cfg.Database.Postgres)
		if err != nil {
			return nil, nil, err
		}
		store := NewPostgresStore(pg.DB)
		if err := store.EnsureSchema(ctx); err != nil {
			_ = pg.Close()
			return nil, nil, err
		}
		return store, pg.Close, nil

	default:
		return nil, nil, fmt.Errorf("unknown inquiry store %q", cfg.Sync.Store)
	}
}

package cmd

import (
	"context"

	"github.com/aptoseidon/aptoseidon/internal/config"
	"github.com/aptoseidon/aptoseidon/internal/core/store"
	errwrap "github.com/aptoseidon/aptoseidon/internal/errors"
)

// openStore opens and migrates the configured report store.
func openStore(ctx context.Context) (*store.Store, error) {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return nil, err
	}
	return openConfiguredStore(ctx, cfg.Store)
}

func openConfiguredStore(ctx context.Context, cfg config.StoreConfig) (*store.Store, error) {
	db, err := store.Open(ctx, cfg)
	if err != nil {
		return nil, errwrap.WrapDatabaseError(ctx, err, "failed to open store")
	}

	if err := db.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, errwrap.WrapDatabaseError(ctx, err, "failed to migrate store")
	}

	return db, nil
}

// Package store opens the configured row store.
package store

import (
	"context"
	"fmt"
	"log"

	"anchorwatch/internal/config"
	"anchorwatch/internal/repository"
	"anchorwatch/internal/repository/postgres"
	"anchorwatch/internal/repository/sqlite"
)

// Open returns the repository selected by cfg.Driver
func Open(ctx context.Context, cfg config.DatabaseConfig) (repository.Repository, error) {
	switch cfg.Driver {
	case config.DriverSQLite, "":
		repo, err := sqlite.New(cfg.Path)
		if err != nil {
			return nil, err
		}
		log.Printf("Store: opened sqlite %s", cfg.Path)
		return repo, nil

	case config.DriverPostgres:
		repo, err := postgres.New(ctx, cfg.URL)
		if err != nil {
			return nil, err
		}
		log.Printf("Store: connected to postgres")
		return repo, nil

	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
}

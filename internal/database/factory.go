package database

import (
	"context"
	"fmt"

	"health-companion-backend/internal/config"
)

// NewFromConfig opens the database selected by cfg.Type
func NewFromConfig(ctx context.Context, cfg config.DatabaseConfig) (DB, error) {
	switch cfg.Type {
	case "postgres":
		return NewPostgres(ctx, PostgresOptions{
			URL:      cfg.URL(),
			MaxConns: cfg.MaxConns,
			MinConns: cfg.MinConns,
		})
	case "sqlite":
		if cfg.Path == "" {
			return nil, fmt.Errorf("path required for sqlite database")
		}
		return NewSQLite(cfg.Path)
	case "memory":
		return NewSQLite(":memory:")
	default:
		return nil, fmt.Errorf("unknown database type: %s", cfg.Type)
	}
}

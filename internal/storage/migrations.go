package storage

import (
	"context"

	"github.com/FooledKiwi/busease/internal/migrations"
	"github.com/jackc/pgx/v5/pgxpool"
)

// RunMigrations brings the stops/buses schema up to date and verifies that
// the tables the PostgreSQL store depends on exist.
func RunMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	if err := migrations.Run(ctx, pool); err != nil {
		return err
	}
	return migrations.CheckSchema(ctx, pool)
}

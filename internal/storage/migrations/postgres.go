package migrations

import (
	"context"
	"fmt"

	"retail-demand-lab/internal/logger"
	"retail-demand-lab/internal/storage/postgres"
)

// RunPostgresMigrations applies all embedded SQL files in lexical order.
// Migrations are idempotent (CREATE ... IF NOT EXISTS).
func RunPostgresMigrations(ctx context.Context, pool *postgres.Pool) error {
	log := logger.WithComponent(logger.FromContext(ctx), "migrations")

	files, err := loadMigrations(PostgresFS, "postgres")
	if err != nil {
		return err
	}

	for _, m := range files {
		if _, err := pool.Exec(ctx, m.sql); err != nil {
			return fmt.Errorf("apply migration %s: %w", m.name, err)
		}
		log.Debug().Str("database", "postgres").Str("file", m.name).Msg("migration applied")
	}

	log.Info().Str("database", "postgres").Int("files", len(files)).Msg("migrations complete")
	return nil
}

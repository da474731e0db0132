package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

func NewPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	if databaseURL == "" {
		return nil, errors.New("DATABASE_URL is not set")
	}
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, err
	}
	// Conservative pool sizing and timeouts
	cfg.MaxConns = 5
	cfg.MinConns = 0
	cfg.MaxConnLifetime = 30 * time.Minute
	cfg.MaxConnIdleTime = 5 * time.Minute
	cfg.HealthCheckPeriod = 30 * time.Second
	cfg.ConnConfig.RuntimeParams["application_name"] = "detailinfra-api"
	cfg.ConnConfig.RuntimeParams["search_path"] = "public"
	cfg.ConnConfig.RuntimeParams["client_encoding"] = "UTF8"
	cfg.ConnConfig.RuntimeParams["timezone"] = "UTC"
	// May be ignored depending on server configuration
	cfg.ConnConfig.RuntimeParams["statement_timeout"] = "5000"
	cfg.ConnConfig.RuntimeParams["idle_in_transaction_session_timeout"] = "5000"

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return pool, nil
}

// Migration is one forward-only schema step.
type Migration struct {
	Version     int
	Description string
	Statements  []string
}

var migrations = []Migration{
	{
		Version:     1,
		Description: "vehicle classification table",
		Statements: []string{
			`CREATE TABLE IF NOT EXISTS vehicle_classification (
                id uuid PRIMARY KEY DEFAULT gen_random_uuid(),
                make text NOT NULL,
                model text NOT NULL,
                year_start integer,
                year_end integer,
                type_category text NOT NULL,
                is_luxury boolean NOT NULL DEFAULT false,
                notes text,
                created_at timestamptz NOT NULL DEFAULT now(),
                updated_at timestamptz NOT NULL DEFAULT now()
            )`,
			`CREATE UNIQUE INDEX IF NOT EXISTS vehicle_classification_make_model_key
                ON vehicle_classification ((lower(make)), (lower(model)))`,
		},
	},
	{
		Version:     2,
		Description: "category check and list index",
		Statements: []string{
			`ALTER TABLE vehicle_classification
                DROP CONSTRAINT IF EXISTS vehicle_classification_type_category_check`,
			`ALTER TABLE vehicle_classification
                ADD CONSTRAINT vehicle_classification_type_category_check
                CHECK (type_category IN ('Compact/Sedan', 'Mid-Size/SUV', 'Truck/Van/Large SUV'))`,
			`CREATE INDEX IF NOT EXISTS vehicle_classification_make_idx
                ON vehicle_classification (make, model)`,
		},
	},
}

// Migrate applies pending migrations in version order, each in its own
// transaction, and returns the resulting schema version.
func Migrate(ctx context.Context, pool *pgxpool.Pool) (int, error) {
	if _, err := pool.Exec(ctx, `
        CREATE TABLE IF NOT EXISTS schema_migrations (
            version integer PRIMARY KEY,
            description text NOT NULL,
            applied_at timestamptz NOT NULL DEFAULT now()
        )
    `); err != nil {
		return 0, fmt.Errorf("create schema_migrations: %w", err)
	}

	var current int
	if err := pool.QueryRow(ctx, `SELECT COALESCE(MAX(version), 0) FROM schema_migrations`).Scan(&current); err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}

	for _, m := range migrations {
		if m.Version <= current {
			continue
		}
		if err := apply(ctx, pool, m); err != nil {
			return current, fmt.Errorf("migration %d (%s): %w", m.Version, m.Description, err)
		}
		current = m.Version
	}
	return current, nil
}

// LatestVersion is the schema version Migrate converges to.
func LatestVersion() int {
	return migrations[len(migrations)-1].Version
}

func apply(ctx context.Context, pool *pgxpool.Pool, m Migration) error {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, stmt := range m.Statements {
		if _, err := tx.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	if _, err := tx.Exec(ctx, `INSERT INTO schema_migrations (version, description) VALUES ($1, $2)`, m.Version, m.Description); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

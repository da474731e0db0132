package remote

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"detailinfra/internal/vehicle"
)

const selectColumns = `id::text, make, model, year_start, year_end, type_category, is_luxury, notes`

// Postgres stores classification rows in the vehicle_classification table.
// The schema is created by db.Migrate.
type Postgres struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

func (p *Postgres) Select(ctx context.Context, f Filter) ([]vehicle.Row, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	rows, err := p.pool.Query(ctx, `
        SELECT `+selectColumns+`
        FROM vehicle_classification
        WHERE ($1 = '' OR lower(make) = lower($1))
          AND ($2 = '' OR lower(model) = lower($2))
        ORDER BY make, model
        LIMIT $3
    `, strings.TrimSpace(f.Make), strings.TrimSpace(f.Model), limit)
	if err != nil {
		return nil, wrap("select", err)
	}
	defer rows.Close()

	var out []vehicle.Row
	for rows.Next() {
		r, err := scanRow(rows)
		if err != nil {
			return nil, wrap("scan", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("select", err)
	}
	return out, nil
}

func (p *Postgres) Insert(ctx context.Context, row vehicle.Row) (vehicle.Row, error) {
	err := p.pool.QueryRow(ctx, `
        INSERT INTO vehicle_classification (
            make, model, year_start, year_end, type_category, is_luxury, notes
        ) VALUES ($1, $2, $3, $4, $5, $6, $7)
        RETURNING id::text
    `, row.Make, row.Model, row.YearStart, row.YearEnd, string(row.Category), row.Luxury, nullIfEmpty(row.Notes)).Scan(&row.ID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" { // unique_violation
			return vehicle.Row{}, fmt.Errorf("insert %s %s: %w", row.Make, row.Model, ErrDuplicate)
		}
		return vehicle.Row{}, wrap("insert", err)
	}
	return row, nil
}

func (p *Postgres) Upsert(ctx context.Context, row vehicle.Row) (vehicle.Row, error) {
	err := p.pool.QueryRow(ctx, `
        INSERT INTO vehicle_classification (
            make, model, year_start, year_end, type_category, is_luxury, notes
        ) VALUES ($1, $2, $3, $4, $5, $6, $7)
        ON CONFLICT ((lower(make)), (lower(model))) DO UPDATE SET
            make = EXCLUDED.make,
            model = EXCLUDED.model,
            year_start = EXCLUDED.year_start,
            year_end = EXCLUDED.year_end,
            type_category = EXCLUDED.type_category,
            is_luxury = EXCLUDED.is_luxury,
            notes = EXCLUDED.notes,
            updated_at = now()
        RETURNING id::text
    `, row.Make, row.Model, row.YearStart, row.YearEnd, string(row.Category), row.Luxury, nullIfEmpty(row.Notes)).Scan(&row.ID)
	if err != nil {
		return vehicle.Row{}, wrap("upsert", err)
	}
	return row, nil
}

func (p *Postgres) Update(ctx context.Context, id string, patch Patch) error {
	var category *string
	if patch.Category != nil {
		c := string(*patch.Category)
		category = &c
	}
	tag, err := p.pool.Exec(ctx, `
        UPDATE vehicle_classification SET
            is_luxury = COALESCE($2, is_luxury),
            type_category = COALESCE($3, type_category),
            notes = COALESCE($4, notes),
            updated_at = now()
        WHERE id::text = $1
    `, id, patch.Luxury, category, patch.Notes)
	if err != nil {
		return wrap("update", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update %s: %w", id, ErrNotFound)
	}
	return nil
}

func scanRow(rows pgx.Rows) (vehicle.Row, error) {
	var (
		r        vehicle.Row
		category string
		notes    *string
	)
	if err := rows.Scan(&r.ID, &r.Make, &r.Model, &r.YearStart, &r.YearEnd, &category, &r.Luxury, &notes); err != nil {
		return vehicle.Row{}, err
	}
	if c, ok := vehicle.ParseCategory(category); ok {
		r.Category = c
	} else {
		r.Category = vehicle.Category(category)
	}
	if notes != nil {
		r.Notes = *notes
	}
	return r, nil
}

// wrap marks connection-level failures as ErrUnavailable so callers can fall
// back to the local queue. Query errors reported by the server are returned
// as they are.
func wrap(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return fmt.Errorf("%s: %w", op, err)
	}
	if errors.Is(err, context.Canceled) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %v", op, ErrUnavailable, err)
}

func nullIfEmpty(s string) *string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return &s
}

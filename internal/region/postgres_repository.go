package region

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Schema creates the table PostgresRepository reads and writes.
const Schema = `
	CREATE TABLE IF NOT EXISTS region_summaries (
		name       TEXT PRIMARY KEY,
		summary    JSONB NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)
`

// PostgresRepository is a PostgreSQL implementation of Repository.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL region repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// EnsureSchema creates the summaries table if it does not exist.
func (r *PostgresRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("create region_summaries: %w", err)
	}
	return nil
}

// Save upserts a summary.
func (r *PostgresRepository) Save(ctx context.Context, name string, s *Summary) error {
	if err := validateName(name); err != nil {
		return err
	}
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode summary: %w", err)
	}

	query := `
		INSERT INTO region_summaries (name, summary)
		VALUES ($1, $2)
		ON CONFLICT (name) DO UPDATE SET
			summary = EXCLUDED.summary,
			updated_at = now()
	`
	if _, err := r.pool.Exec(ctx, query, name, data); err != nil {
		return fmt.Errorf("save region summary %q: %w", name, err)
	}
	return nil
}

// Get retrieves a summary by name.
func (r *PostgresRepository) Get(ctx context.Context, name string) (*Summary, error) {
	var data []byte
	err := r.pool.QueryRow(ctx, `SELECT summary FROM region_summaries WHERE name = $1`, name).Scan(&data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %q", ErrSummaryNotFound, name)
		}
		return nil, fmt.Errorf("get region summary %q: %w", name, err)
	}

	var s Summary
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode summary: %w", err)
	}
	return &s, nil
}

// List returns the stored names.
func (r *PostgresRepository) List(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT name FROM region_summaries ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list region summaries: %w", err)
	}
	names, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("list region summaries: %w", err)
	}
	return names, nil
}

package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresSource reads named dataset documents from the marketing_datasets table:
//
//	CREATE TABLE marketing_datasets (
//	    name       TEXT PRIMARY KEY,
//	    payload    JSONB NOT NULL,
//	    updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
//	);
type PostgresSource struct {
	pool *pgxpool.Pool
	name string
}

func NewPostgresSource(pool *pgxpool.Pool, name string) *PostgresSource {
	return &PostgresSource{pool: pool, name: name}
}

func (s *PostgresSource) Kind() string { return "postgres" }

func (s *PostgresSource) Load(ctx context.Context) (*Dataset, error) {
	var (
		raw       []byte
		updatedAt time.Time
	)
	err := s.pool.QueryRow(ctx, `
		SELECT payload, updated_at
		FROM marketing_datasets WHERE name = $1
	`, s.name).Scan(&raw, &updatedAt)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("dataset %q: %w", s.name, ErrDatasetNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load dataset: %w", err)
	}

	return &Dataset{Name: s.name, Raw: raw, UpdatedAt: updatedAt}, nil
}

// Save upserts a dataset document under the source's name.
func (s *PostgresSource) Save(ctx context.Context, raw []byte) error {
	if !json.Valid(raw) {
		return fmt.Errorf("dataset %q is not valid JSON", s.name)
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO marketing_datasets (name, payload, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (name) DO UPDATE SET payload = EXCLUDED.payload, updated_at = now()
	`, s.name, raw)
	if err != nil {
		return fmt.Errorf("failed to save dataset: %w", err)
	}
	return nil
}

// EnsureSchema creates the datasets table when missing.
func (s *PostgresSource) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS marketing_datasets (
			name       TEXT PRIMARY KEY,
			payload    JSONB NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create marketing_datasets: %w", err)
	}
	return nil
}

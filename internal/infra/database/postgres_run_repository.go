package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"sacco_backoffice/internal/domain/statusrun"
)

type PostgresRunRepository struct {
	db *sql.DB
}

func NewPostgresRunRepository(db *sql.DB) *PostgresRunRepository {
	return &PostgresRunRepository{db: db}
}

func (r *PostgresRunRepository) Create(ctx context.Context, run *statusrun.Run) error {
	details, err := json.Marshal(run.Details)
	if err != nil {
		return fmt.Errorf("error encoding status run details: %w", err)
	}
	query := `INSERT INTO status_runs (id, started_at, finished_at, updated, details)
               VALUES ($1, $2, $3, $4, $5)`
	if _, err := r.db.ExecContext(ctx, query, run.ID, run.StartedAt, run.FinishedAt, run.Updated, details); err != nil {
		return fmt.Errorf("error creating status run: %w", err)
	}
	return nil
}

func (r *PostgresRunRepository) ListRecent(ctx context.Context, limit int) ([]*statusrun.Run, error) {
	query := `SELECT id, started_at, finished_at, updated, details
               FROM status_runs ORDER BY started_at DESC LIMIT $1`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("error listing status runs: %w", err)
	}
	defer rows.Close()

	runs := make([]*statusrun.Run, 0)
	for rows.Next() {
		run := &statusrun.Run{}
		var details []byte
		if err := rows.Scan(&run.ID, &run.StartedAt, &run.FinishedAt, &run.Updated, &details); err != nil {
			return nil, fmt.Errorf("error scanning status run row: %w", err)
		}
		if err := json.Unmarshal(details, &run.Details); err != nil {
			return nil, fmt.Errorf("error decoding status run details: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating status run rows: %w", err)
	}
	return runs, nil
}

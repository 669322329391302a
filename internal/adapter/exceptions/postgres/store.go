package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/strogmv/assembler/assembler"
	"github.com/strogmv/assembler/internal/port"
)

const schema = `
CREATE TABLE IF NOT EXISTS deployment_failures (
	id         BIGSERIAL PRIMARY KEY,
	app_id     TEXT NOT NULL,
	path       TEXT NOT NULL DEFAULT '',
	run_id     TEXT NOT NULL DEFAULT '',
	code       TEXT NOT NULL,
	message    TEXT NOT NULL,
	failed_at  TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS deployment_failures_app_idx ON deployment_failures (app_id, failed_at DESC);
`

// FailureRepository keeps every deployment failure, unlike the in-memory
// exception manager which only remembers the latest few.
type FailureRepository struct {
	DB *pgxpool.Pool
}

func NewFailureRepository(pool *pgxpool.Pool) *FailureRepository {
	return &FailureRepository{DB: pool}
}

// Connect opens a pool and makes sure the table exists.
func Connect(ctx context.Context, dsn string) (*FailureRepository, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	r := NewFailureRepository(pool)
	if err := r.Migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return r, nil
}

func (r *FailureRepository) Close() { r.DB.Close() }

func (r *FailureRepository) Migrate(ctx context.Context) error {
	if _, err := r.DB.Exec(ctx, schema); err != nil {
		return fmt.Errorf("migrate deployment_failures: %w", err)
	}
	return nil
}

func (r *FailureRepository) SaveDeploymentFailure(ctx context.Context, f assembler.DeploymentFailure) error {
	_, err := r.DB.Exec(ctx,
		"INSERT INTO deployment_failures (app_id, path, run_id, code, message, failed_at) VALUES ($1, $2, $3, $4, $5, $6)",
		f.AppID, f.Path, f.RunID, f.Code, f.Message(), f.At)
	return err
}

// ListDeploymentFailures returns the newest failures first. An empty appID
// lists every application.
func (r *FailureRepository) ListDeploymentFailures(ctx context.Context, appID string, limit int) ([]assembler.DeploymentFailure, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.DB.Query(ctx,
		"SELECT app_id, path, run_id, code, message, failed_at FROM deployment_failures WHERE $1 = '' OR app_id = $1 ORDER BY failed_at DESC LIMIT $2",
		appID, limit)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (assembler.DeploymentFailure, error) {
		var f assembler.DeploymentFailure
		var msg string
		if err := row.Scan(&f.AppID, &f.Path, &f.RunID, &f.Code, &msg, &f.At); err != nil {
			return f, err
		}
		f.Err = errors.New(msg)
		return f, nil
	})
}

// Compile-time interface checks.
var _ port.FailureRepository = (*FailureRepository)(nil)

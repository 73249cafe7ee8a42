package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Migrate creates the two tables the engine owns.
func Migrate(ctx context.Context, pgPool *pgxpool.Pool) error {
	const createTablesQuery = `
CREATE TABLE IF NOT EXISTS tasks (
    id          TEXT PRIMARY KEY,
    program_id  TEXT        NOT NULL,
    name        TEXT        NOT NULL,
    description TEXT        NOT NULL DEFAULT '',
    status      TEXT        NOT NULL,
    color       TEXT        NOT NULL DEFAULT '',
    priority    TEXT        NOT NULL DEFAULT '',
    order_index INT         NOT NULL,
    version     BIGINT      NOT NULL,
    created_at  TIMESTAMPTZ NOT NULL,
    modified_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_tasks_partition
    ON tasks (program_id, status, order_index);

CREATE TABLE IF NOT EXISTS kanban_config (
    program_id TEXT PRIMARY KEY,
    columns    JSONB       NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL
);
`
	_, err := pgPool.Exec(ctx, createTablesQuery)
	return err
}

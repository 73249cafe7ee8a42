package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/medtrack/boardsync/internal/models"
	"github.com/medtrack/boardsync/internal/storage"
)

type ColumnStore struct {
	logger zerolog.Logger
	pgPool *pgxpool.Pool
}

func NewColumnStore(
	logger zerolog.Logger,
	pgPool *pgxpool.Pool,
) *ColumnStore {
	return &ColumnStore{
		logger: logger,
		pgPool: pgPool,
	}
}

func (s *ColumnStore) GetColumns(ctx context.Context, programID string) ([]models.ColumnConfig, error) {
	const selectColumnsQuery = `
SELECT columns
FROM kanban_config
WHERE program_id = $1
`
	var raw []byte
	err := s.pgPool.QueryRow(ctx, selectColumnsQuery, programID).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, storage.ErrColumnConfigNotFound
		}

		s.logger.Error().
			Err(err).
			Str("program_id", programID).
			Msg("failed to select kanban config")
		return nil, err
	}

	var columns []models.ColumnConfig
	err = json.Unmarshal(raw, &columns)
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("program_id", programID).
			Msg("failed to decode kanban config")
		return nil, err
	}
	return columns, nil
}

func (s *ColumnStore) SaveColumns(ctx context.Context, programID string, columns []models.ColumnConfig) error {
	raw, err := json.Marshal(columns)
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("program_id", programID).
			Msg("failed to encode kanban config")
		return err
	}

	const upsertColumnsQuery = `
INSERT INTO kanban_config (program_id, columns, updated_at)
VALUES ($1, $2, $3)
ON CONFLICT (program_id)
    DO UPDATE SET columns = EXCLUDED.columns, updated_at = EXCLUDED.updated_at
`
	_, err = s.pgPool.Exec(ctx, upsertColumnsQuery, programID, raw, time.Now())
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("program_id", programID).
			Msg("failed to save kanban config")
		return err
	}
	s.logger.Debug().
		Str("program_id", programID).
		Int("columns", len(columns)).
		Msg("saved kanban config")
	return nil
}

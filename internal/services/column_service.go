package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/medtrack/boardsync/internal/models"
	"github.com/medtrack/boardsync/internal/storage"
)

type columnServiceImpl struct {
	logger    zerolog.Logger
	store     storage.ColumnStore
	taskStore storage.TaskStore
	tasks     TaskService
}

func NewColumnService(
	logger zerolog.Logger,
	store storage.ColumnStore,
	taskStore storage.TaskStore,
	tasks TaskService,
) ColumnService {
	return &columnServiceImpl{
		logger:    logger,
		store:     store,
		taskStore: taskStore,
		tasks:     tasks,
	}
}

func (s *columnServiceImpl) GetColumns(ctx context.Context, programID string) ([]models.ColumnConfig, error) {
	columns, err := s.store.GetColumns(ctx, programID)
	if err != nil {
		if errors.Is(err, storage.ErrColumnConfigNotFound) {
			s.logger.Debug().
				Str("program_id", programID).
				Msg("no saved kanban config, using defaults")
			return models.DefaultColumns(), nil
		}

		s.logger.Error().
			Err(err).
			Str("program_id", programID).
			Msg("failed to get columns")
		return nil, err
	}
	return columns, nil
}

func (s *columnServiceImpl) SaveColumns(ctx context.Context, programID string, columns []models.ColumnConfig) error {
	err := validateColumns(columns)
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("program_id", programID).
			Int("count", len(columns)).
			Msg("rejected column configuration")
		return err
	}

	err = s.store.SaveColumns(ctx, programID, columns)
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("program_id", programID).
			Msg("failed to save columns")
		return err
	}

	s.logger.Info().
		Str("program_id", programID).
		Int("count", len(columns)).
		Msg("saved columns")
	return nil
}

func (s *columnServiceImpl) MoveColumn(ctx context.Context, programID, columnID string, newPosition int) error {
	columns, err := s.GetColumns(ctx, programID)
	if err != nil {
		return err
	}

	position := -1
	for i, column := range columns {
		if column.ID == columnID {
			position = i
			break
		}
	}
	if position < 0 {
		s.logger.Error().
			Str("program_id", programID).
			Str("column_id", columnID).
			Msg("column not found")
		return ErrColumnNotFound
	}

	moved := columns[position]
	columns = append(columns[:position], columns[position+1:]...)

	newPosition = clampIndex(newPosition, len(columns)+1)
	columns = append(columns, models.ColumnConfig{})
	copy(columns[newPosition+1:], columns[newPosition:])
	columns[newPosition] = moved

	err = s.store.SaveColumns(ctx, programID, columns)
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("program_id", programID).
			Msg("failed to save moved columns")
		return err
	}

	s.logger.Info().
		Str("program_id", programID).
		Str("column_id", columnID).
		Int("position", newPosition).
		Msg("moved column")
	return nil
}

func (s *columnServiceImpl) DeleteColumn(ctx context.Context, programID, columnID string) error {
	columns, err := s.GetColumns(ctx, programID)
	if err != nil {
		return err
	}

	if len(columns) <= models.MinColumns {
		s.logger.Error().
			Str("program_id", programID).
			Str("column_id", columnID).
			Int("count", len(columns)).
			Msg("deletion would drop below the column floor")
		return fmt.Errorf("%w: at least %d columns required", ErrInvalidConfiguration, models.MinColumns)
	}

	position := -1
	for i, column := range columns {
		if column.ID == columnID {
			position = i
			break
		}
	}
	if position < 0 {
		return ErrColumnNotFound
	}

	remaining := append(columns[:position:position], columns[position+1:]...)
	err = s.store.SaveColumns(ctx, programID, remaining)
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("program_id", programID).
			Msg("failed to save columns after deletion")
		return err
	}

	// Re-home orphaned tasks to the new first column. The column no
	// longer exists, so these status updates carry no expected
	// version: the system reassignment overrides optimistic checks.
	newHome := remaining[0].ID
	orphans, err := s.taskStore.ListPartition(ctx, programID, columnID)
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("program_id", programID).
			Str("column_id", columnID).
			Msg("failed to list orphaned tasks")
		return err
	}

	for _, orphan := range orphans {
		_, _, err = s.tasks.UpdateTaskStatus(ctx, UpdateTaskStatusParams{
			ID:     orphan.ID,
			Status: newHome,
		})
		if err != nil {
			s.logger.Error().
				Err(err).
				Str("task_id", orphan.ID).
				Str("status", newHome).
				Msg("failed to re-home task")
			return err
		}
	}

	s.logger.Info().
		Str("program_id", programID).
		Str("column_id", columnID).
		Str("new_home", newHome).
		Int("rehomed", len(orphans)).
		Msg("deleted column")
	return nil
}

func validateColumns(columns []models.ColumnConfig) error {
	if len(columns) < models.MinColumns || len(columns) > models.MaxColumns {
		return fmt.Errorf("%w: expected between %d and %d columns, got %d",
			ErrInvalidConfiguration, models.MinColumns, models.MaxColumns, len(columns))
	}

	seen := make(map[string]struct{}, len(columns))
	for _, column := range columns {
		if column.ID == "" {
			return fmt.Errorf("%w: empty column id", ErrInvalidConfiguration)
		}
		if _, ok := seen[column.ID]; ok {
			return fmt.Errorf("%w: duplicate column id %q", ErrInvalidConfiguration, column.ID)
		}
		seen[column.ID] = struct{}{}
	}
	return nil
}

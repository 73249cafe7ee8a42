package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/medtrack/boardsync/internal/models"
	"github.com/medtrack/boardsync/internal/storage"
)

type taskServiceImpl struct {
	logger  zerolog.Logger
	store   storage.TaskStore
	columns storage.ColumnStore
}

func NewTaskService(
	logger zerolog.Logger,
	store storage.TaskStore,
	columns storage.ColumnStore,
) TaskService {
	return &taskServiceImpl{
		logger:  logger,
		store:   store,
		columns: columns,
	}
}

func (s *taskServiceImpl) CreateTask(ctx context.Context, params CreateTaskParams) (*models.Task, error) {
	columns, err := s.boardColumns(ctx, params.ProgramID)
	if err != nil {
		return nil, err
	}

	status := params.Status
	if status == "" {
		status = columns[0].ID
	}
	if !statusAllowed(columns, status) {
		s.logger.Error().
			Str("program_id", params.ProgramID).
			Str("status", status).
			Msg("status is not a configured column")
		return nil, ErrInvalidTaskStatus
	}

	taskUUID, err := uuid.NewV7()
	if err != nil {
		s.logger.Error().
			Err(err).
			Msg("failed to generate task uuid")
		return nil, err
	}

	now := time.Now()
	task := &models.Task{
		ID:          taskUUID.String(),
		ProgramID:   params.ProgramID,
		Name:        params.Name,
		Description: params.Description,
		Status:      status,
		Color:       params.Color,
		Priority:    params.Priority,
		Version:     1,
		CreatedAt:   now,
		ModifiedAt:  now,
	}

	err = s.store.Mutate(ctx, func(tx storage.TaskTx) error {
		partition, err := tx.ListPartition(ctx, task.ProgramID, task.Status)
		if err != nil {
			return err
		}

		// Partitions are dense, so the tail index equals the count.
		task.OrderIndex = len(partition)
		return tx.InsertTask(ctx, task)
	})
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("program_id", task.ProgramID).
			Msg("failed to create task")
		return nil, err
	}

	s.logger.Info().
		Str("task_id", task.ID).
		Str("program_id", task.ProgramID).
		Str("status", task.Status).
		Msg("created task")
	return task, nil
}

func (s *taskServiceImpl) GetTask(ctx context.Context, taskID string) (*models.Task, error) {
	task, err := s.store.GetTask(ctx, taskID)
	if err != nil {
		if errors.Is(err, storage.ErrTaskNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, err
	}
	return task, nil
}

func (s *taskServiceImpl) GetTasksByProgram(ctx context.Context, programID string) ([]*models.Task, error) {
	tasks, err := s.store.ListByProgram(ctx, programID)
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("program_id", programID).
			Msg("failed to list tasks by program")
		return nil, err
	}
	s.logger.Debug().
		Int("count", len(tasks)).
		Str("program_id", programID).
		Msg("listed tasks by program")
	return tasks, nil
}

func (s *taskServiceImpl) UpdateTask(ctx context.Context, params UpdateTaskParams) (*models.Task, *Conflict, error) {
	var (
		updated  *models.Task
		conflict *Conflict
	)

	err := s.store.Mutate(ctx, func(tx storage.TaskTx) error {
		task, err := tx.GetTask(ctx, params.ID)
		if err != nil {
			if errors.Is(err, storage.ErrTaskNotFound) {
				return ErrTaskNotFound
			}
			return err
		}

		if params.ExpectedVersion != nil && *params.ExpectedVersion != task.Version {
			conflict = &Conflict{ServerTask: task, ClientAttempt: params}
			return nil
		}

		if params.Name != nil {
			task.Name = *params.Name
		}
		if params.Description != nil {
			task.Description = *params.Description
		}
		if params.Color != nil {
			task.Color = *params.Color
		}
		if params.Priority != nil {
			task.Priority = *params.Priority
		}

		if params.Status != nil && *params.Status != task.Status {
			err = s.moveToStatus(ctx, tx, task, *params.Status)
		} else {
			task.Version++
			task.ModifiedAt = time.Now()
			err = tx.SaveTask(ctx, task)
		}
		if err != nil {
			return err
		}

		updated = task
		return nil
	})
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("task_id", params.ID).
			Msg("failed to update task")
		return nil, nil, err
	}
	if conflict != nil {
		s.logger.Warn().
			Str("task_id", params.ID).
			Int64("expected_version", *params.ExpectedVersion).
			Int64("stored_version", conflict.ServerTask.Version).
			Msg("rejected stale task update")
		return nil, conflict, nil
	}

	s.logger.Info().
		Str("task_id", updated.ID).
		Int64("version", updated.Version).
		Msg("updated task")
	return updated, nil, nil
}

func (s *taskServiceImpl) UpdateTaskStatus(ctx context.Context, params UpdateTaskStatusParams) (*models.Task, *Conflict, error) {
	var (
		updated  *models.Task
		conflict *Conflict
	)

	err := s.store.Mutate(ctx, func(tx storage.TaskTx) error {
		task, err := tx.GetTask(ctx, params.ID)
		if err != nil {
			if errors.Is(err, storage.ErrTaskNotFound) {
				return ErrTaskNotFound
			}
			return err
		}

		if params.ExpectedVersion != nil && *params.ExpectedVersion != task.Version {
			conflict = &Conflict{ServerTask: task, ClientAttempt: params}
			return nil
		}

		if params.Status == task.Status {
			// Dropping a task onto its own column changes nothing
			// positional, but it is still an accepted mutation.
			task.Version++
			task.ModifiedAt = time.Now()
			err = tx.SaveTask(ctx, task)
		} else {
			err = s.moveToStatus(ctx, tx, task, params.Status)
		}
		if err != nil {
			return err
		}

		updated = task
		return nil
	})
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("task_id", params.ID).
			Str("status", params.Status).
			Msg("failed to update task status")
		return nil, nil, err
	}
	if conflict != nil {
		s.logger.Warn().
			Str("task_id", params.ID).
			Int64("expected_version", *params.ExpectedVersion).
			Int64("stored_version", conflict.ServerTask.Version).
			Msg("rejected stale status change")
		return nil, conflict, nil
	}

	s.logger.Info().
		Str("task_id", updated.ID).
		Str("status", updated.Status).
		Int64("version", updated.Version).
		Msg("updated task status")
	return updated, nil, nil
}

func (s *taskServiceImpl) ReorderTask(ctx context.Context, params ReorderTaskParams) (*models.Task, *Conflict, error) {
	var (
		updated  *models.Task
		conflict *Conflict
	)

	err := s.store.Mutate(ctx, func(tx storage.TaskTx) error {
		task, err := tx.GetTask(ctx, params.ID)
		if err != nil {
			if errors.Is(err, storage.ErrTaskNotFound) {
				return ErrTaskNotFound
			}
			return err
		}

		if params.ExpectedVersion != nil && *params.ExpectedVersion != task.Version {
			conflict = &Conflict{ServerTask: task, ClientAttempt: params}
			return nil
		}

		partition, err := tx.ListPartition(ctx, task.ProgramID, task.Status)
		if err != nil {
			return err
		}

		found := false
		for _, sibling := range partition {
			if sibling.ID == task.ID {
				found = true
				break
			}
		}
		if !found {
			// The partition listing derives from the same rows the task
			// read did, under the same lock, so this only trips when the
			// stored data was corrupted out of band.
			s.logger.Error().
				Str("task_id", task.ID).
				Str("program_id", task.ProgramID).
				Str("status", task.Status).
				Msg("task absent from its own partition")
			return ErrInvalidState
		}

		if len(partition) <= 1 {
			// Nothing to move relative to.
			updated = task
			return nil
		}

		newIndex := clampIndex(params.NewIndex, len(partition))

		reordered := make([]*models.Task, 0, len(partition))
		for _, sibling := range partition {
			if sibling.ID != task.ID {
				reordered = append(reordered, sibling)
			}
		}
		reordered = append(reordered, nil)
		copy(reordered[newIndex+1:], reordered[newIndex:])
		reordered[newIndex] = task

		for i, sibling := range reordered {
			if sibling.ID == task.ID {
				task.OrderIndex = i
				task.Version++
				task.ModifiedAt = time.Now()
				err = tx.SaveTask(ctx, task)
			} else if sibling.OrderIndex != i {
				// Siblings are repositioned, not modified: their
				// versions stay put so other editors holding stale
				// copies of them do not hit spurious conflicts.
				err = tx.SetOrderIndex(ctx, sibling.ID, i)
			}
			if err != nil {
				return err
			}
		}

		updated = task
		return nil
	})
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("task_id", params.ID).
			Int("new_index", params.NewIndex).
			Msg("failed to reorder task")
		return nil, nil, err
	}
	if conflict != nil {
		s.logger.Warn().
			Str("task_id", params.ID).
			Int64("expected_version", *params.ExpectedVersion).
			Int64("stored_version", conflict.ServerTask.Version).
			Msg("rejected stale reorder")
		return nil, conflict, nil
	}

	s.logger.Info().
		Str("task_id", updated.ID).
		Int("order_index", updated.OrderIndex).
		Int64("version", updated.Version).
		Msg("reordered task")
	return updated, nil, nil
}

func (s *taskServiceImpl) DeleteTask(ctx context.Context, taskID string) error {
	err := s.store.Mutate(ctx, func(tx storage.TaskTx) error {
		task, err := tx.GetTask(ctx, taskID)
		if err != nil {
			if errors.Is(err, storage.ErrTaskNotFound) {
				return ErrTaskNotFound
			}
			return err
		}

		partition, err := tx.ListPartition(ctx, task.ProgramID, task.Status)
		if err != nil {
			return err
		}

		err = tx.DeleteTask(ctx, taskID)
		if err != nil {
			return err
		}

		// Removal is an ordering operation: the partition must stay
		// dense after the task is gone.
		return compactPartition(ctx, tx, partition, taskID)
	})
	if err != nil {
		if !errors.Is(err, ErrTaskNotFound) {
			s.logger.Error().
				Err(err).
				Str("task_id", taskID).
				Msg("failed to delete task")
		}
		return err
	}

	s.logger.Info().
		Str("task_id", taskID).
		Msg("deleted task")
	return nil
}

// moveToStatus appends the task to the tail of the newStatus partition
// and compacts the one it left. The new membership is written before
// the old partition is compacted so no reader ever observes the task
// without a partition.
func (s *taskServiceImpl) moveToStatus(ctx context.Context, tx storage.TaskTx, task *models.Task, newStatus string) error {
	columns, err := s.boardColumns(ctx, task.ProgramID)
	if err != nil {
		return err
	}
	if !statusAllowed(columns, newStatus) {
		return ErrInvalidTaskStatus
	}

	oldPartition, err := tx.ListPartition(ctx, task.ProgramID, task.Status)
	if err != nil {
		return err
	}
	target, err := tx.ListPartition(ctx, task.ProgramID, newStatus)
	if err != nil {
		return err
	}

	task.Status = newStatus
	task.OrderIndex = len(target)
	task.Version++
	task.ModifiedAt = time.Now()

	err = tx.SaveTask(ctx, task)
	if err != nil {
		return err
	}
	return compactPartition(ctx, tx, oldPartition, task.ID)
}

func (s *taskServiceImpl) boardColumns(ctx context.Context, programID string) ([]models.ColumnConfig, error) {
	columns, err := s.columns.GetColumns(ctx, programID)
	if err != nil {
		if errors.Is(err, storage.ErrColumnConfigNotFound) {
			return models.DefaultColumns(), nil
		}
		return nil, err
	}
	return columns, nil
}

func statusAllowed(columns []models.ColumnConfig, status string) bool {
	for _, column := range columns {
		if column.ID == status {
			return true
		}
	}
	return false
}

func clampIndex(index, size int) int {
	if index < 0 {
		return 0
	}
	if index > size-1 {
		return size - 1
	}
	return index
}

// compactPartition rewrites the order indices of a partition to the
// dense sequence 0..n-1, skipping excludeID (already moved or deleted).
// Sibling versions are untouched.
func compactPartition(ctx context.Context, tx storage.TaskTx, partition []*models.Task, excludeID string) error {
	next := 0
	for _, sibling := range partition {
		if sibling.ID == excludeID {
			continue
		}
		if sibling.OrderIndex != next {
			err := tx.SetOrderIndex(ctx, sibling.ID, next)
			if err != nil {
				return err
			}
		}
		next++
	}
	return nil
}

package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/medtrack/boardsync/internal/models"
	"github.com/medtrack/boardsync/internal/storage"
)

type TaskStore struct {
	logger zerolog.Logger
	pgPool *pgxpool.Pool
}

func NewTaskStore(
	logger zerolog.Logger,
	pgPool *pgxpool.Pool,
) *TaskStore {
	return &TaskStore{
		logger: logger,
		pgPool: pgPool,
	}
}

const taskColumns = `id,
       program_id,
       name,
       description,
       status,
       color,
       priority,
       order_index,
       version,
       created_at,
       modified_at`

func scanTask(row pgx.Row) (*models.Task, error) {
	task := new(models.Task)
	err := row.Scan(
		&task.ID,
		&task.ProgramID,
		&task.Name,
		&task.Description,
		&task.Status,
		&task.Color,
		&task.Priority,
		&task.OrderIndex,
		&task.Version,
		&task.CreatedAt,
		&task.ModifiedAt,
	)
	if err != nil {
		return nil, err
	}
	return task, nil
}

func collectTasks(rows pgx.Rows) ([]*models.Task, error) {
	defer rows.Close()

	var tasks []*models.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	return tasks, rows.Err()
}

func (s *TaskStore) GetTask(ctx context.Context, id string) (*models.Task, error) {
	const selectTaskByIDQuery = `
SELECT ` + taskColumns + `
FROM tasks
WHERE id = $1
`
	task, err := scanTask(s.pgPool.QueryRow(ctx, selectTaskByIDQuery, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, storage.ErrTaskNotFound
		}

		s.logger.Error().
			Err(err).
			Str("task_id", id).
			Msg("failed to select task by id")
		return nil, err
	}
	return task, nil
}

func (s *TaskStore) ListByProgram(ctx context.Context, programID string) ([]*models.Task, error) {
	const selectTasksByProgramQuery = `
SELECT ` + taskColumns + `
FROM tasks
WHERE program_id = $1
ORDER BY status, order_index
`
	rows, err := s.pgPool.Query(ctx, selectTasksByProgramQuery, programID)
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("program_id", programID).
			Msg("failed to select tasks by program id")
		return nil, err
	}
	return collectTasks(rows)
}

func (s *TaskStore) ListPartition(ctx context.Context, programID, status string) ([]*models.Task, error) {
	const selectPartitionQuery = `
SELECT ` + taskColumns + `
FROM tasks
WHERE program_id = $1 AND status = $2
ORDER BY order_index
`
	rows, err := s.pgPool.Query(ctx, selectPartitionQuery, programID, status)
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("program_id", programID).
			Str("status", status).
			Msg("failed to select partition")
		return nil, err
	}
	return collectTasks(rows)
}

func (s *TaskStore) VersionSnapshot(ctx context.Context, programID string) (map[string]int64, error) {
	const selectVersionsQuery = `
SELECT id, version
FROM tasks
WHERE program_id = $1
`
	rows, err := s.pgPool.Query(ctx, selectVersionsQuery, programID)
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("program_id", programID).
			Msg("failed to select version snapshot")
		return nil, err
	}
	defer rows.Close()

	snapshot := make(map[string]int64)
	for rows.Next() {
		var (
			id      string
			version int64
		)
		err = rows.Scan(&id, &version)
		if err != nil {
			return nil, err
		}
		snapshot[id] = version
	}
	return snapshot, rows.Err()
}

// Mutate runs fn inside a transaction. Row and partition reads taken
// through the transaction use FOR UPDATE, so two writers on the same
// task or partition serialize on the database lock.
func (s *TaskStore) Mutate(ctx context.Context, fn func(tx storage.TaskTx) error) error {
	pgTx, err := s.pgPool.Begin(ctx)
	if err != nil {
		s.logger.Error().
			Err(err).
			Msg("failed to begin transaction")
		return err
	}
	defer func() { _ = pgTx.Rollback(ctx) }()

	err = fn(&taskTx{logger: s.logger, tx: pgTx})
	if err != nil {
		return err
	}

	err = pgTx.Commit(ctx)
	if err != nil {
		s.logger.Error().
			Err(err).
			Msg("failed to commit transaction")
		return err
	}
	return nil
}

type taskTx struct {
	logger zerolog.Logger
	tx     pgx.Tx
}

func (t *taskTx) GetTask(ctx context.Context, id string) (*models.Task, error) {
	const selectTaskForUpdateQuery = `
SELECT ` + taskColumns + `
FROM tasks
WHERE id = $1
FOR UPDATE
`
	task, err := scanTask(t.tx.QueryRow(ctx, selectTaskForUpdateQuery, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, storage.ErrTaskNotFound
		}

		t.logger.Error().
			Err(err).
			Str("task_id", id).
			Msg("failed to lock task")
		return nil, err
	}
	return task, nil
}

func (t *taskTx) ListPartition(ctx context.Context, programID, status string) ([]*models.Task, error) {
	const selectPartitionForUpdateQuery = `
SELECT ` + taskColumns + `
FROM tasks
WHERE program_id = $1 AND status = $2
ORDER BY order_index
FOR UPDATE
`
	rows, err := t.tx.Query(ctx, selectPartitionForUpdateQuery, programID, status)
	if err != nil {
		t.logger.Error().
			Err(err).
			Str("program_id", programID).
			Str("status", status).
			Msg("failed to lock partition")
		return nil, err
	}
	return collectTasks(rows)
}

func (t *taskTx) InsertTask(ctx context.Context, task *models.Task) error {
	const insertTaskQuery = `
INSERT INTO tasks (` + taskColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
`
	_, err := t.tx.Exec(
		ctx,
		insertTaskQuery,
		task.ID,
		task.ProgramID,
		task.Name,
		task.Description,
		task.Status,
		task.Color,
		task.Priority,
		task.OrderIndex,
		task.Version,
		task.CreatedAt,
		task.ModifiedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return storage.ErrTaskAlreadyExists
		}

		t.logger.Error().
			Err(err).
			Str("task_id", task.ID).
			Msg("failed to insert task")
		return err
	}
	return nil
}

func (t *taskTx) SaveTask(ctx context.Context, task *models.Task) error {
	const updateTaskQuery = `
UPDATE tasks
SET program_id = $1,
    name = $2,
    description = $3,
    status = $4,
    color = $5,
    priority = $6,
    order_index = $7,
    version = $8,
    modified_at = $9
WHERE id = $10
`
	tag, err := t.tx.Exec(
		ctx,
		updateTaskQuery,
		task.ProgramID,
		task.Name,
		task.Description,
		task.Status,
		task.Color,
		task.Priority,
		task.OrderIndex,
		task.Version,
		task.ModifiedAt,
		task.ID,
	)
	if err != nil {
		t.logger.Error().
			Err(err).
			Str("task_id", task.ID).
			Msg("failed to save task")
		return err
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrTaskNotFound
	}
	return nil
}

func (t *taskTx) SetOrderIndex(ctx context.Context, id string, orderIndex int) error {
	const updateOrderIndexQuery = `
UPDATE tasks
SET order_index = $1
WHERE id = $2
`
	tag, err := t.tx.Exec(ctx, updateOrderIndexQuery, orderIndex, id)
	if err != nil {
		t.logger.Error().
			Err(err).
			Str("task_id", id).
			Msg("failed to set order index")
		return err
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrTaskNotFound
	}
	return nil
}

func (t *taskTx) DeleteTask(ctx context.Context, id string) error {
	const deleteTaskQuery = `
DELETE FROM tasks
WHERE id = $1
`
	tag, err := t.tx.Exec(ctx, deleteTaskQuery, id)
	if err != nil {
		t.logger.Error().
			Err(err).
			Str("task_id", id).
			Msg("failed to delete task")
		return err
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrTaskNotFound
	}
	return nil
}

package services

import (
	"context"
	"errors"

	"github.com/medtrack/boardsync/internal/models"
)

var (
	ErrTaskNotFound      = errors.New("task not found")
	ErrColumnNotFound    = errors.New("column not found")
	ErrInvalidTaskStatus = errors.New("invalid task status")

	// ErrInvalidState reports a task whose row exists but is missing
	// from the partition it claims to belong to. It is a data
	// integrity failure, not a user error.
	ErrInvalidState = errors.New("task missing from its partition")

	// ErrInvalidConfiguration reports a column list that violates the
	// count bounds or contains duplicate ids.
	ErrInvalidConfiguration = errors.New("invalid column configuration")
)

// Conflict is the structured result of a rejected stale write. It is
// returned as data, never as an error: the caller owns the
// reconciliation policy and needs both sides to apply it.
type Conflict struct {
	// ServerTask is the currently stored row, including the version
	// the client must observe before retrying.
	ServerTask *models.Task

	// ClientAttempt echoes the rejected mutation parameters.
	ClientAttempt any
}

type TaskService interface {
	// CreateTask inserts a new task at version 1, appended to the
	// tail of the target (program, status) partition. An empty status
	// lands the task in the board's first column.
	CreateTask(ctx context.Context, params CreateTaskParams) (*models.Task, error)

	GetTask(ctx context.Context, taskID string) (*models.Task, error)
	GetTasksByProgram(ctx context.Context, programID string) ([]*models.Task, error)

	// UpdateTask applies the given content fields if ExpectedVersion
	// matches the stored version (or is nil), bumping the version by
	// one. On a mismatch it performs no mutation and returns a
	// non-nil Conflict. A changed Status field moves the task to the
	// tail of the new partition, exactly like UpdateTaskStatus.
	UpdateTask(ctx context.Context, params UpdateTaskParams) (*models.Task, *Conflict, error)

	// UpdateTaskStatus moves the task to the tail of the new status
	// partition and compacts the one it left. Same version contract
	// as UpdateTask. A nil ExpectedVersion skips the check, which is
	// how system-initiated re-homing overrides optimistic control.
	UpdateTaskStatus(ctx context.Context, params UpdateTaskStatusParams) (*models.Task, *Conflict, error)

	// ReorderTask moves the task to NewIndex within its current
	// partition and rewrites every sibling's order index to keep the
	// sequence dense. Out-of-range targets are clamped to the nearest
	// bound, not rejected. Only the moved task's version is bumped.
	ReorderTask(ctx context.Context, params ReorderTaskParams) (*models.Task, *Conflict, error)

	// DeleteTask removes the task and compacts the order indices of
	// the partition it belonged to.
	DeleteTask(ctx context.Context, taskID string) error
}

type ColumnService interface {
	// GetColumns returns the program's column list, falling back to
	// the default three-column template when none was ever saved.
	GetColumns(ctx context.Context, programID string) ([]models.ColumnConfig, error)

	// SaveColumns replaces the program's entire column list. It
	// returns ErrInvalidConfiguration when the count falls outside
	// [MinColumns, MaxColumns] or an id repeats.
	SaveColumns(ctx context.Context, programID string, columns []models.ColumnConfig) error

	// MoveColumn removes the column from its position and reinserts
	// it at newPosition, clamped into range.
	MoveColumn(ctx context.Context, programID, columnID string, newPosition int) error

	// DeleteColumn removes the column and re-homes its tasks to the
	// remaining first column's partition. Deleting below MinColumns
	// is rejected entirely.
	DeleteColumn(ctx context.Context, programID, columnID string) error
}

type PollerService interface {
	// Poll fetches the program's current version snapshot and diffs
	// it against the caller's last known one. The engine keeps no
	// state between calls; the caller owns the scheduling loop.
	Poll(ctx context.Context, programID string, known map[string]int64) (*models.ChangeSet, error)
}

type CreateTaskParams struct {
	ProgramID   string
	Name        string
	Description string
	Status      string
	Color       string
	Priority    string
}

type UpdateTaskParams struct {
	ID              string
	Name            *string
	Description     *string
	Status          *string
	Color           *string
	Priority        *string
	ExpectedVersion *int64
}

type UpdateTaskStatusParams struct {
	ID              string
	Status          string
	ExpectedVersion *int64
}

type ReorderTaskParams struct {
	ID              string
	NewIndex        int
	ExpectedVersion *int64
}

package storage

import (
	"context"
	"errors"

	"github.com/medtrack/boardsync/internal/models"
)

var (
	ErrTaskNotFound         = errors.New("task not found")
	ErrTaskAlreadyExists    = errors.New("task already exists")
	ErrColumnConfigNotFound = errors.New("column config not found")
)

// TaskTx is the mutation scope handed to TaskStore.Mutate. Reads taken
// through it are stable for the duration of the callback: no other
// writer can touch the rows it returned until the callback finishes.
type TaskTx interface {
	// GetTask locks and returns the task or ErrTaskNotFound.
	GetTask(ctx context.Context, id string) (*models.Task, error)

	// ListPartition locks and returns every task in the
	// (programID, status) partition ordered by OrderIndex.
	ListPartition(ctx context.Context, programID, status string) ([]*models.Task, error)

	// InsertTask persists a new row. ErrTaskAlreadyExists on a
	// duplicate id.
	InsertTask(ctx context.Context, task *models.Task) error

	// SaveTask rewrites the full row of an existing task.
	SaveTask(ctx context.Context, task *models.Task) error

	// SetOrderIndex repositions a sibling without touching its
	// version or modification time.
	SetOrderIndex(ctx context.Context, id string, orderIndex int) error

	DeleteTask(ctx context.Context, id string) error
}

// TaskStore is the durable task repository. Mutate serializes
// conflicting writers: callbacks touching the same rows never
// interleave, and a callback returning an error leaves no trace.
type TaskStore interface {
	GetTask(ctx context.Context, id string) (*models.Task, error)
	ListByProgram(ctx context.Context, programID string) ([]*models.Task, error)
	ListPartition(ctx context.Context, programID, status string) ([]*models.Task, error)

	// VersionSnapshot returns the {task id: version} map for a program.
	VersionSnapshot(ctx context.Context, programID string) (map[string]int64, error)

	Mutate(ctx context.Context, fn func(tx TaskTx) error) error
}

// ColumnStore holds one ordered column list per program. SaveColumns
// is a full replace; GetColumns returns ErrColumnConfigNotFound for
// programs that never saved a list.
type ColumnStore interface {
	GetColumns(ctx context.Context, programID string) ([]models.ColumnConfig, error)
	SaveColumns(ctx context.Context, programID string, columns []models.ColumnConfig) error
}

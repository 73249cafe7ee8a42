package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/medtrack/boardsync/internal/models"
	"github.com/medtrack/boardsync/internal/storage"
)

// Store is an in-memory implementation of storage.TaskStore and
// storage.ColumnStore, used by the local embedding mode and by tests.
// Mutations run on a copy of the state and are swapped in only when
// the callback succeeds.
type Store struct {
	mu      sync.Mutex
	tasks   map[string]*models.Task
	columns map[string][]models.ColumnConfig
}

func New() *Store {
	return &Store{
		tasks:   make(map[string]*models.Task),
		columns: make(map[string][]models.ColumnConfig),
	}
}

func (s *Store) GetTask(_ context.Context, id string) (*models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, ok := s.tasks[id]
	if !ok {
		return nil, storage.ErrTaskNotFound
	}
	return task.Clone(), nil
}

func (s *Store) ListByProgram(_ context.Context, programID string) ([]*models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var tasks []*models.Task
	for _, task := range s.tasks {
		if task.ProgramID == programID {
			tasks = append(tasks, task.Clone())
		}
	}
	sort.Slice(tasks, func(i, j int) bool {
		if tasks[i].Status != tasks[j].Status {
			return tasks[i].Status < tasks[j].Status
		}
		return tasks[i].OrderIndex < tasks[j].OrderIndex
	})
	return tasks, nil
}

func (s *Store) ListPartition(_ context.Context, programID, status string) ([]*models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return listPartition(s.tasks, programID, status), nil
}

func (s *Store) VersionSnapshot(_ context.Context, programID string) (map[string]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := make(map[string]int64)
	for _, task := range s.tasks {
		if task.ProgramID == programID {
			snapshot[task.ID] = task.Version
		}
	}
	return snapshot, nil
}

func (s *Store) Mutate(ctx context.Context, fn func(tx storage.TaskTx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	scratch := make(map[string]*models.Task, len(s.tasks))
	for id, task := range s.tasks {
		scratch[id] = task.Clone()
	}

	err := fn(&tx{tasks: scratch})
	if err != nil {
		return err
	}

	s.tasks = scratch
	return nil
}

func (s *Store) GetColumns(_ context.Context, programID string) ([]models.ColumnConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	columns, ok := s.columns[programID]
	if !ok {
		return nil, storage.ErrColumnConfigNotFound
	}
	return append([]models.ColumnConfig(nil), columns...), nil
}

func (s *Store) SaveColumns(_ context.Context, programID string, columns []models.ColumnConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.columns[programID] = append([]models.ColumnConfig(nil), columns...)
	return nil
}

type tx struct {
	tasks map[string]*models.Task
}

func (t *tx) GetTask(_ context.Context, id string) (*models.Task, error) {
	task, ok := t.tasks[id]
	if !ok {
		return nil, storage.ErrTaskNotFound
	}
	return task.Clone(), nil
}

func (t *tx) ListPartition(_ context.Context, programID, status string) ([]*models.Task, error) {
	return listPartition(t.tasks, programID, status), nil
}

func (t *tx) InsertTask(_ context.Context, task *models.Task) error {
	if _, ok := t.tasks[task.ID]; ok {
		return storage.ErrTaskAlreadyExists
	}
	t.tasks[task.ID] = task.Clone()
	return nil
}

func (t *tx) SaveTask(_ context.Context, task *models.Task) error {
	if _, ok := t.tasks[task.ID]; !ok {
		return storage.ErrTaskNotFound
	}
	t.tasks[task.ID] = task.Clone()
	return nil
}

func (t *tx) SetOrderIndex(_ context.Context, id string, orderIndex int) error {
	task, ok := t.tasks[id]
	if !ok {
		return storage.ErrTaskNotFound
	}
	task.OrderIndex = orderIndex
	return nil
}

func (t *tx) DeleteTask(_ context.Context, id string) error {
	if _, ok := t.tasks[id]; !ok {
		return storage.ErrTaskNotFound
	}
	delete(t.tasks, id)
	return nil
}

func listPartition(tasks map[string]*models.Task, programID, status string) []*models.Task {
	var partition []*models.Task
	for _, task := range tasks {
		if task.ProgramID == programID && task.Status == status {
			partition = append(partition, task.Clone())
		}
	}
	sort.Slice(partition, func(i, j int) bool {
		return partition[i].OrderIndex < partition[j].OrderIndex
	})
	return partition
}

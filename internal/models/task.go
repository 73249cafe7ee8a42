package models

import "time"

type Task struct {
	ID          string
	ProgramID   string
	Name        string
	Description string
	Status      string
	Color       string
	Priority    string
	OrderIndex  int
	Version     int64
	CreatedAt   time.Time
	ModifiedAt  time.Time
}

// Clone returns a copy so callers holding a snapshot never
// observe a row mid-mutation.
func (t *Task) Clone() *Task {
	c := *t
	return &c
}

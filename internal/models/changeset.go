package models

// ChangeSet is the result of diffing a client's last known
// task-version snapshot against the stored one.
type ChangeSet struct {
	Added   []string
	Removed []string
	Updated []string

	// Snapshot is the fresh {task id: version} map the diff was
	// computed against, so callers can adopt it as their new baseline.
	Snapshot map[string]int64
}

func (c *ChangeSet) Empty() bool {
	return len(c.Added) == 0 && len(c.Removed) == 0 && len(c.Updated) == 0
}

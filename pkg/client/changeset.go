package client

import "sort"

// ChangeSet is the result of diffing two {task id: version} snapshots.
type ChangeSet struct {
	Added   []string
	Removed []string
	Updated []string

	// Snapshot is the fresh map the diff was computed against, so the
	// caller can adopt it as the new baseline.
	Snapshot map[string]int64
}

func (c *ChangeSet) Empty() bool {
	return len(c.Added) == 0 && len(c.Removed) == 0 && len(c.Updated) == 0
}

// DiffVersions computes the change set between the caller's last known
// snapshot and a fresh one. Ids unknown to the caller are added, ids
// gone from the fresh snapshot are removed, and ids whose fresh version
// is higher are updated. A task can never move to a lower version, so
// equal versions mean no change.
func DiffVersions(known, fresh map[string]int64) *ChangeSet {
	changes := &ChangeSet{Snapshot: fresh}

	for id, version := range fresh {
		knownVersion, ok := known[id]
		switch {
		case !ok:
			changes.Added = append(changes.Added, id)
		case version > knownVersion:
			changes.Updated = append(changes.Updated, id)
		}
	}
	for id := range known {
		if _, ok := fresh[id]; !ok {
			changes.Removed = append(changes.Removed, id)
		}
	}

	sort.Strings(changes.Added)
	sort.Strings(changes.Removed)
	sort.Strings(changes.Updated)
	return changes
}

package client

import (
	"reflect"
	"testing"
)

func TestDiffVersions(t *testing.T) {
	tests := []struct {
		name    string
		known   map[string]int64
		fresh   map[string]int64
		added   []string
		removed []string
		updated []string
	}{
		{
			name:    "add remove update",
			known:   map[string]int64{"1": 1, "2": 1},
			fresh:   map[string]int64{"1": 2, "3": 1},
			added:   []string{"3"},
			removed: []string{"2"},
			updated: []string{"1"},
		},
		{
			name:  "identical snapshots",
			known: map[string]int64{"1": 1, "2": 5},
			fresh: map[string]int64{"1": 1, "2": 5},
		},
		{
			name:  "nil baseline marks everything added",
			known: nil,
			fresh: map[string]int64{"a": 1, "b": 2},
			added: []string{"a", "b"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			changes := DiffVersions(tt.known, tt.fresh)

			if !reflect.DeepEqual(changes.Added, tt.added) {
				t.Errorf("added = %v, want %v", changes.Added, tt.added)
			}
			if !reflect.DeepEqual(changes.Removed, tt.removed) {
				t.Errorf("removed = %v, want %v", changes.Removed, tt.removed)
			}
			if !reflect.DeepEqual(changes.Updated, tt.updated) {
				t.Errorf("updated = %v, want %v", changes.Updated, tt.updated)
			}
			if !reflect.DeepEqual(changes.Snapshot, tt.fresh) {
				t.Errorf("snapshot = %v, want %v", changes.Snapshot, tt.fresh)
			}
		})
	}
}

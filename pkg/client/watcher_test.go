package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/rs/zerolog"
)

// snapshotServer serves a mutable version snapshot for one program.
type snapshotServer struct {
	mu       sync.Mutex
	snapshot map[string]int64
}

func (s *snapshotServer) set(snapshot map[string]int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot = snapshot
}

func (s *snapshotServer) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(s.snapshot)
	}
}

func newTestWatcher(t *testing.T, cfg WatcherConfig) (*Watcher, *snapshotServer) {
	t.Helper()

	versions := &snapshotServer{snapshot: map[string]int64{}}
	server := httptest.NewServer(versions.handler())
	t.Cleanup(server.Close)

	cfg.ProgramID = "p1"
	watcher := NewWatcher(zerolog.Nop(), New(zerolog.Nop(), server.URL), cfg)
	return watcher, versions
}

// seedBaseline mirrors Run's first fetch: the starting snapshot becomes
// the baseline without being reported as changes.
func seedBaseline(watcher *Watcher, versions *snapshotServer, snapshot map[string]int64) {
	versions.set(snapshot)
	watcher.known = snapshot
}

func TestWatcherLastWinsRefreshes(t *testing.T) {
	var got *ChangeSet
	watcher, versions := newTestWatcher(t, WatcherConfig{
		Policy:    PolicyLastWins,
		OnRefresh: func(changes *ChangeSet) { got = changes },
	})

	seedBaseline(watcher, versions, map[string]int64{"t1": 1})
	got = nil

	versions.set(map[string]int64{"t1": 2, "t2": 1})
	if err := watcher.pollOnce(context.Background()); err != nil {
		t.Fatalf("pollOnce: %v", err)
	}

	if got == nil {
		t.Fatal("OnRefresh not invoked")
	}
	if len(got.Updated) != 1 || got.Updated[0] != "t1" {
		t.Errorf("updated = %v, want [t1]", got.Updated)
	}
	if len(got.Added) != 1 || got.Added[0] != "t2" {
		t.Errorf("added = %v, want [t2]", got.Added)
	}

	// Baseline adopted: an unchanged snapshot is quiet.
	got = nil
	if err := watcher.pollOnce(context.Background()); err != nil {
		t.Fatalf("pollOnce: %v", err)
	}
	if got != nil {
		t.Errorf("OnRefresh invoked again with no changes: %+v", got)
	}
}

func TestWatcherManualDefersWhileEditing(t *testing.T) {
	refreshed := 0
	prompted := 0
	editing := true
	watcher, versions := newTestWatcher(t, WatcherConfig{
		Policy:    PolicyManual,
		Editing:   func() bool { return editing },
		OnRefresh: func(*ChangeSet) { refreshed++ },
		OnPrompt: func(*ChangeSet) bool {
			prompted++
			return false
		},
	})

	seedBaseline(watcher, versions, map[string]int64{"t1": 1})
	refreshed = 0

	versions.set(map[string]int64{"t1": 2})
	if err := watcher.pollOnce(context.Background()); err != nil {
		t.Fatalf("pollOnce: %v", err)
	}
	if prompted != 1 || refreshed != 0 {
		t.Fatalf("prompted=%d refreshed=%d, want deferred prompt", prompted, refreshed)
	}

	// The declined changes surface again on the next poll.
	if err := watcher.pollOnce(context.Background()); err != nil {
		t.Fatalf("pollOnce: %v", err)
	}
	if prompted != 2 {
		t.Fatalf("prompted=%d, want deferred changes resurfaced", prompted)
	}

	// Once the edit finishes, the pending changes apply without a prompt.
	editing = false
	if err := watcher.pollOnce(context.Background()); err != nil {
		t.Fatalf("pollOnce: %v", err)
	}
	if refreshed != 1 || prompted != 2 {
		t.Fatalf("refreshed=%d prompted=%d, want silent refresh after edit ends", refreshed, prompted)
	}
}

func TestWatcherManualPromptAcceptRefreshes(t *testing.T) {
	refreshed := 0
	watcher, versions := newTestWatcher(t, WatcherConfig{
		Policy:    PolicyManual,
		Editing:   func() bool { return true },
		OnRefresh: func(*ChangeSet) { refreshed++ },
		OnPrompt:  func(*ChangeSet) bool { return true },
	})

	seedBaseline(watcher, versions, map[string]int64{"t1": 1})
	refreshed = 0

	versions.set(map[string]int64{"t1": 2})
	if err := watcher.pollOnce(context.Background()); err != nil {
		t.Fatalf("pollOnce: %v", err)
	}
	if refreshed != 1 {
		t.Fatalf("refreshed=%d, want accepted prompt to refresh", refreshed)
	}
}

func TestWatcherDefaultPolicy(t *testing.T) {
	watcher, _ := newTestWatcher(t, WatcherConfig{})
	if watcher.cfg.Policy != PolicyLastWins {
		t.Errorf("policy = %q, want last_wins default", watcher.cfg.Policy)
	}
	if watcher.cfg.Interval != DefaultInterval {
		t.Errorf("interval = %v, want %v", watcher.cfg.Interval, DefaultInterval)
	}
}

package client

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Policy decides what the watcher does with detected changes while the
// user has an edit in flight.
type Policy string

const (
	// PolicyLastWins silently refreshes to the server's latest state.
	PolicyLastWins Policy = "last_wins"

	// PolicyManual prompts before overwriting an in-flight local edit.
	PolicyManual Policy = "manual"
)

const (
	DefaultInterval = 5 * time.Second
	MinInterval     = time.Second
	MaxInterval     = time.Minute
)

type WatcherConfig struct {
	ProgramID string

	// Interval between polls. Zero means DefaultInterval; other
	// values are clamped into [MinInterval, MaxInterval].
	Interval time.Duration

	Policy Policy

	// Editing reports whether a local edit is in flight. Only
	// consulted under PolicyManual; nil means never editing.
	Editing func() bool

	// OnRefresh is invoked when the board should be re-fetched.
	OnRefresh func(changes *ChangeSet)

	// OnPrompt is invoked under PolicyManual when changes arrive
	// mid-edit. Returning true discards the local edit and refreshes;
	// returning false defers, leaving the changes pending for the
	// next poll.
	OnPrompt func(changes *ChangeSet) bool
}

// Watcher drives change detection for one program board. The engine
// itself owns no timer: the watcher is the caller-side scheduling loop
// that repeatedly hits the version snapshot endpoint and diffs it
// against the last adopted state.
type Watcher struct {
	logger zerolog.Logger
	client *Client
	cfg    WatcherConfig
	known  map[string]int64
}

func NewWatcher(logger zerolog.Logger, client *Client, cfg WatcherConfig) *Watcher {
	cfg.Interval = clampInterval(cfg.Interval)
	if cfg.Policy == "" {
		cfg.Policy = PolicyLastWins
	}

	return &Watcher{
		logger: logger,
		client: client,
		cfg:    cfg,
		known:  make(map[string]int64),
	}
}

// Run polls until ctx is cancelled. The first poll seeds the baseline
// without reporting changes: a freshly started watcher has no edits to
// protect.
func (w *Watcher) Run(ctx context.Context) error {
	snapshot, err := w.client.TaskVersions(ctx, w.cfg.ProgramID)
	if err != nil {
		return err
	}
	w.known = snapshot

	ticker := time.NewTicker(w.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			err = w.pollOnce(ctx)
			if err != nil {
				w.logger.Error().
					Err(err).
					Str("program_id", w.cfg.ProgramID).
					Msg("poll failed")
			}
		}
	}
}

func (w *Watcher) pollOnce(ctx context.Context) error {
	snapshot, err := w.client.TaskVersions(ctx, w.cfg.ProgramID)
	if err != nil {
		return err
	}

	changes := DiffVersions(w.known, snapshot)
	if changes.Empty() {
		w.known = snapshot
		return nil
	}

	w.logger.Debug().
		Str("program_id", w.cfg.ProgramID).
		Int("added", len(changes.Added)).
		Int("removed", len(changes.Removed)).
		Int("updated", len(changes.Updated)).
		Msg("detected board changes")

	if w.cfg.Policy == PolicyManual && w.cfg.Editing != nil && w.cfg.Editing() {
		if w.cfg.OnPrompt == nil || !w.cfg.OnPrompt(changes) {
			// Deferred: keep the old baseline so the changes surface
			// again on the next poll.
			return nil
		}
	}

	if w.cfg.OnRefresh != nil {
		w.cfg.OnRefresh(changes)
	}
	w.known = snapshot
	return nil
}

func clampInterval(interval time.Duration) time.Duration {
	switch {
	case interval == 0:
		return DefaultInterval
	case interval < MinInterval:
		return MinInterval
	case interval > MaxInterval:
		return MaxInterval
	default:
		return interval
	}
}

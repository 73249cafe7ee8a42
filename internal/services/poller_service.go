package services

import (
	"context"
	"sort"

	"github.com/rs/zerolog"

	"github.com/medtrack/boardsync/internal/models"
	"github.com/medtrack/boardsync/internal/storage"
)

type pollerServiceImpl struct {
	logger zerolog.Logger
	store  storage.TaskStore
}

func NewPollerService(
	logger zerolog.Logger,
	store storage.TaskStore,
) PollerService {
	return &pollerServiceImpl{
		logger: logger,
		store:  store,
	}
}

func (s *pollerServiceImpl) Poll(ctx context.Context, programID string, known map[string]int64) (*models.ChangeSet, error) {
	snapshot, err := s.store.VersionSnapshot(ctx, programID)
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("program_id", programID).
			Msg("failed to fetch version snapshot")
		return nil, err
	}

	changes := DiffVersions(known, snapshot)
	if !changes.Empty() {
		s.logger.Debug().
			Str("program_id", programID).
			Int("added", len(changes.Added)).
			Int("removed", len(changes.Removed)).
			Int("updated", len(changes.Updated)).
			Msg("board changed since last poll")
	}
	return changes, nil
}

// DiffVersions computes the change set between a client's last known
// {task id: version} snapshot and a fresh one. Ids unknown to the
// client are added, ids gone from the fresh snapshot are removed, and
// ids whose fresh version is higher are updated. A task can never move
// to a lower version, so equal versions mean no change.
func DiffVersions(known, fresh map[string]int64) *models.ChangeSet {
	changes := &models.ChangeSet{Snapshot: fresh}

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

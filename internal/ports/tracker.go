package ports

import (
	"context"

	"github.com/Guilhem-Bonnet/Plex-AniList-Scrobbler/internal/domain"
)

// Tracker is the narrow surface of the remote tracking service used by the
// reconciler. Implemented by the AniList client; replaced by a fake in tests.
type Tracker interface {
	// Viewer returns the authenticated user's id.
	Viewer(ctx context.Context) (int, error)

	// TrackedAnime returns the viewer's entries for the given list statuses.
	TrackedAnime(ctx context.Context, userID int, statuses []domain.ListStatus) ([]domain.TrackingEntry, error)

	// UpdateEntry sets the progress of a list entry, optionally moving it to
	// another status, and returns the state echoed back by the service.
	UpdateEntry(ctx context.Context, entryID int, progress int, status domain.ListStatus) (EntryUpdate, error)
}

// EntryUpdate is the state the tracking service reports after an update.
type EntryUpdate struct {
	Status   domain.ListStatus
	Progress int
	RawBody  string
}

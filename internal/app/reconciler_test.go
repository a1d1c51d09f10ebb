package app

import (
	"context"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"github.com/Guilhem-Bonnet/Plex-AniList-Scrobbler/internal/domain"
	"github.com/Guilhem-Bonnet/Plex-AniList-Scrobbler/internal/ports"
)

type updateCall struct {
	EntryID  int
	Progress int
	Status   domain.ListStatus
}

type fakeTracker struct {
	mu      sync.Mutex
	entries []domain.TrackingEntry
	updates []updateCall

	// Par défaut l'update renvoie en écho le progress/status demandés.
	respond func(call updateCall) (ports.EntryUpdate, error)
}

func (f *fakeTracker) Viewer(ctx context.Context) (int, error) { return 42, nil }

func (f *fakeTracker) TrackedAnime(ctx context.Context, userID int, statuses []domain.ListStatus) ([]domain.TrackingEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.TrackingEntry(nil), f.entries...), nil
}

func (f *fakeTracker) UpdateEntry(ctx context.Context, entryID int, progress int, status domain.ListStatus) (ports.EntryUpdate, error) {
	call := updateCall{EntryID: entryID, Progress: progress, Status: status}
	f.mu.Lock()
	f.updates = append(f.updates, call)
	respond := f.respond
	f.mu.Unlock()
	if respond != nil {
		return respond(call)
	}
	return ports.EntryUpdate{Status: status, Progress: progress}, nil
}

func (f *fakeTracker) calls() []updateCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]updateCall(nil), f.updates...)
}

func newTestReconciler(tracker ports.Tracker) *ProgressReconciler {
	return NewProgressReconciler(zerolog.Nop(), tracker, "alice")
}

func event(episode int) domain.ScrobbleEvent {
	return domain.ScrobbleEvent{
		Kind:      domain.EventScrobble,
		Account:   "alice",
		Library:   "Anime",
		MediaType: domain.MediaTypeEpisode,
		GUID:      "com.plexapp.agents.hama://anidb-69/1/1?lang=en",
		ShowTitle: "Some Show",
		Season:    1,
		Episode:   episode,
	}
}

func TestReconcile_WatchingAdvancesProgress(t *testing.T) {
	tracker := &fakeTracker{entries: []domain.TrackingEntry{
		{EntryID: 7, Status: domain.StatusWatching, Progress: 3, MediaID: 123, TotalEpisodes: 12},
	}}
	r := newTestReconciler(tracker)

	results := r.Reconcile(context.Background(), event(4), 123)
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if results[0].Outcome != domain.OutcomeUpdated {
		t.Fatalf("expected updated, got %s (%s)", results[0].Outcome, results[0].Reason)
	}
	if results[0].Progress != 4 {
		t.Fatalf("expected progress 4, got %d", results[0].Progress)
	}
	calls := tracker.calls()
	if len(calls) != 1 || calls[0].Status != domain.StatusWatching {
		t.Fatalf("unexpected update calls: %+v", calls)
	}
}

func TestReconcile_LastEpisodeCompletes(t *testing.T) {
	tracker := &fakeTracker{entries: []domain.TrackingEntry{
		{EntryID: 7, Status: domain.StatusWatching, Progress: 11, MediaID: 123, TotalEpisodes: 12},
	}}
	r := newTestReconciler(tracker)

	results := r.Reconcile(context.Background(), event(12), 123)
	if len(results) != 1 || results[0].Outcome != domain.OutcomeCompleted {
		t.Fatalf("expected completed, got %+v", results)
	}
	calls := tracker.calls()
	if len(calls) != 1 || calls[0].Status != domain.StatusCompleted || calls[0].Progress != 12 {
		t.Fatalf("unexpected update calls: %+v", calls)
	}
}

func TestReconcile_PlanningFirstEpisodePromotes(t *testing.T) {
	tracker := &fakeTracker{entries: []domain.TrackingEntry{
		{EntryID: 9, Status: domain.StatusPlanning, Progress: 0, MediaID: 55, TotalEpisodes: 13},
	}}
	r := newTestReconciler(tracker)

	results := r.Reconcile(context.Background(), event(1), 55)
	if len(results) != 1 || results[0].Outcome != domain.OutcomeUpdated {
		t.Fatalf("expected updated, got %+v", results)
	}
	calls := tracker.calls()
	if len(calls) != 1 || calls[0].Status != domain.StatusWatching || calls[0].Progress != 1 {
		t.Fatalf("unexpected update calls: %+v", calls)
	}
}

func TestReconcile_PlanningNonFirstEpisodeSkips(t *testing.T) {
	tracker := &fakeTracker{entries: []domain.TrackingEntry{
		{EntryID: 9, Status: domain.StatusPlanning, Progress: 0, MediaID: 55, TotalEpisodes: 13},
	}}
	r := newTestReconciler(tracker)

	results := r.Reconcile(context.Background(), event(2), 55)
	if len(results) != 1 || results[0].Outcome != domain.OutcomeSkipped || results[0].Reason != domain.ReasonNotFirstEpisode {
		t.Fatalf("expected not-first-episode skip, got %+v", results)
	}
	if len(tracker.calls()) != 0 {
		t.Fatalf("no update should be issued")
	}
}

func TestReconcile_RegressionGuard(t *testing.T) {
	tracker := &fakeTracker{entries: []domain.TrackingEntry{
		{EntryID: 7, Status: domain.StatusWatching, Progress: 5, MediaID: 123, TotalEpisodes: 12},
	}}
	r := newTestReconciler(tracker)

	for _, episode := range []int{4, 5} {
		results := r.Reconcile(context.Background(), event(episode), 123)
		if len(results) != 1 || results[0].Outcome != domain.OutcomeSkipped || results[0].Reason != domain.ReasonProgressAhead {
			t.Fatalf("episode %d: expected regression skip, got %+v", episode, results)
		}
	}
	if len(tracker.calls()) != 0 {
		t.Fatalf("no update should be issued")
	}
}

func TestReconcile_OvershootGuard(t *testing.T) {
	tracker := &fakeTracker{entries: []domain.TrackingEntry{
		{EntryID: 7, Status: domain.StatusWatching, Progress: 3, MediaID: 123, TotalEpisodes: 12},
	}}
	r := newTestReconciler(tracker)

	results := r.Reconcile(context.Background(), event(13), 123)
	if len(results) != 1 || results[0].Outcome != domain.OutcomeSkipped || results[0].Reason != domain.ReasonExceedsTotal {
		t.Fatalf("expected overshoot skip, got %+v", results)
	}
	if len(tracker.calls()) != 0 {
		t.Fatalf("no update should be issued")
	}
}

func TestReconcile_OvershootUsesEventTotalWhenEntryUnknown(t *testing.T) {
	tracker := &fakeTracker{entries: []domain.TrackingEntry{
		{EntryID: 7, Status: domain.StatusWatching, Progress: 3, MediaID: 123, TotalEpisodes: 0},
	}}
	r := newTestReconciler(tracker)

	ev := event(20)
	ev.TotalEpisodes = 12
	results := r.Reconcile(context.Background(), ev, 123)
	if len(results) != 1 || results[0].Reason != domain.ReasonExceedsTotal {
		t.Fatalf("expected overshoot skip from event total, got %+v", results)
	}
}

func TestReconcile_UntrackedShowIsNoOp(t *testing.T) {
	tracker := &fakeTracker{entries: []domain.TrackingEntry{
		{EntryID: 7, Status: domain.StatusWatching, Progress: 3, MediaID: 999, TotalEpisodes: 12},
	}}
	r := newTestReconciler(tracker)

	results := r.Reconcile(context.Background(), event(4), 123)
	if len(results) != 1 || results[0].Outcome != domain.OutcomeSkipped || results[0].Reason != domain.ReasonNotTracked {
		t.Fatalf("expected not-tracked skip, got %+v", results)
	}
	if len(tracker.calls()) != 0 {
		t.Fatalf("no update should be issued for an untracked show")
	}
}

func TestReconcile_UnexpectedResponseFails(t *testing.T) {
	tracker := &fakeTracker{
		entries: []domain.TrackingEntry{
			{EntryID: 7, Status: domain.StatusWatching, Progress: 3, MediaID: 123, TotalEpisodes: 12},
		},
		respond: func(call updateCall) (ports.EntryUpdate, error) {
			return ports.EntryUpdate{Status: domain.StatusWatching, Progress: 0, RawBody: `{"data":null}`}, nil
		},
	}
	r := newTestReconciler(tracker)

	results := r.Reconcile(context.Background(), event(4), 123)
	if len(results) != 1 || results[0].Outcome != domain.OutcomeFailed || results[0].Reason != domain.ReasonBadResponse {
		t.Fatalf("expected failure, got %+v", results)
	}
	if results[0].RawBody == "" {
		t.Fatalf("failure should carry the raw response")
	}
}

func TestReconcile_BothListsProcessedIndependently(t *testing.T) {
	// Le même media id sur les deux listes: chaque entrée passe ses propres
	// guards.
	tracker := &fakeTracker{entries: []domain.TrackingEntry{
		{EntryID: 1, Status: domain.StatusWatching, Progress: 3, MediaID: 123, TotalEpisodes: 12},
		{EntryID: 2, Status: domain.StatusPlanning, Progress: 0, MediaID: 123, TotalEpisodes: 12},
	}}
	r := newTestReconciler(tracker)

	results := r.Reconcile(context.Background(), event(4), 123)
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Outcome != domain.OutcomeUpdated {
		t.Fatalf("watching entry should update, got %+v", results[0])
	}
	if results[1].Outcome != domain.OutcomeSkipped || results[1].Reason != domain.ReasonNotFirstEpisode {
		t.Fatalf("planning entry should skip, got %+v", results[1])
	}
}

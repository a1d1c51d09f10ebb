package app

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/Guilhem-Bonnet/Plex-AniList-Scrobbler/internal/domain"
	"github.com/Guilhem-Bonnet/Plex-AniList-Scrobbler/internal/ports"
)

// ProgressReconciler applies one admitted, resolved scrobble to the viewer's
// AniList lists. Only the Watching and Planning lists are inspected; entries
// on other lists are left alone.
//
// Reconciliations for the same (account, media id) are serialized through a
// keyed mutex so concurrent deliveries cannot both read the same pre-update
// progress and double-advance it.
type ProgressReconciler struct {
	logger  zerolog.Logger
	tracker ports.Tracker
	account string
	locks   *KeyedMutex
}

func NewProgressReconciler(logger zerolog.Logger, tracker ports.Tracker, account string) *ProgressReconciler {
	return &ProgressReconciler{
		logger:  logger,
		tracker: tracker,
		account: account,
		locks:   NewKeyedMutex(),
	}
}

// entryPlan is a computed update, ready to send.
type entryPlan struct {
	progress int
	status   domain.ListStatus
}

// Reconcile runs the state machine for one event. The same media id may
// appear on both inspected lists; each entry is reconciled under its own
// guards and yields its own result.
func (r *ProgressReconciler) Reconcile(ctx context.Context, ev domain.ScrobbleEvent, mediaID int) []domain.ReconciliationResult {
	key := fmt.Sprintf("%s/%d", r.account, mediaID)
	if err := r.locks.Acquire(ctx, key); err != nil {
		return []domain.ReconciliationResult{failure(mediaID, "", err.Error(), "")}
	}
	defer r.locks.Release(key)

	userID, err := r.tracker.Viewer(ctx)
	if err != nil {
		return []domain.ReconciliationResult{failure(mediaID, "", err.Error(), "")}
	}

	entries, err := r.tracker.TrackedAnime(ctx, userID, []domain.ListStatus{domain.StatusWatching, domain.StatusPlanning})
	if err != nil {
		return []domain.ReconciliationResult{failure(mediaID, "", err.Error(), "")}
	}

	results := make([]domain.ReconciliationResult, 0, 1)
	for _, entry := range entries {
		if entry.MediaID != mediaID {
			continue
		}
		results = append(results, r.reconcileEntry(ctx, ev, entry))
	}
	if len(results) == 0 {
		// Série non suivie: no-op assumé, pas de mutation de liste.
		return []domain.ReconciliationResult{{
			Outcome: domain.OutcomeSkipped,
			Reason:  domain.ReasonNotTracked,
			MediaID: mediaID,
		}}
	}
	return results
}

func (r *ProgressReconciler) reconcileEntry(ctx context.Context, ev domain.ScrobbleEvent, entry domain.TrackingEntry) domain.ReconciliationResult {
	plan, skipReason := planUpdate(ev, entry)
	if skipReason != "" {
		r.logger.Warn().
			Int("media_id", entry.MediaID).
			Int("episode", ev.Episode).
			Int("progress", entry.Progress).
			Str("reason", skipReason).
			Msg("scrobble skipped")
		return domain.ReconciliationResult{
			Outcome: domain.OutcomeSkipped,
			Reason:  skipReason,
			MediaID: entry.MediaID,
			SiteURL: entry.SiteURL,
		}
	}

	upd, err := r.tracker.UpdateEntry(ctx, entry.EntryID, plan.progress, plan.status)
	if err != nil {
		r.logger.Error().Err(err).Int("media_id", entry.MediaID).Msg("anilist update failed")
		return failure(entry.MediaID, entry.SiteURL, err.Error(), upd.RawBody)
	}

	switch {
	case upd.Status == domain.StatusCompleted:
		r.logger.Info().
			Int("media_id", entry.MediaID).
			Int("progress", upd.Progress).
			Msg("show completed")
		return domain.ReconciliationResult{
			Outcome:  domain.OutcomeCompleted,
			MediaID:  entry.MediaID,
			Progress: upd.Progress,
			SiteURL:  entry.SiteURL,
		}
	case upd.Status == domain.StatusWatching && upd.Progress == ev.Episode:
		r.logger.Info().
			Int("media_id", entry.MediaID).
			Int("progress", upd.Progress).
			Msg("progress updated")
		return domain.ReconciliationResult{
			Outcome:  domain.OutcomeUpdated,
			MediaID:  entry.MediaID,
			Progress: upd.Progress,
			SiteURL:  entry.SiteURL,
		}
	default:
		r.logger.Error().
			Int("media_id", entry.MediaID).
			Str("status", string(upd.Status)).
			Int("progress", upd.Progress).
			Msg("unexpected anilist response")
		return failure(entry.MediaID, entry.SiteURL, domain.ReasonBadResponse, upd.RawBody)
	}
}

// planUpdate applies the transition guards for one entry. The empty reason
// means the update should proceed.
func planUpdate(ev domain.ScrobbleEvent, entry domain.TrackingEntry) (entryPlan, string) {
	e := ev.Episode
	total := entry.TotalEpisodes
	if total == 0 {
		total = ev.TotalEpisodes
	}

	switch entry.Status {
	case domain.StatusWatching:
		if entry.Progress >= e {
			return entryPlan{}, domain.ReasonProgressAhead
		}
		if total > 0 && e > total {
			return entryPlan{}, domain.ReasonExceedsTotal
		}
		status := domain.StatusWatching
		if total > 0 && e == total {
			status = domain.StatusCompleted
		}
		return entryPlan{progress: e, status: status}, ""

	case domain.StatusPlanning:
		// Seul l'épisode 1 sort une série de la file de planning.
		if e != 1 {
			return entryPlan{}, domain.ReasonNotFirstEpisode
		}
		status := domain.StatusWatching
		if total > 0 && e == total {
			status = domain.StatusCompleted
		}
		return entryPlan{progress: e, status: status}, ""

	default:
		return entryPlan{}, domain.ReasonNotTracked
	}
}

func failure(mediaID int, siteURL, reason, raw string) domain.ReconciliationResult {
	return domain.ReconciliationResult{
		Outcome: domain.OutcomeFailed,
		Reason:  reason,
		MediaID: mediaID,
		SiteURL: siteURL,
		RawBody: raw,
	}
}

package app

import (
	"strings"

	"github.com/Guilhem-Bonnet/Plex-AniList-Scrobbler/internal/config"
	"github.com/Guilhem-Bonnet/Plex-AniList-Scrobbler/internal/domain"
)

// Rejection reasons, in evaluation order. The first failing check wins.
const (
	RejectNotScrobble  = "not a scrobble"
	RejectWrongAccount = "wrong account"
	RejectWrongLibrary = "wrong library"
	RejectNotEpisode   = "not an episode"
	RejectNoIdentifier = "no identifier"
)

// EventFilter decides whether an inbound playback event is a completed-episode
// scrobble for the configured account and libraries. Pure predicate chain, no
// side effects; logging of rejections belongs to the caller.
type EventFilter struct {
	account   string
	libraries map[string]struct{}
}

func NewEventFilter(cfg config.PlexConfig) *EventFilter {
	libs := make(map[string]struct{}, len(cfg.Libraries))
	for _, l := range cfg.Libraries {
		libs[l] = struct{}{}
	}
	return &EventFilter{account: cfg.Account, libraries: libs}
}

// Check returns ("", true) for admitted events, or the rejection reason.
func (f *EventFilter) Check(ev domain.ScrobbleEvent) (string, bool) {
	if ev.Kind != domain.EventScrobble {
		return RejectNotScrobble, false
	}
	if ev.Account != f.account {
		return RejectWrongAccount, false
	}
	if _, ok := f.libraries[ev.Library]; !ok {
		return RejectWrongLibrary, false
	}
	if ev.MediaType != domain.MediaTypeEpisode {
		return RejectNotEpisode, false
	}
	if _, ok := ev.SourceID(); !ok {
		return RejectNoIdentifier, false
	}
	return "", true
}

// NoisyRejection reports whether a rejection reason is expected traffic noise
// (logged low) as opposed to a metadata-agent mismatch (logged higher).
func NoisyRejection(reason string) bool {
	return !strings.EqualFold(reason, RejectNoIdentifier)
}

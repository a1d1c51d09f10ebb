package domain

import (
	"fmt"
	"regexp"
	"strings"
)

// EventKind is the webhook event name reported by Plex.
type EventKind string

const (
	EventScrobble EventKind = "media.scrobble"
	EventPlay     EventKind = "media.play"
	EventPause    EventKind = "media.pause"
	EventStop     EventKind = "media.stop"
)

// MediaTypeEpisode is the Metadata.type value for a show episode.
const MediaTypeEpisode = "episode"

// ScrobbleEvent is one playback notification, normalized from the webhook
// payload. Built once per delivery and discarded after reconciliation.
type ScrobbleEvent struct {
	Kind    EventKind
	Account string
	Library string

	MediaType string
	GUID      string

	ShowTitle string
	Season    int
	Episode   int

	// TotalEpisodes vaut 0 quand Plex ne connaît pas la longueur de la série.
	TotalEpisodes int
}

// guidPattern matches the HAMA agent GUID carrying an AniDB id, e.g.
// com.plexapp.agents.hama://anidb-69/1/12?lang=en
var guidPattern = regexp.MustCompile(`(?i)com\.plexapp\.agents\.hama://anidb-(\d+)(?:/\d+/\d+)?\?lang=\w+`)

// SourceID extracts the AniDB id from the event GUID.
// The second return is false when the GUID does not use the HAMA/AniDB agent.
func (e ScrobbleEvent) SourceID() (string, bool) {
	m := guidPattern.FindStringSubmatch(e.GUID)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// ScrobbleKey is a stable correlation key for one logical scrobble.
// It is derived from event fields only, so a re-delivered webhook yields the
// same key as the original delivery.
func (e ScrobbleEvent) ScrobbleKey() string {
	id, _ := e.SourceID()
	return fmt.Sprintf("%s/anidb-%s/e%d", strings.ToLower(e.Account), id, e.Episode)
}

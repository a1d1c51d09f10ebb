package app

import (
	"errors"
	"fmt"

	"github.com/Guilhem-Bonnet/Plex-AniList-Scrobbler/internal/ports"
)

var ErrNotFound = ports.ErrNotFound

// ErrNotMapped signale qu'un id AniDB n'existe ni dans la table d'override ni
// dans le catalogue. Non transitoire: pas de retry.
var ErrNotMapped = errors.New("no anilist mapping")

// InvalidMappingError reports a mapping whose target id is not a positive
// integer; it points at a corrupt catalog or override entry.
type InvalidMappingError struct {
	SourceID string
	Value    int
}

func (e *InvalidMappingError) Error() string {
	return fmt.Sprintf("invalid anilist id %d for anidb-%s", e.Value, e.SourceID)
}

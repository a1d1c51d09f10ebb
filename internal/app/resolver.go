package app

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
)

// IdentifierResolver maps AniDB ids to AniList ids. The override table always
// wins over the catalog cache for the same key; it is re-read on every call so
// the user can edit the file without restarting the relay.
type IdentifierResolver struct {
	logger       zerolog.Logger
	catalog      *CatalogCache
	overridePath string
}

func NewIdentifierResolver(logger zerolog.Logger, catalog *CatalogCache, overridePath string) *IdentifierResolver {
	return &IdentifierResolver{logger: logger, catalog: catalog, overridePath: overridePath}
}

// Resolve returns the AniList id for an AniDB id.
// A stale cache that fails to refresh is still consulted; staleness alone
// never blocks resolution.
func (r *IdentifierResolver) Resolve(ctx context.Context, sourceID string) (int, error) {
	if err := r.catalog.EnsureFresh(ctx); err != nil {
		r.logger.Warn().Err(err).Msg("catalog refresh failed, using previous contents")
	}

	id, ok := LoadOverrides(r.logger, r.overridePath)[sourceID]
	if !ok {
		id, ok = r.catalog.Lookup(sourceID)
	}
	if !ok {
		return 0, fmt.Errorf("anidb-%s: %w", sourceID, ErrNotMapped)
	}
	if id <= 0 {
		return 0, &InvalidMappingError{SourceID: sourceID, Value: id}
	}
	return id, nil
}

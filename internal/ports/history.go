package ports

import (
	"context"

	"github.com/Guilhem-Bonnet/Plex-AniList-Scrobbler/internal/domain"
)

type HistoryRepository interface {
	Append(ctx context.Context, rec domain.HistoryRecord) (domain.HistoryRecord, error)
	List(ctx context.Context, limit int) ([]domain.HistoryRecord, error)
}

package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/Guilhem-Bonnet/Plex-AniList-Scrobbler/internal/domain"
)

type HistoryRepository struct {
	db *sql.DB
}

func NewHistoryRepository(db *sql.DB) *HistoryRepository {
	return &HistoryRepository{db: db}
}

func (r *HistoryRepository) Append(ctx context.Context, rec domain.HistoryRecord) (domain.HistoryRecord, error) {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO scrobble_history(id, scrobble_key, show_title, season, episode, source_id, media_id, outcome, reason, created_at)
		VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, rec.ID, rec.ScrobbleKey, rec.ShowTitle, rec.Season, rec.Episode, rec.SourceID, rec.MediaID,
		string(rec.Outcome), rec.Reason, rec.CreatedAt.Format(time.RFC3339))
	if err != nil {
		return domain.HistoryRecord{}, err
	}
	return rec, nil
}

func (r *HistoryRepository) List(ctx context.Context, limit int) ([]domain.HistoryRecord, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, scrobble_key, show_title, season, episode, source_id, media_id, outcome, reason, created_at
		FROM scrobble_history ORDER BY created_at DESC, id DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.HistoryRecord{}
	for rows.Next() {
		var rec domain.HistoryRecord
		var outcome, createdAt string
		if err := rows.Scan(&rec.ID, &rec.ScrobbleKey, &rec.ShowTitle, &rec.Season, &rec.Episode,
			&rec.SourceID, &rec.MediaID, &outcome, &rec.Reason, &createdAt); err != nil {
			return nil, err
		}
		rec.Outcome = domain.Outcome(outcome)
		rec.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		out = append(out, rec)
	}
	return out, rows.Err()
}

package domain

import "time"

// HistoryRecord is one persisted scrobble outcome.
type HistoryRecord struct {
	ID          string
	ScrobbleKey string

	ShowTitle string
	Season    int
	Episode   int
	SourceID  string
	MediaID   int

	Outcome Outcome
	Reason  string

	CreatedAt time.Time
}

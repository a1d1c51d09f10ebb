package domain

// ListStatus is an AniList media list status.
type ListStatus string

const (
	StatusWatching  ListStatus = "CURRENT"
	StatusPlanning  ListStatus = "PLANNING"
	StatusCompleted ListStatus = "COMPLETED"
)

// TrackingEntry is one show on the viewer's AniList lists. The remote service
// owns this state; entries are fetched per event and never cached.
type TrackingEntry struct {
	// EntryID identifie l'entrée de liste (pas le média).
	EntryID int

	Status   ListStatus
	Progress int

	MediaID int
	// TotalEpisodes vaut 0 quand AniList ne connaît pas encore la longueur.
	TotalEpisodes int
	SiteURL       string
}

package ports

import "context"

// Notifier receives terminal reconciliation outcomes for user-facing alerts.
// Implementations must be safe to call when partially configured; the noop
// implementation lives in the discord adapter.
type Notifier interface {
	NotifyCompletion(ctx context.Context, showTitle, siteURL string) error
	NotifyFailure(ctx context.Context, showTitle string, season, episode int, reason string) error
}

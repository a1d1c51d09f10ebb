package domain

// Outcome classifies the terminal state of one reconciliation attempt.
type Outcome string

const (
	OutcomeUpdated   Outcome = "updated"
	OutcomeCompleted Outcome = "completed"
	OutcomeSkipped   Outcome = "skipped"
	OutcomeFailed    Outcome = "failed"
)

// Stable skip/failure reasons, persisted in history records.
const (
	ReasonNotTracked      = "not on a watched list"
	ReasonProgressAhead   = "progress already ahead or equal"
	ReasonExceedsTotal    = "episode index exceeds known total"
	ReasonNotFirstEpisode = "not the first episode"
	ReasonBadResponse     = "unexpected API response"
)

// ReconciliationResult is the outcome of one update attempt against one list
// entry. Updated results carry the applied progress; failed results keep the
// raw upstream response for diagnostics.
type ReconciliationResult struct {
	Outcome  Outcome `json:"outcome"`
	Reason   string  `json:"reason,omitempty"`
	MediaID  int     `json:"mediaId,omitempty"`
	Progress int     `json:"progress,omitempty"`
	SiteURL  string  `json:"siteUrl,omitempty"`
	RawBody  string  `json:"rawBody,omitempty"`
}

// Terminal reports whether the result should reach the notification sink.
func (r ReconciliationResult) Terminal() bool {
	return r.Outcome == OutcomeCompleted || r.Outcome == OutcomeFailed
}

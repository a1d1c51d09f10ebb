package app

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/xid"
	"github.com/rs/zerolog"

	"github.com/Guilhem-Bonnet/Plex-AniList-Scrobbler/internal/domain"
	"github.com/Guilhem-Bonnet/Plex-AniList-Scrobbler/internal/ports"
)

// Processor runs the full pipeline for one webhook delivery:
// filter → resolve → reconcile → history/bus/notifications.
//
// Every per-event failure is isolated to that event; the processor never
// returns an error to the HTTP boundary.
type Processor struct {
	logger     zerolog.Logger
	filter     *EventFilter
	resolver   *IdentifierResolver
	reconciler *ProgressReconciler
	notifier   ports.Notifier
	history    ports.HistoryRepository
	bus        ports.EventBus
}

func NewProcessor(
	logger zerolog.Logger,
	filter *EventFilter,
	resolver *IdentifierResolver,
	reconciler *ProgressReconciler,
	notifier ports.Notifier,
	history ports.HistoryRepository,
	bus ports.EventBus,
) *Processor {
	return &Processor{
		logger:     logger,
		filter:     filter,
		resolver:   resolver,
		reconciler: reconciler,
		notifier:   notifier,
		history:    history,
		bus:        bus,
	}
}

// ScrobbleDTO is the bus/SSE representation of one outcome.
type ScrobbleDTO struct {
	ScrobbleKey string         `json:"scrobbleKey"`
	ShowTitle   string         `json:"showTitle"`
	Season      int            `json:"season"`
	Episode     int            `json:"episode"`
	Outcome     domain.Outcome `json:"outcome"`
	Reason      string         `json:"reason,omitempty"`
	MediaID     int            `json:"mediaId,omitempty"`
	Progress    int            `json:"progress,omitempty"`
	SiteURL     string         `json:"siteUrl,omitempty"`
}

func (p *Processor) Process(ctx context.Context, ev domain.ScrobbleEvent) {
	if reason, ok := p.filter.Check(ev); !ok {
		// Les rejets 1-4 sont du bruit attendu; un GUID sans id AniDB révèle
		// un agent de métadonnées mal configuré.
		evt := p.logger.Debug()
		if !NoisyRejection(reason) {
			evt = p.logger.Warn()
		}
		evt.Str("event", string(ev.Kind)).
			Str("account", ev.Account).
			Str("library", ev.Library).
			Str("reason", reason).
			Msg("event rejected")
		return
	}

	sourceID, _ := ev.SourceID()
	logger := p.logger.With().
		Str("scrobble_key", ev.ScrobbleKey()).
		Str("show", ev.ShowTitle).
		Int("season", ev.Season).
		Int("episode", ev.Episode).
		Logger()

	mediaID, err := p.resolver.Resolve(ctx, sourceID)
	if err != nil {
		logger.Error().Err(err).Str("anidb_id", sourceID).Msg("identifier resolution failed")
		p.record(ctx, ev, sourceID, domain.ReconciliationResult{
			Outcome: domain.OutcomeSkipped,
			Reason:  err.Error(),
		})
		return
	}

	for _, res := range p.reconciler.Reconcile(ctx, ev, mediaID) {
		p.record(ctx, ev, sourceID, res)
		p.notify(ctx, logger, ev, res)
	}
}

func (p *Processor) record(ctx context.Context, ev domain.ScrobbleEvent, sourceID string, res domain.ReconciliationResult) {
	if p.bus != nil {
		dto := ScrobbleDTO{
			ScrobbleKey: ev.ScrobbleKey(),
			ShowTitle:   ev.ShowTitle,
			Season:      ev.Season,
			Episode:     ev.Episode,
			Outcome:     res.Outcome,
			Reason:      res.Reason,
			MediaID:     res.MediaID,
			Progress:    res.Progress,
			SiteURL:     res.SiteURL,
		}
		if b, err := json.Marshal(dto); err == nil {
			p.bus.Publish("scrobble."+string(res.Outcome), b)
		}
	}

	if p.history == nil {
		return
	}
	rec := domain.HistoryRecord{
		ID:          xid.New().String(),
		ScrobbleKey: ev.ScrobbleKey(),
		ShowTitle:   ev.ShowTitle,
		Season:      ev.Season,
		Episode:     ev.Episode,
		SourceID:    sourceID,
		MediaID:     res.MediaID,
		Outcome:     res.Outcome,
		Reason:      res.Reason,
		CreatedAt:   time.Now().UTC(),
	}
	if _, err := p.history.Append(ctx, rec); err != nil {
		p.logger.Warn().Err(err).Msg("failed to append history record")
	}
}

func (p *Processor) notify(ctx context.Context, logger zerolog.Logger, ev domain.ScrobbleEvent, res domain.ReconciliationResult) {
	if p.notifier == nil || !res.Terminal() {
		return
	}
	var err error
	switch res.Outcome {
	case domain.OutcomeCompleted:
		err = p.notifier.NotifyCompletion(ctx, ev.ShowTitle, res.SiteURL)
	case domain.OutcomeFailed:
		err = p.notifier.NotifyFailure(ctx, ev.ShowTitle, ev.Season, ev.Episode, res.Reason)
	}
	if err != nil {
		logger.Warn().Err(err).Msg("notification failed")
	}
}

package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/hlog"

	"github.com/Guilhem-Bonnet/Plex-AniList-Scrobbler/internal/domain"
	"github.com/Guilhem-Bonnet/Plex-AniList-Scrobbler/internal/httpjson"
)

// Temps alloué au traitement d'un event une fois la requête HTTP acquittée.
const processTimeout = 2 * time.Minute

const maxPayloadBytes = 1 << 20

// plexPayload is the webhook body Plex posts as the "payload" part of a
// multipart form (JSON bodies are accepted too, they simplify testing).
type plexPayload struct {
	Event   string `json:"event"`
	Account struct {
		Title string `json:"title"`
	} `json:"Account"`
	Metadata struct {
		LibrarySectionTitle string `json:"librarySectionTitle"`
		LibrarySectionType  string `json:"librarySectionType"`
		Type                string `json:"type"`
		GUID                string `json:"guid"`
		GrandparentTitle    string `json:"grandparentTitle"`
		ParentIndex         int    `json:"parentIndex"`
		Index               int    `json:"index"`
	} `json:"Metadata"`
}

func (p plexPayload) toEvent() domain.ScrobbleEvent {
	return domain.ScrobbleEvent{
		Kind:      domain.EventKind(p.Event),
		Account:   p.Account.Title,
		Library:   p.Metadata.LibrarySectionTitle,
		MediaType: p.Metadata.Type,
		GUID:      p.Metadata.GUID,
		ShowTitle: p.Metadata.GrandparentTitle,
		Season:    p.Metadata.ParentIndex,
		Episode:   p.Metadata.Index,
	}
}

// handleWebhook acknowledges the delivery immediately and processes it in the
// background; Plex ignores the response body and retries nothing, so there is
// no point holding the request open for the AniList round-trips.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	raw, err := webhookBody(r)
	if err != nil {
		httpjson.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	var payload plexPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		httpjson.WriteError(w, http.StatusBadRequest, "malformed payload")
		return
	}
	if payload.Event == "" {
		httpjson.WriteError(w, http.StatusBadRequest, "missing event field")
		return
	}

	hlog.FromRequest(r).Debug().Str("event", payload.Event).Msg("webhook received")

	ev := payload.toEvent()
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), processTimeout)
		defer cancel()
		s.processor.Process(ctx, ev)
	}()

	w.WriteHeader(http.StatusNoContent)
}

var errMissingPayload = errors.New("missing payload")

func webhookBody(r *http.Request) ([]byte, error) {
	ct := r.Header.Get("Content-Type")
	if strings.HasPrefix(ct, "multipart/form-data") {
		if err := r.ParseMultipartForm(maxPayloadBytes); err != nil {
			return nil, err
		}
		if v := r.FormValue("payload"); v != "" {
			return []byte(v), nil
		}
		return nil, errMissingPayload
	}

	b, err := io.ReadAll(http.MaxBytesReader(nil, r.Body, maxPayloadBytes))
	if err != nil {
		return nil, err
	}
	if len(b) == 0 {
		return nil, errMissingPayload
	}
	return b, nil
}

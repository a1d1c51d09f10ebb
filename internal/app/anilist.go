package app

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Guilhem-Bonnet/Plex-AniList-Scrobbler/internal/config"
	"github.com/Guilhem-Bonnet/Plex-AniList-Scrobbler/internal/domain"
	"github.com/Guilhem-Bonnet/Plex-AniList-Scrobbler/internal/ports"
)

var ErrAniListNotConfigured = errors.New("anilist not configured")

// AniListService talks to the AniList GraphQL API. It implements
// ports.Tracker; every call is bounded by the configured HTTP timeout.
type AniListService struct {
	token    string
	endpoint string
	client   *http.Client
}

func NewAniListService(cfg config.AniListConfig) *AniListService {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &AniListService{
		token:    strings.TrimSpace(cfg.Token),
		endpoint: "https://graphql.anilist.co",
		client:   &http.Client{Timeout: timeout},
	}
}

func (s *AniListService) WithEndpoint(endpoint string) *AniListService {
	if strings.TrimSpace(endpoint) != "" {
		s.endpoint = strings.TrimSpace(endpoint)
	}
	return s
}

type aniListGraphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type aniListGraphQLError struct {
	Message string `json:"message"`
}

type aniListGraphQLResponse[T any] struct {
	Data   T                     `json:"data"`
	Errors []aniListGraphQLError `json:"errors,omitempty"`
}

type viewerData struct {
	Viewer struct {
		ID   int    `json:"id"`
		Name string `json:"name"`
	} `json:"Viewer"`
}

func (s *AniListService) Viewer(ctx context.Context) (int, error) {
	if s == nil || s.token == "" {
		return 0, ErrAniListNotConfigured
	}
	req := aniListGraphQLRequest{Query: `query { Viewer { id name } }`}
	var out aniListGraphQLResponse[viewerData]
	if _, err := s.do(ctx, req, &out); err != nil {
		return 0, err
	}
	if len(out.Errors) > 0 {
		return 0, errors.New(out.Errors[0].Message)
	}
	return out.Data.Viewer.ID, nil
}

type listCollectionData struct {
	MediaListCollection struct {
		Lists []struct {
			Name    string `json:"name"`
			Entries []struct {
				ID       int    `json:"id"`
				Status   string `json:"status"`
				Progress int    `json:"progress"`
				Media    struct {
					ID       int    `json:"id"`
					Episodes int    `json:"episodes"`
					SiteURL  string `json:"siteUrl"`
				} `json:"media"`
			} `json:"entries"`
		} `json:"lists"`
	} `json:"MediaListCollection"`
}

func (s *AniListService) TrackedAnime(ctx context.Context, userID int, statuses []domain.ListStatus) ([]domain.TrackingEntry, error) {
	if s == nil || s.token == "" {
		return nil, ErrAniListNotConfigured
	}
	if len(statuses) == 0 {
		statuses = []domain.ListStatus{domain.StatusWatching, domain.StatusPlanning}
	}
	statusIn := make([]string, 0, len(statuses))
	for _, st := range statuses {
		statusIn = append(statusIn, string(st))
	}

	req := aniListGraphQLRequest{
		Query: `query($userId:Int,$statusIn:[MediaListStatus]){
			MediaListCollection(userId:$userId, type: ANIME, status_in:$statusIn){
				lists{
					name
					entries{ id status progress media{ id episodes siteUrl } }
				}
			}
		}`,
		Variables: map[string]any{"userId": userID, "statusIn": statusIn},
	}

	var out aniListGraphQLResponse[listCollectionData]
	if _, err := s.do(ctx, req, &out); err != nil {
		return nil, err
	}
	if len(out.Errors) > 0 {
		return nil, errors.New(out.Errors[0].Message)
	}

	flat := make([]domain.TrackingEntry, 0)
	for _, l := range out.Data.MediaListCollection.Lists {
		for _, e := range l.Entries {
			flat = append(flat, domain.TrackingEntry{
				EntryID:       e.ID,
				Status:        domain.ListStatus(e.Status),
				Progress:      e.Progress,
				MediaID:       e.Media.ID,
				TotalEpisodes: e.Media.Episodes,
				SiteURL:       e.Media.SiteURL,
			})
		}
	}
	return flat, nil
}

type saveEntryData struct {
	SaveMediaListEntry struct {
		Status   string `json:"status"`
		Progress int    `json:"progress"`
	} `json:"SaveMediaListEntry"`
}

func (s *AniListService) UpdateEntry(ctx context.Context, entryID int, progress int, status domain.ListStatus) (ports.EntryUpdate, error) {
	if s == nil || s.token == "" {
		return ports.EntryUpdate{}, ErrAniListNotConfigured
	}

	req := aniListGraphQLRequest{
		Query: `mutation($id:Int,$progress:Int,$status:MediaListStatus){
			SaveMediaListEntry(id:$id, progress:$progress, status:$status){ status progress }
		}`,
		Variables: map[string]any{"id": entryID, "progress": progress, "status": string(status)},
	}

	var out aniListGraphQLResponse[saveEntryData]
	raw, err := s.do(ctx, req, &out)
	if err != nil {
		return ports.EntryUpdate{}, err
	}
	if len(out.Errors) > 0 {
		return ports.EntryUpdate{RawBody: raw}, errors.New(out.Errors[0].Message)
	}
	return ports.EntryUpdate{
		Status:   domain.ListStatus(out.Data.SaveMediaListEntry.Status),
		Progress: out.Data.SaveMediaListEntry.Progress,
		RawBody:  raw,
	}, nil
}

// do posts one GraphQL request and decodes the response, returning the raw
// body for diagnostics.
func (s *AniListService) do(ctx context.Context, req aniListGraphQLRequest, out any) (string, error) {
	b, err := json.Marshal(req)
	if err != nil {
		return "", err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(b))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", "pas-server")
	httpReq.Header.Set("Authorization", "Bearer "+s.token)

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode >= 400 {
		// AniList tends to return JSON, but we keep it simple.
		return string(body), errors.New("anilist http error: " + resp.Status)
	}
	return string(body), json.Unmarshal(body, out)
}

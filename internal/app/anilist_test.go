package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Guilhem-Bonnet/Plex-AniList-Scrobbler/internal/config"
	"github.com/Guilhem-Bonnet/Plex-AniList-Scrobbler/internal/domain"
)

func testAniListConfig() config.AniListConfig {
	return config.AniListConfig{Token: "tok", Timeout: 5 * time.Second}
}

func TestAniListService_Viewer(t *testing.T) {
	var gotAuth string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":{"Viewer":{"id":42,"name":"me"}}}`))
	}))
	defer ts.Close()

	svc := NewAniListService(testAniListConfig()).WithEndpoint(ts.URL)
	id, err := svc.Viewer(context.Background())
	if err != nil {
		t.Fatalf("viewer: %v", err)
	}
	if id != 42 {
		t.Fatalf("expected viewer 42, got %d", id)
	}
	if gotAuth != "Bearer tok" {
		t.Fatalf("unexpected auth header: %q", gotAuth)
	}
}

func TestAniListService_TrackedAnimeFlattensLists(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":{"MediaListCollection":{"lists":[
			{"name":"Watching","entries":[{"id":7,"status":"CURRENT","progress":3,"media":{"id":123,"episodes":12,"siteUrl":"https://anilist.co/anime/123"}}]},
			{"name":"Planning","entries":[{"id":9,"status":"PLANNING","progress":0,"media":{"id":55,"episodes":13,"siteUrl":"https://anilist.co/anime/55"}}]}
		]}}}`))
	}))
	defer ts.Close()

	svc := NewAniListService(testAniListConfig()).WithEndpoint(ts.URL)
	entries, err := svc.TrackedAnime(context.Background(), 42, nil)
	if err != nil {
		t.Fatalf("tracked anime: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].EntryID != 7 || entries[0].Status != domain.StatusWatching || entries[0].TotalEpisodes != 12 {
		t.Fatalf("unexpected first entry: %+v", entries[0])
	}
	if entries[1].MediaID != 55 || entries[1].Status != domain.StatusPlanning {
		t.Fatalf("unexpected second entry: %+v", entries[1])
	}
}

func TestAniListService_UpdateEntrySendsMutation(t *testing.T) {
	var req aniListGraphQLRequest
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&req)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":{"SaveMediaListEntry":{"status":"COMPLETED","progress":12}}}`))
	}))
	defer ts.Close()

	svc := NewAniListService(testAniListConfig()).WithEndpoint(ts.URL)
	upd, err := svc.UpdateEntry(context.Background(), 7, 12, domain.StatusCompleted)
	if err != nil {
		t.Fatalf("update entry: %v", err)
	}
	if upd.Status != domain.StatusCompleted || upd.Progress != 12 {
		t.Fatalf("unexpected update echo: %+v", upd)
	}
	if upd.RawBody == "" {
		t.Fatalf("raw body should be captured")
	}
	if req.Variables["id"] != float64(7) || req.Variables["progress"] != float64(12) || req.Variables["status"] != "COMPLETED" {
		t.Fatalf("unexpected variables: %+v", req.Variables)
	}
}

func TestAniListService_GraphQLErrorSurfaces(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":null,"errors":[{"message":"Invalid token"}]}`))
	}))
	defer ts.Close()

	svc := NewAniListService(testAniListConfig()).WithEndpoint(ts.URL)
	if _, err := svc.Viewer(context.Background()); err == nil || err.Error() != "Invalid token" {
		t.Fatalf("expected graphql error, got %v", err)
	}
}

func TestAniListService_RequiresToken(t *testing.T) {
	svc := NewAniListService(config.AniListConfig{})
	if _, err := svc.Viewer(context.Background()); err != ErrAniListNotConfigured {
		t.Fatalf("expected ErrAniListNotConfigured, got %v", err)
	}
}

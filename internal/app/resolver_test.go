package app

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/Guilhem-Bonnet/Plex-AniList-Scrobbler/internal/config"
)

func newTestResolver(t *testing.T, catalogJSON, overridesTOML string) *IdentifierResolver {
	t.Helper()
	dir := t.TempDir()

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(catalogJSON))
	}))
	t.Cleanup(ts.Close)

	overridePath := ""
	if overridesTOML != "" {
		overridePath = filepath.Join(dir, "overrides.toml")
		if err := os.WriteFile(overridePath, []byte(overridesTOML), 0o644); err != nil {
			t.Fatalf("write overrides: %v", err)
		}
	}

	catalog := NewCatalogCache(zerolog.Nop(), config.MappingConfig{
		CatalogURL:  ts.URL,
		CatalogPath: filepath.Join(dir, "anidb-map.json"),
		MaxAge:      time.Hour,
	})
	return NewIdentifierResolver(zerolog.Nop(), catalog, overridePath)
}

func TestResolve_FromCatalog(t *testing.T) {
	r := newTestResolver(t, `{"69":{"anilist_id":101}}`, "")
	id, err := r.Resolve(context.Background(), "69")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if id != 101 {
		t.Fatalf("expected 101, got %d", id)
	}
}

func TestResolve_OverrideWinsOverCatalog(t *testing.T) {
	r := newTestResolver(t, `{"69":{"anilist_id":101}}`, "\"69\" = 9999\n")
	id, err := r.Resolve(context.Background(), "69")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if id != 9999 {
		t.Fatalf("override must win, got %d", id)
	}
}

func TestResolve_NotMapped(t *testing.T) {
	r := newTestResolver(t, `{"69":{"anilist_id":101}}`, "")
	_, err := r.Resolve(context.Background(), "12345")
	if !errors.Is(err, ErrNotMapped) {
		t.Fatalf("expected ErrNotMapped, got %v", err)
	}
}

func TestResolve_InvalidTargetID(t *testing.T) {
	r := newTestResolver(t, `{"69":{"anilist_id":0}}`, "")
	_, err := r.Resolve(context.Background(), "69")
	var invalid *InvalidMappingError
	if !errors.As(err, &invalid) {
		t.Fatalf("expected InvalidMappingError, got %v", err)
	}
	if invalid.SourceID != "69" {
		t.Fatalf("unexpected source id: %s", invalid.SourceID)
	}
}

func TestResolve_SurvivesRefreshFailure(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "anidb-map.json")
	if err := os.WriteFile(path, []byte(`{"69":{"anilist_id":101}}`), 0o644); err != nil {
		t.Fatalf("seed catalog: %v", err)
	}
	// Vieillit le fichier pour forcer un refresh, qui échouera (URL morte).
	old := time.Now().Add(-48 * time.Hour)
	if err := os.Chtimes(path, old, old); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	catalog := NewCatalogCache(zerolog.Nop(), config.MappingConfig{
		CatalogURL:  "http://127.0.0.1:1/nope",
		CatalogPath: path,
		MaxAge:      24 * time.Hour,
	})
	r := NewIdentifierResolver(zerolog.Nop(), catalog, "")

	id, err := r.Resolve(context.Background(), "69")
	if err != nil {
		t.Fatalf("resolution must proceed on stale cache, got %v", err)
	}
	if id != 101 {
		t.Fatalf("expected 101, got %d", id)
	}
}

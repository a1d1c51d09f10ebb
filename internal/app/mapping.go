package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/pelletier/go-toml/v2"
	"github.com/rs/zerolog"

	"github.com/Guilhem-Bonnet/Plex-AniList-Scrobbler/internal/config"
)

// catalogEntry is one value of the remote mapping file, keyed by AniDB id.
// Only anilist_id matters here; the file carries other catalog ids too.
type catalogEntry struct {
	AniListID int `json:"anilist_id"`
}

// CatalogCache holds the AniDB→AniList mapping downloaded from the remote
// catalog, persisted on disk and refreshed once it is older than MaxAge.
//
// Readers (Lookup) and the refresh path may run concurrently: a refresh builds
// a complete new map before swapping it in, so a reader never sees a
// half-written view.
type CatalogCache struct {
	logger zerolog.Logger
	url    string
	path   string
	maxAge time.Duration
	client *http.Client

	mu        sync.RWMutex
	ids       map[string]int
	fetchedAt time.Time

	// refreshMu sérialise les refreshs; un seul téléchargement à la fois.
	refreshMu sync.Mutex
}

func NewCatalogCache(logger zerolog.Logger, cfg config.MappingConfig) *CatalogCache {
	c := &CatalogCache{
		logger: logger,
		url:    cfg.CatalogURL,
		path:   cfg.CatalogPath,
		maxAge: cfg.MaxAge,
		client: &http.Client{Timeout: 30 * time.Second},
	}
	c.loadFromDisk()
	return c
}

// loadFromDisk seeds the cache from the persisted file, using its mtime as the
// last refresh instant so a restart does not force an immediate download.
func (c *CatalogCache) loadFromDisk() {
	b, err := os.ReadFile(c.path)
	if err != nil {
		return
	}
	ids, err := parseCatalog(b)
	if err != nil {
		c.logger.Warn().Err(err).Str("path", c.path).Msg("ignoring corrupt catalog cache file")
		return
	}
	fetchedAt := time.Time{}
	if st, err := os.Stat(c.path); err == nil {
		fetchedAt = st.ModTime()
	}
	c.mu.Lock()
	c.ids = ids
	c.fetchedAt = fetchedAt
	c.mu.Unlock()
}

// EnsureFresh refreshes the catalog when it is stale or absent. A failed
// refresh is returned as an error but leaves the previous contents usable.
func (c *CatalogCache) EnsureFresh(ctx context.Context) error {
	c.mu.RLock()
	fresh := c.ids != nil && time.Since(c.fetchedAt) < c.maxAge
	c.mu.RUnlock()
	if fresh {
		return nil
	}

	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	// Un autre appel a pu rafraîchir pendant l'attente du lock.
	c.mu.RLock()
	fresh = c.ids != nil && time.Since(c.fetchedAt) < c.maxAge
	c.mu.RUnlock()
	if fresh {
		return nil
	}

	b, err := c.download(ctx)
	if err != nil {
		return fmt.Errorf("refresh catalog: %w", err)
	}
	ids, err := parseCatalog(b)
	if err != nil {
		return fmt.Errorf("refresh catalog: %w", err)
	}

	// Persist before swap; the file must stay world-readable for other tools.
	if err := os.WriteFile(c.path, b, 0o644); err != nil {
		c.logger.Warn().Err(err).Str("path", c.path).Msg("failed to persist catalog cache")
	} else {
		_ = os.Chmod(c.path, 0o644)
	}

	c.mu.Lock()
	c.ids = ids
	c.fetchedAt = time.Now()
	c.mu.Unlock()

	c.logger.Info().Int("entries", len(ids)).Msg("catalog cache refreshed")
	return nil
}

// download fetches the catalog with a short bounded retry; only transport
// failures are retried, a bad HTTP status is retried too since the mirror
// occasionally serves 5xx.
func (c *CatalogCache) download(ctx context.Context) ([]byte, error) {
	var body []byte
	op := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		resp, err := c.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return errors.New("catalog http error: " + resp.Status)
		}
		body, err = io.ReadAll(resp.Body)
		return err
	}
	bo := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 2), ctx)
	if err := backoff.Retry(op, bo); err != nil {
		return nil, err
	}
	return body, nil
}

// Lookup returns the AniList id mapped to an AniDB id.
func (c *CatalogCache) Lookup(sourceID string) (int, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	id, ok := c.ids[sourceID]
	return id, ok
}

// Len returns the number of cached mappings.
func (c *CatalogCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.ids)
}

func parseCatalog(b []byte) (map[string]int, error) {
	var raw map[string]catalogEntry
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil, err
	}
	ids := make(map[string]int, len(raw))
	for k, v := range raw {
		ids[k] = v.AniListID
	}
	return ids, nil
}

// LoadOverrides reads the user-maintained override table (TOML, key = AniDB id
// string, value = AniList id). A missing or unparsable file degrades to an
// empty table so resolution keeps working on the catalog alone.
func LoadOverrides(logger zerolog.Logger, path string) map[string]int {
	if path == "" {
		return nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			logger.Warn().Err(err).Str("path", path).Msg("cannot read override table")
		}
		return nil
	}
	var table map[string]int
	if err := toml.Unmarshal(b, &table); err != nil {
		logger.Warn().Err(err).Str("path", path).Msg("cannot parse override table")
		return nil
	}
	return table
}

// Package discord delivers reconciliation outcomes to a Discord webhook.
// When no webhook URL is configured, NewNotifier returns a noop so callers
// never have to check for a nil sink.
package discord

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Guilhem-Bonnet/Plex-AniList-Scrobbler/internal/config"
	"github.com/Guilhem-Bonnet/Plex-AniList-Scrobbler/internal/ports"
)

func NewNotifier(cfg config.NotifyConfig) ports.Notifier {
	url := strings.TrimSpace(cfg.DiscordWebhook)
	if url == "" {
		return noopNotifier{}
	}
	return &webhookNotifier{
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

type noopNotifier struct{}

func (noopNotifier) NotifyCompletion(context.Context, string, string) error { return nil }
func (noopNotifier) NotifyFailure(context.Context, string, int, int, string) error {
	return nil
}

type webhookNotifier struct {
	url    string
	client *http.Client
}

type webhookMessage struct {
	Content string `json:"content"`
}

func (n *webhookNotifier) NotifyCompletion(ctx context.Context, showTitle, siteURL string) error {
	msg := fmt.Sprintf("Completed **%s**", showTitle)
	if siteURL != "" {
		msg += "\n" + siteURL
	}
	return n.send(ctx, msg)
}

func (n *webhookNotifier) NotifyFailure(ctx context.Context, showTitle string, season, episode int, reason string) error {
	return n.send(ctx, fmt.Sprintf("Failed to scrobble **%s** S%02dE%02d: %s", showTitle, season, episode, reason))
}

func (n *webhookNotifier) send(ctx context.Context, content string) error {
	b, err := json.Marshal(webhookMessage{Content: content})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return errors.New("discord webhook error: " + resp.Status)
	}
	return nil
}

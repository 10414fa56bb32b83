// Package notify delivers operator-facing status messages. Delivery is
// best-effort by design: callers log failures and move on, so a broken
// webhook can never take down a transfer run.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// MaxMessageLen is Discord's message content limit. Longer messages are
// truncated before delivery.
const MaxMessageLen = 2000

// Notifier announces a text message to the operator channel.
type Notifier interface {
	Announce(ctx context.Context, message string) error
}

// DiscordWebhook posts messages to a Discord webhook URL.
type DiscordWebhook struct {
	url    string
	client *http.Client
}

// NewDiscordWebhook creates a webhook notifier. timeout bounds each
// delivery attempt.
func NewDiscordWebhook(url string, timeout time.Duration) *DiscordWebhook {
	return &DiscordWebhook{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

// Announce posts the message as webhook content, truncated to
// MaxMessageLen. A non-2xx response is an error.
func (d *DiscordWebhook) Announce(ctx context.Context, message string) error {
	payload, err := json.Marshal(map[string]string{
		"content": Truncate(message),
	})
	if err != nil {
		return fmt.Errorf("encode webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("deliver webhook: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}

// Truncate caps a message at MaxMessageLen runes.
func Truncate(message string) string {
	runes := []rune(message)
	if len(runes) <= MaxMessageLen {
		return message
	}
	return string(runes[:MaxMessageLen])
}

// Nop is a Notifier that discards every message. Used when no webhook is
// configured.
type Nop struct{}

// Announce implements Notifier.
func (Nop) Announce(context.Context, string) error { return nil }

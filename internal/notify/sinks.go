package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/slack-go/slack"
)

// maxErrorBody caps how much of a failed response body lands in the error.
const maxErrorBody = 512

// WebhookSink POSTs the payload as JSON to an HTTP endpoint.
type WebhookSink struct {
	URL    string
	Client *http.Client
}

// NewWebhookSink returns a sink posting to url with the default client.
// Deadlines come from the context passed to Send.
func NewWebhookSink(url string) *WebhookSink {
	return &WebhookSink{URL: url, Client: http.DefaultClient}
}

// Name implements Sink.
func (w *WebhookSink) Name() string { return "webhook" }

// Send implements Sink.
func (w *WebhookSink) Send(ctx context.Context, p Payload) error {
	body, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("notify: webhook: encode payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("notify: webhook: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	client := w.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("notify: webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		excerpt, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return fmt.Errorf("notify: webhook: status %d: %s", resp.StatusCode, strings.TrimSpace(string(excerpt)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// SlackSink posts a one-line alert to a Slack incoming webhook.
type SlackSink struct {
	WebhookURL string
}

// Name implements Sink.
func (s *SlackSink) Name() string { return "slack" }

// Send implements Sink.
func (s *SlackSink) Send(ctx context.Context, p Payload) error {
	msg := &slack.WebhookMessage{Text: alertText(p)}
	if err := slack.PostWebhookContext(ctx, s.WebhookURL, msg); err != nil {
		return fmt.Errorf("notify: slack: %w", err)
	}
	return nil
}

func alertText(p Payload) string {
	text := fmt.Sprintf("New crash report %s: %s", p.IncidentID, p.Driver)
	if p.Event != "" {
		text += " at " + p.Event
	}
	if p.Chassis != "" {
		text += " (chassis " + p.Chassis + ")"
	}
	return text
}

// SinksFor builds the sinks enabled by the given URLs. Empty URLs are skipped.
func SinksFor(webhookURL, slackWebhookURL string) []Sink {
	var sinks []Sink
	if webhookURL != "" {
		sinks = append(sinks, NewWebhookSink(webhookURL))
	}
	if slackWebhookURL != "" {
		sinks = append(sinks, &SlackSink{WebhookURL: slackWebhookURL})
	}
	return sinks
}

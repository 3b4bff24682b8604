package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/DrSkyle/snipesync/pkg/engine/report"
)

// SlackClient posts run summaries to an incoming webhook.
type SlackClient struct {
	WebhookURL string
	Channel    string // Optional: Override default channel
	HTTPClient *http.Client
}

// NewSlackClient initializes the Slack integration.
func NewSlackClient(webhookURL string, channel string) *SlackClient {
	return &SlackClient{
		WebhookURL: webhookURL,
		Channel:    channel,
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// SendRunSummary posts the totals of a finished run. A missing webhook is a no-op.
func (s *SlackClient) SendRunSummary(ctx context.Context, run *report.Run) error {
	if s.WebhookURL == "" {
		return nil
	}
	return s.send(ctx, s.constructPayload(run))
}

func (s *SlackClient) constructPayload(run *report.Run) map[string]interface{} {
	t := run.Totals

	statusIcon := "🟢"
	switch {
	case t.Failed > 0 || t.AccountsFailed > 0:
		statusIcon = "🔴"
	case t.Skipped > 0 || t.RegionsFailed > 0:
		statusIcon = "🟡"
	}

	title := fmt.Sprintf("%s Snipe-IT Sync Report", statusIcon)
	if run.DryRun {
		title += " (dry run)"
	}

	blocks := []map[string]interface{}{
		{
			"type": "header",
			"text": map[string]interface{}{
				"type": "plain_text",
				"text": title,
			},
		},
		{
			"type": "context",
			"elements": []map[string]interface{}{
				{
					"type": "mrkdwn",
					"text": fmt.Sprintf("*Run:* %s | *Started:* %s | *Duration:* %s",
						run.RunID, run.StartedAt.Format(time.RFC3339), run.Duration().Round(time.Second)),
				},
			},
		},
		{
			"type": "divider",
		},
		{
			"type": "section",
			"fields": []map[string]interface{}{
				{"type": "mrkdwn", "text": fmt.Sprintf("*Accounts:*\n%d (%d failed)", t.Accounts, t.AccountsFailed)},
				{"type": "mrkdwn", "text": fmt.Sprintf("*Regions:*\n%d (%d failed)", t.Regions, t.RegionsFailed)},
				{"type": "mrkdwn", "text": fmt.Sprintf("*Discovered:*\n%d", t.Discovered)},
				{"type": "mrkdwn", "text": fmt.Sprintf("*Created / Updated:*\n%d / %d", t.Created, t.Updated)},
				{"type": "mrkdwn", "text": fmt.Sprintf("*Failed:*\n%d", t.Failed)},
				{"type": "mrkdwn", "text": fmt.Sprintf("*Skipped:*\n%d", t.Skipped)},
			},
		},
	}

	payload := map[string]interface{}{
		"blocks": blocks,
	}
	if s.Channel != "" {
		payload["channel"] = s.Channel
	}
	return payload
}

func (s *SlackClient) send(ctx context.Context, payload map[string]interface{}) error {
	jsonPayload, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal slack payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.WebhookURL, bytes.NewBuffer(jsonPayload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	client := s.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("received non-200 status from slack: %d", resp.StatusCode)
	}
	return nil
}

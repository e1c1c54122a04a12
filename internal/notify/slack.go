package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Slack posts to an incoming webhook.
type Slack struct {
	Webhook string
	Client  *http.Client
}

// NewSlack returns nil when no webhook is configured.
func NewSlack(webhook string) *Slack {
	if webhook == "" {
		return nil
	}
	return &Slack{
		Webhook: webhook,
		Client:  &http.Client{Timeout: 10 * time.Second},
	}
}

type slackText struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type slackBlock struct {
	Type string    `json:"type"`
	Text slackText `json:"text"`
}

// slackMessage carries the title as plain text for clients that ignore
// blocks (push notifications, old integrations).
type slackMessage struct {
	Text   string       `json:"text"`
	Blocks []slackBlock `json:"blocks"`
}

func newSlackMessage(title, text string) slackMessage {
	return slackMessage{
		Text: title,
		Blocks: []slackBlock{
			{Type: "header", Text: slackText{Type: "plain_text", Text: title}},
			{Type: "section", Text: slackText{Type: "mrkdwn", Text: text}},
		},
	}
}

func (s *Slack) Send(ctx context.Context, title, text string) error {
	body, err := json.Marshal(newSlackMessage(title, text))
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.Webhook, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.Client.Do(req)
	if err != nil {
		return fmt.Errorf("slack: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		// Slack answers errors with a short plain-text reason
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		if reason := strings.TrimSpace(string(msg)); reason != "" {
			return fmt.Errorf("slack: status %d: %s", resp.StatusCode, reason)
		}
		return fmt.Errorf("slack: status %d", resp.StatusCode)
	}
	return nil
}

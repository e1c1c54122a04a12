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

// Apprise posts to an Apprise API server's stateless /notify endpoint,
// which relays to whatever recipient URLs it is given.
type Apprise struct {
	Server     string
	Recipients string
	Client     *http.Client
}

// NewApprise returns nil unless both server and recipients are set.
func NewApprise(server, recipients string) *Apprise {
	if strings.TrimSpace(server) == "" || strings.TrimSpace(recipients) == "" {
		return nil
	}
	return &Apprise{
		Server:     server,
		Recipients: recipients,
		Client:     &http.Client{Timeout: 10 * time.Second},
	}
}

type apprisePayload struct {
	URLs   string `json:"urls"`
	Title  string `json:"title"`
	Body   string `json:"body"`
	Type   string `json:"type"`
	Format string `json:"format"`
}

func (a *Apprise) Send(ctx context.Context, title, text string) error {
	body, err := json.Marshal(apprisePayload{
		URLs:   a.Recipients,
		Title:  title,
		Body:   text,
		Type:   "info",
		Format: "text",
	})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.Server, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("apprise: status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	return nil
}

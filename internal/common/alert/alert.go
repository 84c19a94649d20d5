// Package alert posts operational notifications to a webhook. It is
// fire-and-forget: alert failures are logged, never propagated.
package alert

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

type Message struct {
	Title  string    `json:"title"`
	Body   string    `json:"body"`
	SentAt time.Time `json:"sentAt"`
	Source string    `json:"source"`
}

type Client struct {
	webhookURL string
	httpClient *http.Client
}

func NewClient(webhookURL string) *Client {
	return &Client{
		webhookURL: webhookURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Enabled reports whether a webhook is configured.
func (c *Client) Enabled() bool {
	return c != nil && c.webhookURL != ""
}

// Send posts the message. Disabled clients are a no-op.
func (c *Client) Send(title, body string) error {
	if !c.Enabled() {
		return nil
	}
	msg := Message{
		Title:  title,
		Body:   body,
		SentAt: time.Now().UTC(),
		Source: "sharecycle-console",
	}
	raw, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encoding alert: %w", err)
	}
	resp, err := c.httpClient.Post(c.webhookURL, "application/json", bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("posting alert: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("alert webhook returned %d", resp.StatusCode)
	}
	return nil
}

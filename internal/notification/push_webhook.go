package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"net/http"
	"time"

	"github.com/tphakala/ppewatch/internal/errors"
	"github.com/tphakala/ppewatch/internal/httpclient"
)

const (
	defaultWebhookTimeout = 30 * time.Second
	maxErrorBodySize      = 1024
)

// WebhookPayload is the JSON body posted for each message.
type WebhookPayload struct {
	Recipient string `json:"recipient"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

// WebhookSender posts each message as JSON to a single endpoint.
type WebhookSender struct {
	url     string
	headers map[string]string
	client  *http.Client
}

// NewWebhookSender creates a webhook sender. A nil client gets a pooled
// client with the given timeout.
func NewWebhookSender(url string, headers map[string]string, timeout time.Duration, client *http.Client) (*WebhookSender, error) {
	if url == "" {
		return nil, errors.Newf("webhook url is required").
			Component("notification").
			Category(errors.CategoryConfiguration).
			Build()
	}
	if timeout <= 0 {
		timeout = defaultWebhookTimeout
	}
	if client == nil {
		client = httpclient.New(httpclient.Config{Timeout: timeout})
	}
	return &WebhookSender{url: url, headers: maps.Clone(headers), client: client}, nil
}

func (w *WebhookSender) Name() string { return "webhook" }

// Send posts one message. Any non-2xx response is an error.
func (w *WebhookSender) Send(ctx context.Context, recipient, text string) error {
	body, err := json.Marshal(WebhookPayload{
		Recipient: recipient,
		Message:   text,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return deliveryError(err, w.Name(), recipient)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return deliveryError(err, w.Name(), recipient)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range w.headers {
		req.Header.Set(k, v)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return deliveryError(fmt.Errorf("%s", errors.ScrubMessage(err.Error())), w.Name(), recipient)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
		return deliveryError(fmt.Errorf("webhook returned status %d: %s", resp.StatusCode, bytes.TrimSpace(msg)),
			w.Name(), recipient)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

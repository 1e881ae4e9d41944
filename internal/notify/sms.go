package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
)

// SMSGateway sends texts through the httpSMS REST API.
type SMSGateway struct {
	client *http.Client
	url    string
	apiKey string
	from   string
}

type smsPayload struct {
	Content string `json:"content"`
	From    string `json:"from"`
	To      string `json:"to"`
}

func NewSMSGateway(cfg Config, client *http.Client) *SMSGateway {
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	url := cfg.HTTPSMSURL
	if url == "" {
		url = DefaultHTTPSMSURL
	}
	return &SMSGateway{
		client: client,
		url:    url,
		apiKey: cfg.HTTPSMSAPIKey,
		from:   cfg.HTTPSMSFromNumber,
	}
}

func (g *SMSGateway) Send(ctx context.Context, msg Message) bool {
	if msg.Recipient == "" {
		return false
	}
	body, err := json.Marshal(smsPayload{Content: msg.Body, From: g.from, To: msg.Recipient})
	if err != nil {
		slog.ErrorContext(ctx, "Failed to encode SMS payload", "error", err)
		return false
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.url, bytes.NewReader(body))
	if err != nil {
		slog.ErrorContext(ctx, "Failed to build SMS request", "error", err)
		return false
	}
	req.Header.Set("x-api-key", g.apiKey)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		slog.WarnContext(ctx, "SMS request failed", "recipient", msg.Recipient, "error", err)
		return false
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		slog.WarnContext(ctx, "SMS rejected by gateway",
			"recipient", msg.Recipient,
			"status", resp.StatusCode)
		return false
	}
	slog.InfoContext(ctx, "SMS sent", "recipient", msg.Recipient)
	return true
}

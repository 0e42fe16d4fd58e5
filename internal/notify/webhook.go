package notify

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/andresuchdata/stockalert/internal/config"
	"github.com/go-resty/resty/v2"
)

const signatureHeader = "X-Signature-256"

// WebhookChannel posts notifications as JSON to an HTTP endpoint.
// With a secret configured the body is signed with HMAC-SHA256.
type WebhookChannel struct {
	httpClient *resty.Client
	url        string
	secret     string
}

func NewWebhookChannel(cfg config.DeliveryConfig) *WebhookChannel {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	restyClient := resty.New()
	restyClient.
		SetHeader("Content-Type", "application/json").
		SetHeader("User-Agent", "stockalert/1.0").
		SetTimeout(timeout)

	return &WebhookChannel{
		httpClient: restyClient,
		url:        cfg.WebhookURL,
		secret:     cfg.WebhookSecret,
	}
}

func (w *WebhookChannel) Name() string { return "webhook" }

type webhookPayload struct {
	Event        string       `json:"event"`
	Timestamp    string       `json:"timestamp"`
	Notification Notification `json:"notification"`
}

func (w *WebhookChannel) Send(ctx context.Context, n Notification) error {
	body, err := json.Marshal(webhookPayload{
		Event:        "stock_alert",
		Timestamp:    time.Now().UTC().Format(time.RFC3339),
		Notification: n,
	})
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	req := w.httpClient.R().
		SetContext(ctx).
		SetBody(body)
	if w.secret != "" {
		req.SetHeader(signatureHeader, "sha256="+Sign(body, w.secret))
	}

	resp, err := req.Post(w.url)
	if err != nil {
		return fmt.Errorf("send webhook notification: %w", err)
	}

	if resp.StatusCode() < http.StatusOK || resp.StatusCode() >= http.StatusMultipleChoices {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode())
	}
	return nil
}

// Sign returns the hex HMAC-SHA256 of body under secret.
func Sign(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

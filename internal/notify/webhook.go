package notify

import (
	"context"
	"fmt"

	"github.com/go-resty/resty/v2"
	"github.com/quantfeed/signal-scout/internal/config"
	"github.com/quantfeed/signal-scout/internal/models"
)

// WebhookNotifier posts the payload as JSON to a generic webhook endpoint.
type WebhookNotifier struct {
	cfg    config.WebhookConfig
	client *resty.Client
}

// NewWebhookNotifier creates a generic webhook channel.
func NewWebhookNotifier(cfg config.WebhookConfig, client *resty.Client) *WebhookNotifier {
	return &WebhookNotifier{cfg: cfg, client: client}
}

func (n *WebhookNotifier) Name() string { return "webhook" }

// Send posts the payload to the configured URL.
func (n *WebhookNotifier) Send(ctx context.Context, payload models.NotificationPayload) error {
	req := n.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(payload)
	if n.cfg.Token != "" {
		req.SetHeader("Authorization", n.cfg.Token)
	}

	resp, err := req.Post(n.cfg.URL)
	if err != nil {
		return Transient(n.Name(), fmt.Errorf("webhook request failed: %w", err))
	}
	if resp.StatusCode() < 200 || resp.StatusCode() >= 300 {
		return classifyStatus(n.Name(), resp.StatusCode(), resp.String())
	}
	return nil
}

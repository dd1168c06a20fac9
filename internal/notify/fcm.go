package notify

import (
	"context"
	"fmt"

	"github.com/go-resty/resty/v2"
	"github.com/quantfeed/signal-scout/internal/config"
	"github.com/quantfeed/signal-scout/internal/models"
)

// FCMNotifier sends alerts through the Firebase Cloud Messaging v1 API.
type FCMNotifier struct {
	cfg    config.FCMConfig
	client *resty.Client
}

// NewFCMNotifier creates an FCM push channel.
func NewFCMNotifier(cfg config.FCMConfig, client *resty.Client) *FCMNotifier {
	return &FCMNotifier{cfg: cfg, client: client}
}

func (n *FCMNotifier) Name() string { return "fcm" }

// Send delivers one push message to the configured device token.
func (n *FCMNotifier) Send(ctx context.Context, payload models.NotificationPayload) error {
	url := fmt.Sprintf("%s/projects/%s/messages:send", n.cfg.Endpoint, n.cfg.ProjectID)

	sound := ""
	if payload.Sound {
		sound = "default"
	}
	body := map[string]interface{}{
		"message": map[string]interface{}{
			"token": n.cfg.DeviceToken,
			"notification": map[string]string{
				"title": payload.Title,
				"body":  payload.Body,
			},
			"android": map[string]interface{}{
				"priority": payload.Priority,
				"ttl":      fmt.Sprintf("%ds", payload.Duration*60),
				"notification": map[string]interface{}{
					"sound":      sound,
					"channel_id": "trade_alerts",
				},
			},
		},
	}

	resp, err := n.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetAuthToken(n.cfg.AccessToken).
		SetBody(body).
		Post(url)

	if err != nil {
		return Transient(n.Name(), fmt.Errorf("fcm request failed: %w", err))
	}
	if resp.StatusCode() < 200 || resp.StatusCode() >= 300 {
		return classifyStatus(n.Name(), resp.StatusCode(), resp.String())
	}
	return nil
}

package notify

import (
	"context"
	"fmt"

	"github.com/go-resty/resty/v2"
	"github.com/quantfeed/signal-scout/internal/config"
	"github.com/quantfeed/signal-scout/internal/models"
)

const pushbulletURL = "https://api.pushbullet.com/v2/pushes"

// PushbulletNotifier sends alerts as Pushbullet note pushes.
type PushbulletNotifier struct {
	cfg    config.PushbulletConfig
	client *resty.Client
	url    string
}

// NewPushbulletNotifier creates a Pushbullet push channel.
func NewPushbulletNotifier(cfg config.PushbulletConfig, client *resty.Client) *PushbulletNotifier {
	return &PushbulletNotifier{cfg: cfg, client: client, url: pushbulletURL}
}

func (n *PushbulletNotifier) Name() string { return "pushbullet" }

// Send delivers one note push to all devices on the account.
func (n *PushbulletNotifier) Send(ctx context.Context, payload models.NotificationPayload) error {
	body := map[string]string{
		"type":  "note",
		"title": payload.Title,
		"body":  payload.Body,
	}

	resp, err := n.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetHeader("Access-Token", n.cfg.AccessToken).
		SetBody(body).
		Post(n.url)

	if err != nil {
		return Transient(n.Name(), fmt.Errorf("pushbullet request failed: %w", err))
	}
	if resp.StatusCode() < 200 || resp.StatusCode() >= 300 {
		return classifyStatus(n.Name(), resp.StatusCode(), resp.String())
	}
	return nil
}

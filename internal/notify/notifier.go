// Package notify delivers formatted alerts to the configured notification
// channel. Channels are polymorphic over Send; exactly one is active at a
// time, selected once at startup.
package notify

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/quantfeed/signal-scout/internal/config"
	"github.com/quantfeed/signal-scout/internal/models"
)

// Notifier delivers one payload to one channel. Implementations perform a
// single delivery attempt; retry policy lives in the Dispatcher.
type Notifier interface {
	Name() string
	Send(ctx context.Context, payload models.NotificationPayload) error
}

// New selects the active notification channel from configuration. Test mode
// always gets the console sink so no real notification leaves the process.
func New(cfg config.NotificationConfig, testMode bool, logger *log.Logger) (Notifier, error) {
	if testMode {
		return NewConsoleNotifier(logger), nil
	}

	client := resty.New().SetTimeout(10 * time.Second)

	switch cfg.Method {
	case "fcm":
		return NewFCMNotifier(cfg.FCM, client), nil
	case "pushbullet":
		return NewPushbulletNotifier(cfg.Pushbullet, client), nil
	case "webhook":
		return NewWebhookNotifier(cfg.Webhook, client), nil
	case "console":
		return NewConsoleNotifier(logger), nil
	default:
		return nil, fmt.Errorf("unsupported notification method: %s", cfg.Method)
	}
}

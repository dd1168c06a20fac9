package notify

import (
	"context"
	"log"

	"github.com/quantfeed/signal-scout/internal/models"
)

// ConsoleNotifier logs would-be alerts instead of delivering them. Used in
// debug/test mode and as a safe default channel.
type ConsoleNotifier struct {
	logger *log.Logger
}

// NewConsoleNotifier creates a console sink.
func NewConsoleNotifier(logger *log.Logger) *ConsoleNotifier {
	return &ConsoleNotifier{logger: logger}
}

func (n *ConsoleNotifier) Name() string { return "console" }

// Send logs the payload.
func (n *ConsoleNotifier) Send(_ context.Context, payload models.NotificationPayload) error {
	n.logger.Printf("notification (%s priority): %s\n%s", payload.Priority, payload.Title, payload.Body)
	return nil
}

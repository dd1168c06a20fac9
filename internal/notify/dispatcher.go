package notify

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/quantfeed/signal-scout/internal/config"
	"github.com/quantfeed/signal-scout/internal/models"
)

// Dispatcher wraps the active Notifier with bounded retry and exponential
// backoff. Transient failures are retried up to the configured maximum;
// exhausting retries surfaces ErrDispatchExhausted, which the orchestrator
// treats as non-fatal.
type Dispatcher struct {
	notifier    Notifier
	maxRetries  int
	backoffBase time.Duration
	backoffMax  time.Duration
	logger      *log.Logger
}

// NewDispatcher creates a Dispatcher around the given channel.
func NewDispatcher(notifier Notifier, cfg config.PipelineConfig, logger *log.Logger) *Dispatcher {
	return &Dispatcher{
		notifier:    notifier,
		maxRetries:  cfg.DispatchMaxRetries,
		backoffBase: cfg.BackoffBase,
		backoffMax:  cfg.BackoffMax,
		logger:      logger,
	}
}

// Dispatch delivers the payload, retrying transient failures with
// exponential backoff. Cancellation is checked between attempts so shutdown
// is never blocked by a backoff sleep.
func (d *Dispatcher) Dispatch(ctx context.Context, payload models.NotificationPayload) error {
	var lastErr error
	backoff := d.backoffBase

	for attempt := 1; attempt <= d.maxRetries; attempt++ {
		lastErr = d.notifier.Send(ctx, payload)
		if lastErr == nil {
			return nil
		}
		if !IsTransient(lastErr) {
			return fmt.Errorf("dispatch via %s: %w", d.notifier.Name(), lastErr)
		}
		if attempt == d.maxRetries {
			break
		}

		d.logger.Printf("dispatch attempt %d/%d via %s failed: %v (retrying in %s)",
			attempt, d.maxRetries, d.notifier.Name(), lastErr, backoff)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > d.backoffMax {
			backoff = d.backoffMax
		}
	}

	return fmt.Errorf("%w via %s after %d attempts: %v",
		ErrDispatchExhausted, d.notifier.Name(), d.maxRetries, lastErr)
}

// Package source implements the ingestion side of the pipeline: each Source
// produces a stream of RawMessages from one configured chat platform feed.
package source

import (
	"context"
	"fmt"
	"log"

	"github.com/quantfeed/signal-scout/internal/config"
	"github.com/quantfeed/signal-scout/internal/models"
)

// Emit hands one message to the pipeline. It may block briefly while the
// pipeline backlog is full; sources must not drop messages themselves.
type Emit func(models.RawMessage)

// Source is a single ingestion stream. Run blocks until ctx is cancelled or
// the source fails unrecoverably.
type Source interface {
	Name() string
	Run(ctx context.Context, emit Emit) error
}

// New builds a Source from its configuration.
func New(cfg config.SourceConfig, logger *log.Logger) (Source, error) {
	switch cfg.Type {
	case "webhook":
		return NewWebhookSource(cfg), nil
	case "websocket":
		return NewWebSocketSource(cfg, logger), nil
	case "kafka":
		return NewKafkaSource(cfg, logger), nil
	default:
		return nil, fmt.Errorf("unsupported source type: %s", cfg.Type)
	}
}

// Package dedup persists processed-message fingerprints so that a message
// delivered more than once (reconnect redelivery, restart) never pays a
// second inference call or produces a second notification.
package dedup

import (
	"context"
	"fmt"

	"github.com/quantfeed/signal-scout/internal/config"
	"gorm.io/gorm"
)

// Store answers "already processed?" for (channel, message) pairs.
// Implementations must be durable: after a restart, Seen must reflect all
// prior MarkSeen calls. MarkSeen for an existing pair is a no-op
// (fingerprints are write-once).
type Store interface {
	Seen(ctx context.Context, channelID, messageID string) (bool, error)
	MarkSeen(ctx context.Context, channelID, messageID, outcome string) error
	Close() error
}

// New selects a Store backend from configuration.
func New(cfg config.DedupConfig, db *gorm.DB) (Store, error) {
	switch cfg.Backend {
	case "sqlite":
		return NewSQLiteStore(db), nil
	case "redis":
		return NewRedisStore(cfg), nil
	default:
		return nil, fmt.Errorf("unknown dedup backend: %s", cfg.Backend)
	}
}

package dedup

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/quantfeed/signal-scout/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SQLiteStore persists fingerprints in the application database.
type SQLiteStore struct {
	db *gorm.DB
}

// NewSQLiteStore creates a fingerprint store on top of an initialized gorm DB.
func NewSQLiteStore(db *gorm.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// Seen reports whether a fingerprint exists for the pair.
func (s *SQLiteStore) Seen(ctx context.Context, channelID, messageID string) (bool, error) {
	var fp models.Fingerprint
	err := s.db.WithContext(ctx).
		Where("channel_id = ? AND message_id = ?", channelID, messageID).
		First(&fp).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("fingerprint lookup: %w", err)
	}
	return true, nil
}

// MarkSeen records the fingerprint with its outcome. The unique index on
// (channel_id, message_id) plus ON CONFLICT DO NOTHING makes this write-once
// even if the same message slips into the pipeline twice.
func (s *SQLiteStore) MarkSeen(ctx context.Context, channelID, messageID, outcome string) error {
	fp := models.Fingerprint{
		ChannelID:   channelID,
		MessageID:   messageID,
		Outcome:     outcome,
		ProcessedAt: time.Now(),
	}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&fp).Error
	if err != nil {
		return fmt.Errorf("fingerprint write: %w", err)
	}
	return nil
}

// Close is a no-op; the shared gorm DB is owned by the application.
func (s *SQLiteStore) Close() error {
	return nil
}

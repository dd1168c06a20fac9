package models

import "time"

// Terminal outcomes recorded against a processed fingerprint.
const (
	OutcomeOK        = "ok"        // extracted, formatted and dispatched
	OutcomeMalformed = "malformed" // inference response unparseable
	OutcomeFailed    = "failed"    // dispatch retries exhausted
	OutcomeInvalid   = "invalid"   // parseable response but no instrument/direction
)

// Fingerprint marks a (channel, message) pair as processed. Write-once,
// read-many; at most one row exists per pair.
type Fingerprint struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	ChannelID   string    `json:"channel_id" gorm:"uniqueIndex:idx_fingerprint_key;not null"`
	MessageID   string    `json:"message_id" gorm:"uniqueIndex:idx_fingerprint_key;not null"`
	Outcome     string    `json:"outcome"`
	ProcessedAt time.Time `json:"processed_at"`
	CreatedAt   time.Time `json:"created_at"`
}

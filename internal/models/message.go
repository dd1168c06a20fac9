package models

import "time"

// RawMessage represents a single chat message as delivered by an ingestion source.
// It is immutable once ingested and owned by the pipeline for one pass.
type RawMessage struct {
	SourceID   string    `json:"source_id"`
	ChannelID  string    `json:"channel_id"`
	MessageID  string    `json:"message_id"`
	Sender     string    `json:"sender"`
	Text       string    `json:"text"`
	ImagePath  string    `json:"image_path,omitempty"`
	ImageData  []byte    `json:"image_data,omitempty"`
	ReceivedAt time.Time `json:"received_at"`
}

// HasImage reports whether the message carries a chart image attachment.
func (m RawMessage) HasImage() bool {
	return len(m.ImageData) > 0 || m.ImagePath != ""
}

// NotificationPayload is a formatted alert ready for dispatch. Ephemeral, never persisted.
type NotificationPayload struct {
	Title    string `json:"title"`
	Body     string `json:"body"`
	Priority string `json:"priority"` // high, normal
	Sound    bool   `json:"sound"`
	Duration int    `json:"duration"` // display duration hint, seconds
}

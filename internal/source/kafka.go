package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/quantfeed/signal-scout/internal/config"
	"github.com/quantfeed/signal-scout/internal/models"
	"github.com/segmentio/kafka-go"
)

// KafkaSource consumes JSON-encoded RawMessages from a Kafka topic, for
// deployments where scrapers publish into a bus instead of calling the
// webhook directly.
type KafkaSource struct {
	name   string
	reader *kafka.Reader
	logger *log.Logger
}

// NewKafkaSource creates a Kafka ingestion source.
func NewKafkaSource(cfg config.SourceConfig, logger *log.Logger) *KafkaSource {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers: cfg.Brokers,
		GroupID: cfg.GroupID,
		Topic:   cfg.Topic,
	})
	return &KafkaSource{name: cfg.Name, reader: reader, logger: logger}
}

func (s *KafkaSource) Name() string { return s.name }

// Run reads messages until ctx is cancelled. Malformed records are logged
// and skipped; read errors are returned to the caller.
func (s *KafkaSource) Run(ctx context.Context, emit Emit) error {
	defer s.reader.Close()

	for {
		m, err := s.reader.ReadMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return ctx.Err()
			}
			return fmt.Errorf("kafka read: %w", err)
		}

		var msg models.RawMessage
		if err := json.Unmarshal(m.Value, &msg); err != nil || msg.MessageID == "" {
			s.logger.Printf("kafka source %s: skipping malformed record at offset %d", s.name, m.Offset)
			continue
		}
		if msg.SourceID == "" {
			msg.SourceID = s.name
		}
		if msg.ReceivedAt.IsZero() {
			msg.ReceivedAt = time.Now()
		}
		emit(msg)
	}
}

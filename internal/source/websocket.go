package source

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/gorilla/websocket"
	"github.com/quantfeed/signal-scout/internal/config"
	"github.com/quantfeed/signal-scout/internal/models"
)

const (
	wsReconnectBase = time.Second
	wsReconnectMax  = 30 * time.Second
	wsReadTimeout   = 90 * time.Second
)

// WebSocketSource consumes a stream of JSON-encoded RawMessages from a
// websocket feed, reconnecting with exponential backoff when the connection
// drops.
type WebSocketSource struct {
	name   string
	url    string
	logger *log.Logger
}

// NewWebSocketSource creates a websocket ingestion source.
func NewWebSocketSource(cfg config.SourceConfig, logger *log.Logger) *WebSocketSource {
	return &WebSocketSource{name: cfg.Name, url: cfg.URL, logger: logger}
}

func (s *WebSocketSource) Name() string { return s.name }

// Run connects and reads until ctx is cancelled. Connection failures and
// read errors trigger a reconnect; they never propagate to the caller.
func (s *WebSocketSource) Run(ctx context.Context, emit Emit) error {
	backoff := wsReconnectBase

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := s.readLoop(ctx, emit)
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return ctx.Err()
		}
		s.logger.Printf("websocket source %s disconnected: %v (reconnecting in %s)", s.name, err, backoff)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > wsReconnectMax {
			backoff = wsReconnectMax
		}
	}
}

func (s *WebSocketSource) readLoop(ctx context.Context, emit Emit) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, s.url, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	// Unblock the read when ctx is cancelled.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	s.logger.Printf("websocket source %s connected to %s", s.name, s.url)

	for {
		if err := conn.SetReadDeadline(time.Now().Add(wsReadTimeout)); err != nil {
			return err
		}
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}

		var msg models.RawMessage
		if err := json.Unmarshal(data, &msg); err != nil || msg.MessageID == "" {
			// Skip malformed frames but keep the connection.
			s.logger.Printf("websocket source %s: skipping malformed frame", s.name)
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

package source

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/quantfeed/signal-scout/internal/config"
	"github.com/quantfeed/signal-scout/internal/models"
)

// telegramUpdate is the push payload shape of the Telegram Bot API. Only the
// fields the pipeline needs are decoded.
type telegramUpdate struct {
	UpdateID int64            `json:"update_id"`
	Message  *telegramMessage `json:"message"`
	Post     *telegramMessage `json:"channel_post"`
}

type telegramMessage struct {
	MessageID int64 `json:"message_id"`
	From      *struct {
		Username  string `json:"username"`
		FirstName string `json:"first_name"`
	} `json:"from"`
	Chat struct {
		ID    int64  `json:"id"`
		Title string `json:"title"`
	} `json:"chat"`
	Date    int64  `json:"date"`
	Text    string `json:"text"`
	Caption string `json:"caption"`
}

// WebhookSource receives chat-platform pushes over HTTP. It accepts either a
// Telegram Bot API update or a plain RawMessage JSON body.
type WebhookSource struct {
	name string
	path string
	emit atomic.Pointer[Emit]
}

// NewWebhookSource creates a webhook ingestion source.
func NewWebhookSource(cfg config.SourceConfig) *WebhookSource {
	return &WebhookSource{name: cfg.Name, path: cfg.Path}
}

func (s *WebhookSource) Name() string { return s.name }

// Path returns the route the handler must be mounted on.
func (s *WebhookSource) Path() string { return s.path }

// Run publishes the emit callback for the HTTP handler and blocks until
// cancellation; the HTTP server itself is owned by the application.
func (s *WebhookSource) Run(ctx context.Context, emit Emit) error {
	s.emit.Store(&emit)
	<-ctx.Done()
	s.emit.Store(nil)
	return ctx.Err()
}

// Handle is the gin handler for incoming webhook pushes.
func (s *WebhookSource) Handle(c *gin.Context) {
	emit := s.emit.Load()
	if emit == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "source not running"})
		return
	}

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read request body"})
		return
	}

	msg, ok := s.parse(body)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unrecognized message payload"})
		return
	}

	(*emit)(msg)
	c.JSON(http.StatusOK, gin.H{"status": "accepted"})
}

// parse tries the Telegram update shape first, then a plain RawMessage body.
func (s *WebhookSource) parse(body []byte) (models.RawMessage, bool) {
	var update telegramUpdate
	if err := json.Unmarshal(body, &update); err == nil {
		tm := update.Message
		if tm == nil {
			tm = update.Post
		}
		if tm != nil && tm.MessageID != 0 {
			text := tm.Text
			if text == "" {
				text = tm.Caption
			}
			sender := ""
			if tm.From != nil {
				sender = tm.From.Username
				if sender == "" {
					sender = tm.From.FirstName
				}
			}
			channel := tm.Chat.Title
			if channel == "" {
				channel = strconv.FormatInt(tm.Chat.ID, 10)
			}
			received := time.Now()
			if tm.Date > 0 {
				received = time.Unix(tm.Date, 0)
			}
			return models.RawMessage{
				SourceID:   s.name,
				ChannelID:  channel,
				MessageID:  strconv.FormatInt(tm.MessageID, 10),
				Sender:     sender,
				Text:       text,
				ReceivedAt: received,
			}, true
		}
	}

	var msg models.RawMessage
	if err := json.Unmarshal(body, &msg); err != nil || msg.MessageID == "" {
		return models.RawMessage{}, false
	}
	if msg.SourceID == "" {
		msg.SourceID = s.name
	}
	if msg.ReceivedAt.IsZero() {
		msg.ReceivedAt = time.Now()
	}
	return msg, true
}

package format

import (
	"strings"
	"testing"

	"github.com/quantfeed/signal-scout/internal/config"
	"github.com/quantfeed/signal-scout/internal/models"
	"github.com/stretchr/testify/assert"
)

func ptr(v float64) *float64 { return &v }

func fullSignal() models.TradeSignal {
	return models.TradeSignal{
		Instrument: "EURUSD",
		Direction:  "BUY",
		EntryPrice: ptr(1.085),
		StopLoss:   ptr(1.08),
		TakeProfit: ptr(1.095),
		RiskReward: "1:2.0",
		Timeframe:  "1H",
		Analysis:   "Bounce off support",
		Confidence: 0.9,
	}
}

func newFormatter(maxLen int) *Formatter {
	return New(config.NotificationConfig{
		Priority:  "high",
		Sound:     true,
		Duration:  30,
		MaxLength: maxLen,
	})
}

func TestFormat(t *testing.T) {
	t.Run("Round trip contains every field verbatim", func(t *testing.T) {
		p := newFormatter(2000).Format(fullSignal(), Metadata{Channel: "Forex Signals", Sender: "TraderBot"})

		for _, want := range []string{"EURUSD", "BUY", "1.085", "1.08", "1.095", "1:2.0", "1H", "Bounce off support", "TraderBot", "Forex Signals"} {
			assert.Contains(t, p.Body, want)
		}
		assert.Equal(t, 1, strings.Count(p.Body, "EURUSD"))
		assert.Equal(t, 1, strings.Count(p.Body, "BUY"))
		assert.Equal(t, "EURUSD BUY Signal", p.Title)
		assert.Equal(t, "high", p.Priority)
		assert.True(t, p.Sound)
		assert.Equal(t, 30, p.Duration)
	})

	t.Run("Missing optional fields render as N/A", func(t *testing.T) {
		sig := models.TradeSignal{Instrument: "GBPUSD", Direction: "SELL"}
		p := newFormatter(2000).Format(sig, Metadata{})

		assert.Contains(t, p.Body, "Entry: N/A")
		assert.Contains(t, p.Body, "Stop Loss: N/A")
		assert.Contains(t, p.Body, "Take Profit: N/A")
		assert.Contains(t, p.Body, "Risk/Reward: N/A")
	})

	t.Run("Overlong analysis is truncated first", func(t *testing.T) {
		sig := fullSignal()
		sig.Analysis = strings.Repeat("a", 5000)

		p := newFormatter(400).Format(sig, Metadata{Channel: "c", Sender: "s"})

		assert.LessOrEqual(t, len(p.Body), 400)
		// Structured fields survive truncation.
		assert.Contains(t, p.Body, "EURUSD")
		assert.Contains(t, p.Body, "1.085")
		assert.Contains(t, p.Body, "1.095")
	})

	t.Run("Structured fields are never cut even when over budget", func(t *testing.T) {
		sig := fullSignal()
		sig.Analysis = ""

		p := newFormatter(10).Format(sig, Metadata{})
		assert.Contains(t, p.Body, "EURUSD")
		assert.Contains(t, p.Body, "1.085")
	})

	t.Run("Custom template", func(t *testing.T) {
		f := New(config.NotificationConfig{Template: "{{instrument}} {{direction}} @ {{entry}}"})
		p := f.Format(fullSignal(), Metadata{})
		assert.Equal(t, "EURUSD BUY @ 1.085", p.Body)
	})

	t.Run("Deterministic", func(t *testing.T) {
		f := newFormatter(2000)
		first := f.Format(fullSignal(), Metadata{Channel: "c", Sender: "s"})
		for i := 0; i < 10; i++ {
			assert.Equal(t, first, f.Format(fullSignal(), Metadata{Channel: "c", Sender: "s"}))
		}
	})
}

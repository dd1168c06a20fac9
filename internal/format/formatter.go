// Package format renders validated trade signals into notification payloads.
package format

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/quantfeed/signal-scout/internal/config"
	"github.com/quantfeed/signal-scout/internal/models"
)

// DefaultTemplate mirrors the mobile alert layout used by the signal channels
// this pipeline watches. Placeholders use {{name}}; anything unresolved
// renders as N/A.
const DefaultTemplate = `🔔 TRADE SIGNAL

📈 Instrument: {{instrument}}
📱 Direction: {{direction}}
💰 Entry: {{entry}}
🛑 Stop Loss: {{stop_loss}}
🎯 Take Profit: {{take_profit}}
📊 Risk/Reward: {{risk_reward}}
⏰ Timeframe: {{timeframe}}
💵 Current Price: {{current_price}}

📝 Analysis: {{analysis}}
👤 Source: {{sender}} ({{channel}})`

// Metadata carries per-message context that is not part of the signal itself.
type Metadata struct {
	Channel      string
	Sender       string
	CurrentPrice string
}

// Formatter performs pure template substitution; it holds no mutable state
// and makes no external calls.
type Formatter struct {
	template  string
	priority  string
	sound     bool
	duration  int
	maxLength int
}

// New creates a Formatter from the notification configuration, falling back
// to the default template when none is configured.
func New(cfg config.NotificationConfig) *Formatter {
	tmpl := cfg.Template
	if tmpl == "" {
		tmpl = DefaultTemplate
	}
	return &Formatter{
		template:  tmpl,
		priority:  cfg.Priority,
		sound:     cfg.Sound,
		duration:  cfg.Duration,
		maxLength: cfg.MaxLength,
	}
}

// Format renders the signal into a NotificationPayload. Missing optional
// fields render as N/A. When the rendered body exceeds the configured
// maximum length, the analysis section is truncated first; structured trade
// fields are never cut.
func (f *Formatter) Format(sig models.TradeSignal, meta Metadata) models.NotificationPayload {
	analysis := sig.Analysis
	body := f.render(sig, meta, analysis)

	if f.maxLength > 0 && len(body) > f.maxLength && analysis != "" {
		overflow := len(body) - f.maxLength
		if overflow >= len(analysis) {
			analysis = ""
		} else {
			analysis = analysis[:len(analysis)-overflow]
		}
		body = f.render(sig, meta, analysis)
	}

	return models.NotificationPayload{
		Title:    fmt.Sprintf("%s %s Signal", sig.Instrument, sig.Direction),
		Body:     body,
		Priority: f.priority,
		Sound:    f.sound,
		Duration: f.duration,
	}
}

func (f *Formatter) render(sig models.TradeSignal, meta Metadata, analysis string) string {
	repl := strings.NewReplacer(
		"{{instrument}}", orNA(sig.Instrument),
		"{{direction}}", orNA(sig.Direction),
		"{{entry}}", priceOrNA(sig.EntryPrice),
		"{{stop_loss}}", priceOrNA(sig.StopLoss),
		"{{take_profit}}", priceOrNA(sig.TakeProfit),
		"{{risk_reward}}", orNA(sig.RiskReward),
		"{{timeframe}}", orNA(sig.Timeframe),
		"{{confidence}}", fmt.Sprintf("%d%%", int(sig.Confidence*100)),
		"{{current_price}}", orNA(meta.CurrentPrice),
		"{{analysis}}", orNA(analysis),
		"{{sender}}", orNA(meta.Sender),
		"{{channel}}", orNA(meta.Channel),
	)
	return repl.Replace(f.template)
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

func priceOrNA(p *float64) string {
	if p == nil {
		return "N/A"
	}
	return strconv.FormatFloat(*p, 'f', -1, 64)
}

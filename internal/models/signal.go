package models

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

// Trade directions recognized in extracted signals.
const (
	DirectionBuy   = "BUY"
	DirectionSell  = "SELL"
	DirectionLong  = "LONG"
	DirectionShort = "SHORT"
)

// TradeSignal is a structured trade recommendation extracted from a message.
// All numeric fields are optional since extraction may be partial, but
// Instrument and Direction must be present for the signal to be valid.
type TradeSignal struct {
	Instrument string   `json:"instrument"`
	Direction  string   `json:"direction"`
	EntryPrice *float64 `json:"entry_price,omitempty"`
	StopLoss   *float64 `json:"stop_loss,omitempty"`
	TakeProfit *float64 `json:"take_profit,omitempty"`
	RiskReward string   `json:"risk_reward,omitempty"`
	Timeframe  string   `json:"timeframe,omitempty"`
	Analysis   string   `json:"analysis,omitempty"`
	Confidence float64  `json:"confidence"`
}

// Valid reports whether the signal carries the minimum required fields.
func (s *TradeSignal) Valid() bool {
	return s.Instrument != "" && s.Direction != ""
}

// DeriveRiskReward computes the risk/reward ratio from entry, stop loss and
// take profit when all three are present and leaves it untouched otherwise.
func (s *TradeSignal) DeriveRiskReward() {
	if s.RiskReward != "" || s.EntryPrice == nil || s.StopLoss == nil || s.TakeProfit == nil {
		return
	}
	risk := *s.EntryPrice - *s.StopLoss
	if risk < 0 {
		risk = -risk
	}
	reward := *s.TakeProfit - *s.EntryPrice
	if reward < 0 {
		reward = -reward
	}
	if risk == 0 {
		return
	}
	s.RiskReward = fmt.Sprintf("1:%.1f", reward/risk)
}

// SignalRecord is the persisted form of an extracted signal, kept as an
// audit trail alongside the raw message text.
type SignalRecord struct {
	ID         uint           `json:"id" gorm:"primaryKey"`
	SourceID   string         `json:"source_id"`
	ChannelID  string         `json:"channel_id" gorm:"index"`
	MessageID  string         `json:"message_id"`
	Sender     string         `json:"sender"`
	Instrument string         `json:"instrument" gorm:"index"`
	Direction  string         `json:"direction"`
	EntryPrice *float64       `json:"entry_price"`
	StopLoss   *float64       `json:"stop_loss"`
	TakeProfit *float64       `json:"take_profit"`
	RiskReward string         `json:"risk_reward"`
	Timeframe  string         `json:"timeframe"`
	Confidence float64        `json:"confidence"`
	Analysis   string         `json:"analysis" gorm:"type:text"`
	RawText    string         `json:"raw_text" gorm:"type:text"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	DeletedAt  gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}

// NewSignalRecord builds a SignalRecord from an extracted signal and its source message.
func NewSignalRecord(msg RawMessage, sig TradeSignal) *SignalRecord {
	return &SignalRecord{
		SourceID:   msg.SourceID,
		ChannelID:  msg.ChannelID,
		MessageID:  msg.MessageID,
		Sender:     msg.Sender,
		Instrument: sig.Instrument,
		Direction:  sig.Direction,
		EntryPrice: sig.EntryPrice,
		StopLoss:   sig.StopLoss,
		TakeProfit: sig.TakeProfit,
		RiskReward: sig.RiskReward,
		Timeframe:  sig.Timeframe,
		Confidence: sig.Confidence,
		Analysis:   sig.Analysis,
		RawText:    msg.Text,
	}
}

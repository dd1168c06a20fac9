package extractor

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"github.com/quantfeed/signal-scout/internal/models"
)

// Pattern-based extraction used when the inference service is not
// configured or the app runs in test mode. Far less capable than the
// model-backed extractor but deterministic and free.
var (
	pairPattern      = regexp.MustCompile(`(XAU|XAG|BTC|ETH|EUR|GBP|USD|JPY|CHF|CAD|AUD|NZD)[\/\-\s]?(USD|EUR|GBP|JPY|CHF|CAD|AUD|NZD)`)
	directionPattern = regexp.MustCompile(`\b(BUY|SELL|LONG|SHORT)\b`)
	entryPattern     = regexp.MustCompile(`(?:ENTRY|ENTER|@|AT)[:\s]*([0-9]+\.?[0-9]*)`)
	stopPattern      = regexp.MustCompile(`(?:SL|STOP\s*LOSS|STOPLOSS|STOP)[:\s]*([0-9]+\.?[0-9]*)`)
	targetPattern    = regexp.MustCompile(`(?:TP|TAKE\s*PROFIT|TAKEPROFIT|TARGET|TGT)[:\s]*([0-9]+\.?[0-9]*)`)
	timeframePattern = regexp.MustCompile(`\b(?:[0-9]+(?:M(?:IN)?|H(?:R)?|D(?:AY)?|W(?:EEK)?)|[MHD][0-9]+)\b`)
)

// FallbackExtractor extracts signals with regular expressions instead of an
// inference call. Confidence accumulates 0.2 per populated field.
type FallbackExtractor struct {
	analysisMax int
}

// NewFallbackExtractor creates a pattern-based extractor.
func NewFallbackExtractor(analysisMax int) *FallbackExtractor {
	return &FallbackExtractor{analysisMax: analysisMax}
}

// Extract scans the message text for instrument, direction and price levels.
func (e *FallbackExtractor) Extract(_ context.Context, msg models.RawMessage) (models.TradeSignal, error) {
	upper := strings.ToUpper(msg.Text)

	var sig models.TradeSignal

	if strings.Contains(upper, "GOLD") {
		sig.Instrument = "XAUUSD"
	} else if m := pairPattern.FindStringSubmatch(upper); m != nil {
		sig.Instrument = m[1] + m[2]
	}
	if m := directionPattern.FindStringSubmatch(upper); m != nil {
		sig.Direction = m[1]
	}
	sig.EntryPrice = firstPrice(entryPattern, upper)
	sig.StopLoss = firstPrice(stopPattern, upper)
	sig.TakeProfit = firstPrice(targetPattern, upper)
	if m := timeframePattern.FindString(upper); m != "" {
		sig.Timeframe = m
	}

	if sig.Instrument != "" {
		sig.Confidence += 0.2
	}
	if sig.Direction != "" {
		sig.Confidence += 0.2
	}
	if sig.EntryPrice != nil {
		sig.Confidence += 0.2
	}
	if sig.StopLoss != nil {
		sig.Confidence += 0.2
	}
	if sig.TakeProfit != nil {
		sig.Confidence += 0.2
	}

	if !sig.Valid() {
		return models.TradeSignal{}, ErrNoSignal
	}

	sig.Analysis = msg.Text
	if e.analysisMax > 0 && len(sig.Analysis) > e.analysisMax {
		sig.Analysis = sig.Analysis[:e.analysisMax]
	}
	sig.DeriveRiskReward()
	return sig, nil
}

func firstPrice(re *regexp.Regexp, text string) *float64 {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return nil
	}
	return &v
}

package extractor

import (
	"strconv"
	"strings"

	"github.com/quantfeed/signal-scout/internal/models"
)

// notAvailable values a model may emit for fields it could not read.
var notAvailable = map[string]bool{
	"": true, "N/A": true, "NA": true, "NONE": true,
	"NOT SPECIFIED": true, "NOT VISIBLE": true, "MANUAL REVIEW": true,
}

// ParseResponse parses a labeled-field inference response into a TradeSignal.
// Any response that does not yield both an instrument and a direction is
// rejected: ErrMalformedResponse when no labels were found at all,
// ErrNoSignal when labels parsed but the required fields were absent.
func ParseResponse(text string) (models.TradeSignal, error) {
	var sig models.TradeSignal

	fields := 0
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(strings.ReplaceAll(line, "*", ""))
		idx := strings.Index(line, ":")
		if idx < 0 {
			continue
		}
		label := strings.ToUpper(strings.TrimSpace(line[:idx]))
		value := strings.TrimSpace(line[idx+1:])

		switch label {
		case "INSTRUMENT":
			sig.Instrument = normalizeField(value)
			fields++
		case "DIRECTION":
			sig.Direction = normalizeDirection(value)
			fields++
		case "ENTRY", "ENTRY PRICE":
			sig.EntryPrice = parsePrice(value)
			fields++
		case "STOP LOSS", "SL":
			sig.StopLoss = parsePrice(value)
			fields++
		case "TAKE PROFIT", "TP":
			sig.TakeProfit = parsePrice(value)
			fields++
		case "TIMEFRAME":
			sig.Timeframe = normalizeField(value)
			fields++
		case "CONFIDENCE":
			if v, err := strconv.ParseFloat(strings.TrimSuffix(value, "%"), 64); err == nil {
				if v > 1 {
					v /= 100
				}
				sig.Confidence = v
			}
			fields++
		case "ANALYSIS":
			sig.Analysis = value
			fields++
		}
	}

	if fields == 0 {
		return models.TradeSignal{}, ErrMalformedResponse
	}
	if !sig.Valid() {
		return models.TradeSignal{}, ErrNoSignal
	}

	sig.DeriveRiskReward()
	return sig, nil
}

func normalizeField(value string) string {
	upper := strings.ToUpper(strings.TrimSpace(value))
	if notAvailable[upper] {
		return ""
	}
	return strings.TrimSpace(value)
}

func normalizeDirection(value string) string {
	upper := strings.ToUpper(strings.TrimSpace(value))
	switch {
	case strings.HasPrefix(upper, models.DirectionBuy):
		return models.DirectionBuy
	case strings.HasPrefix(upper, models.DirectionSell):
		return models.DirectionSell
	case strings.HasPrefix(upper, models.DirectionLong):
		return models.DirectionLong
	case strings.HasPrefix(upper, models.DirectionShort):
		return models.DirectionShort
	}
	return ""
}

func parsePrice(value string) *float64 {
	upper := strings.ToUpper(strings.TrimSpace(value))
	if notAvailable[upper] {
		return nil
	}
	cleaned := strings.ReplaceAll(strings.TrimSpace(value), ",", "")
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return nil
	}
	return &v
}

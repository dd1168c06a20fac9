package extractor

import (
	"fmt"
	"strings"

	"github.com/quantfeed/signal-scout/internal/models"
)

// The output contract the inference service is asked to follow. The parser
// in this package accepts exactly these labels; anything else is malformed.
const outputContract = `Respond with EXACTLY these labeled lines and nothing else:
INSTRUMENT: <currency pair or asset symbol, e.g. EURUSD, XAUUSD>
DIRECTION: <BUY, SELL, LONG or SHORT>
ENTRY: <entry price or N/A>
STOP LOSS: <stop loss price or N/A>
TAKE PROFIT: <take profit price or N/A>
TIMEFRAME: <chart timeframe or N/A>
CONFIDENCE: <0.0 to 1.0>
ANALYSIS: <one short sentence on the setup>
Use N/A for any field not present in the message. Do not invent prices.`

// BuildTextPrompt creates the deterministic prompt for text-only extraction.
func BuildTextPrompt(msg models.RawMessage) string {
	var sb strings.Builder
	sb.WriteString("You are a forex trading analyst. Extract the trading signal from this chat message.\n\n")
	sb.WriteString(fmt.Sprintf("MESSAGE: %s\n", msg.Text))
	sb.WriteString(fmt.Sprintf("CHANNEL: %s\n", msg.ChannelID))
	sb.WriteString(fmt.Sprintf("SENDER: %s\n\n", msg.Sender))
	sb.WriteString("Look for instrument names (EURUSD, XAUUSD...), prices with decimals, ")
	sb.WriteString("and the keywords BUY, SELL, LONG, SHORT, ENTRY, SL, TP, TARGET.\n\n")
	sb.WriteString(outputContract)
	return sb.String()
}

// BuildChartPrompt creates the prompt for the vision-capable variant that
// reads a chart image alongside the message text.
func BuildChartPrompt(msg models.RawMessage) string {
	var sb strings.Builder
	sb.WriteString("You are analyzing a trade signal chart, typically from TradingView.\n")
	sb.WriteString("Identify the instrument at the top of the chart, the timeframe, and the\n")
	sb.WriteString("risk/reward tool: the boundary between the colored zones is the entry,\n")
	sb.WriteString("the far end of the red zone is the stop loss, the far end of the\n")
	sb.WriteString("blue/green zone is the take profit. A target zone above the entry means\n")
	sb.WriteString("BUY, below means SELL. Read exact levels off the right-hand price scale.\n\n")
	if msg.Text != "" {
		sb.WriteString(fmt.Sprintf("ACCOMPANYING MESSAGE: %s\n\n", msg.Text))
	}
	sb.WriteString(outputContract)
	return sb.String()
}

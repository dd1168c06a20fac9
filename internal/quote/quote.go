// Package quote enriches alerts with the current market price for
// instruments Binance quotes (crypto pairs and a few metals proxies).
// Lookup failures are logged and ignored; enrichment is best effort.
package quote

import (
	"context"
	"log"
	"strings"

	"github.com/adshao/go-binance/v2"
	"github.com/quantfeed/signal-scout/internal/config"
)

// priceLister is the slice of the Binance client the service uses.
type priceLister interface {
	Do(ctx context.Context, opts ...binance.RequestOption) ([]*binance.SymbolPrice, error)
}

// Service fetches spot prices from Binance public endpoints. No credentials
// are needed for ticker data.
type Service struct {
	cfg    config.QuoteConfig
	logger *log.Logger

	newLister func(symbol string) priceLister
}

// NewService creates a quote service. When cfg.Enabled is false every lookup
// returns the empty string.
func NewService(cfg config.QuoteConfig, logger *log.Logger) *Service {
	client := binance.NewClient("", "")
	return &Service{
		cfg:    cfg,
		logger: logger,
		newLister: func(symbol string) priceLister {
			return client.NewListPricesService().Symbol(symbol)
		},
	}
}

// CurrentPrice returns the latest traded price for the instrument, or ""
// when enrichment is disabled, the instrument has no Binance symbol, or the
// lookup fails.
func (s *Service) CurrentPrice(ctx context.Context, instrument string) string {
	if s == nil || !s.cfg.Enabled {
		return ""
	}
	symbol := binanceSymbol(instrument)
	if symbol == "" {
		return ""
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	prices, err := s.newLister(symbol).Do(ctx)
	if err != nil {
		s.logger.Printf("quote lookup for %s failed: %v", symbol, err)
		return ""
	}
	if len(prices) == 0 {
		return ""
	}
	return prices[0].Price
}

// binanceSymbol maps an extracted instrument name to a Binance spot symbol.
// Forex pairs are not listed on Binance and map to "".
func binanceSymbol(instrument string) string {
	upper := strings.ToUpper(strings.NewReplacer("/", "", "-", "", " ", "").Replace(instrument))
	switch upper {
	case "BTCUSD":
		return "BTCUSDT"
	case "ETHUSD":
		return "ETHUSDT"
	case "XAUUSD":
		return "PAXGUSDT" // tokenized gold as a gold-price proxy
	}
	if strings.HasSuffix(upper, "USDT") {
		return upper
	}
	return ""
}

package alpaca

import (
	"context"
	"net/http"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
	"github.com/shopspring/decimal"

	"github.com/mohamedammareid/finance/internal/config"
	"github.com/mohamedammareid/finance/internal/quote"
	"github.com/mohamedammareid/finance/pkg/trading"
)

type latestTradeClient interface {
	GetLatestTrade(symbol string, req marketdata.GetLatestTradeRequest) (*marketdata.Trade, error)
}

// QuoteProvider prices symbols with the latest trade reported by Alpaca.
type QuoteProvider struct {
	client latestTradeClient
	feed   marketdata.Feed
}

func NewQuoteProvider(cfg *config.Config) *QuoteProvider {
	client := marketdata.NewClient(marketdata.ClientOpts{
		APIKey:     cfg.AlpacaAPIKey,
		APISecret:  cfg.AlpacaAPISecret,
		Feed:       marketdata.Feed(cfg.AlpacaFeed),
		HTTPClient: &http.Client{
			Timeout: cfg.QuoteTimeout,
		},
	})

	return &QuoteProvider{
		client: client,
		feed:   marketdata.Feed(cfg.AlpacaFeed),
	}
}

func (p *QuoteProvider) Lookup(ctx context.Context, symbol string) (trading.Quote, error) {
	symbol = trading.NormalizeSymbol(symbol)
	if symbol == "" {
		return trading.Quote{}, quote.Unavailablef(symbol, "empty symbol")
	}

	type result struct {
		trade *marketdata.Trade
		err   error
	}
	done := make(chan result, 1)
	go func() {
		t, err := p.client.GetLatestTrade(symbol, marketdata.GetLatestTradeRequest{Feed: p.feed})
		done <- result{t, err}
	}()

	var res result
	select {
	case <-ctx.Done():
		return trading.Quote{}, quote.Unavailablef(symbol, "%v", ctx.Err())
	case res = <-done:
	}

	if res.err != nil {
		return trading.Quote{}, quote.Unavailablef(symbol, "%v", res.err)
	}
	if res.trade == nil {
		return trading.Quote{}, quote.Unavailablef(symbol, "no trades reported")
	}

	asOf := res.trade.Timestamp.UTC()
	if asOf.IsZero() {
		asOf = time.Now().UTC()
	}

	q := trading.Quote{
		Symbol: symbol,
		Name:   symbol,
		Price:  decimal.NewFromFloat(res.trade.Price),
		AsOf:   asOf,
	}
	if err := quote.Validate(q); err != nil {
		return trading.Quote{}, err
	}
	return q, nil
}

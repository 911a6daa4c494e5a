package quote

import (
	"context"
	"time"

	finance "github.com/piquette/finance-go"
	yquote "github.com/piquette/finance-go/quote"
	"github.com/shopspring/decimal"

	"github.com/mohamedammareid/finance/pkg/trading"
)

type YahooProvider struct {
	get func(symbol string) (*finance.Quote, error)
	now func() time.Time
}

func NewYahooProvider() *YahooProvider {
	return &YahooProvider{get: yquote.Get, now: time.Now}
}

func (p *YahooProvider) Lookup(ctx context.Context, symbol string) (trading.Quote, error) {
	symbol = trading.NormalizeSymbol(symbol)
	if symbol == "" {
		return trading.Quote{}, unavailable(symbol, "empty symbol")
	}

	type result struct {
		q   *finance.Quote
		err error
	}
	// finance-go has no context support, so the call is raced against ctx.
	done := make(chan result, 1)
	go func() {
		q, err := p.get(symbol)
		done <- result{q, err}
	}()

	var res result
	select {
	case <-ctx.Done():
		return trading.Quote{}, unavailable(symbol, "%v", ctx.Err())
	case res = <-done:
	}

	if res.err != nil {
		return trading.Quote{}, unavailable(symbol, "%v", res.err)
	}
	if res.q == nil {
		return trading.Quote{}, unavailable(symbol, "unknown symbol")
	}

	asOf := p.now().UTC()
	if res.q.RegularMarketTime > 0 {
		asOf = time.Unix(int64(res.q.RegularMarketTime), 0).UTC()
	}

	q := trading.Quote{
		Symbol: trading.NormalizeSymbol(res.q.Symbol),
		Name:   res.q.ShortName,
		Price:  decimal.NewFromFloat(res.q.RegularMarketPrice),
		AsOf:   asOf,
	}
	if err := Validate(q); err != nil {
		return trading.Quote{}, err
	}
	return q, nil
}

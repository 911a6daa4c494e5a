// Package portfolio derives holdings from the trade ledger and values them
// at current prices.
package portfolio

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/mohamedammareid/finance/internal/logger"
	"github.com/mohamedammareid/finance/pkg/interfaces"
	"github.com/mohamedammareid/finance/pkg/trading"
)

const maxConcurrentLookups = 4

// Holding is one position priced at the current quote. Priced is false when
// the quote could not be obtained, in which case Price and Value are zero.
type Holding struct {
	Symbol string          `json:"symbol"`
	Name   string          `json:"name"`
	Shares int64           `json:"shares"`
	Price  decimal.Decimal `json:"price"`
	Value  decimal.Decimal `json:"value"`
	Priced bool            `json:"priced"`
}

type Valuation struct {
	Holdings      []Holding       `json:"holdings"`
	Cash          decimal.Decimal `json:"cash"`
	HoldingsValue decimal.Decimal `json:"holdings_value"`
	Total         decimal.Decimal `json:"total"`
}

type Calculator struct {
	ledger interfaces.Ledger
	quotes interfaces.QuoteProvider
	log    *logger.Logger
}

func NewCalculator(ledger interfaces.Ledger, quotes interfaces.QuoteProvider, log *logger.Logger) *Calculator {
	return &Calculator{
		ledger: ledger,
		quotes: quotes,
		log:    log.Component("portfolio"),
	}
}

// Positions lists the symbols with a non-zero net position, ordered by symbol.
func (c *Calculator) Positions(ctx context.Context, accountID int64) ([]trading.Position, error) {
	positions, err := c.ledger.Positions(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("load positions: %w", err)
	}
	return positions, nil
}

// Valuation prices every position. A failed lookup leaves that holding
// unpriced and out of the totals instead of failing the whole valuation.
func (c *Calculator) Valuation(ctx context.Context, accountID int64) (Valuation, error) {
	cash, err := c.ledger.CashBalance(ctx, accountID)
	if err != nil {
		return Valuation{}, fmt.Errorf("load cash: %w", err)
	}
	positions, err := c.Positions(ctx, accountID)
	if err != nil {
		return Valuation{}, err
	}

	holdings := make([]Holding, len(positions))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentLookups)
	for i, p := range positions {
		holdings[i] = Holding{Symbol: p.Symbol, Name: p.Symbol, Shares: p.Shares}
		g.Go(func() error {
			q, err := c.quotes.Lookup(gctx, p.Symbol)
			if err != nil {
				c.log.Warn("could not price holding",
					logger.Int64("account_id", accountID),
					logger.String("symbol", p.Symbol),
					logger.Error(err))
				return nil
			}
			h := &holdings[i]
			if q.Name != "" {
				h.Name = q.Name
			}
			h.Price = q.Price
			h.Value = q.Price.Mul(decimal.NewFromInt(p.Shares))
			h.Priced = true
			return nil
		})
	}
	_ = g.Wait()

	v := Valuation{
		Holdings:      holdings,
		Cash:          cash,
		HoldingsValue: decimal.Zero,
	}
	for _, h := range holdings {
		if h.Priced {
			v.HoldingsValue = v.HoldingsValue.Add(h.Value)
		}
	}
	v.Total = v.Cash.Add(v.HoldingsValue)
	return v, nil
}

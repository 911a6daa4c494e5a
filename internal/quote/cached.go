package quote

import (
	"context"
	"fmt"
	"time"

	"github.com/dgraph-io/ristretto"

	"github.com/mohamedammareid/finance/internal/metrics"
	"github.com/mohamedammareid/finance/pkg/interfaces"
	"github.com/mohamedammareid/finance/pkg/trading"
)

// Cached serves recent quotes from memory. It is meant for read paths such as
// portfolio valuation; settlement must always price against the provider.
type Cached struct {
	provider interfaces.QuoteProvider
	cache    *ristretto.Cache
	ttl      time.Duration
}

func NewCached(provider interfaces.QuoteProvider, ttl time.Duration) (*Cached, error) {
	c, err := ristretto.NewCache(&ristretto.Config{
		NumCounters:        1e4,
		MaxCost:            1 << 10, // quotes, one per symbol
		BufferItems:        64,
		IgnoreInternalCost: true,
	})
	if err != nil {
		return nil, fmt.Errorf("create quote cache: %w", err)
	}
	return &Cached{provider: provider, cache: c, ttl: ttl}, nil
}

func (c *Cached) Lookup(ctx context.Context, symbol string) (trading.Quote, error) {
	symbol = trading.NormalizeSymbol(symbol)
	if v, ok := c.cache.Get(symbol); ok {
		if q, ok := v.(trading.Quote); ok {
			metrics.QuoteCacheHitsTotal.Inc()
			return q, nil
		}
	}

	q, err := c.provider.Lookup(ctx, symbol)
	if err != nil {
		return trading.Quote{}, err
	}
	if c.ttl > 0 {
		c.cache.SetWithTTL(symbol, q, 1, c.ttl)
	}
	return q, nil
}

// Wait blocks until pending cache writes are visible.
func (c *Cached) Wait() {
	c.cache.Wait()
}

func (c *Cached) Close() {
	c.cache.Close()
}

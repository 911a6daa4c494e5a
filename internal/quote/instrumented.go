package quote

import (
	"context"

	"github.com/mohamedammareid/finance/internal/logger"
	"github.com/mohamedammareid/finance/internal/metrics"
	"github.com/mohamedammareid/finance/pkg/interfaces"
	"github.com/mohamedammareid/finance/pkg/trading"
)

// Instrumented records latency and failures of the wrapped provider.
type Instrumented struct {
	name     string
	provider interfaces.QuoteProvider
	log      *logger.Logger
}

func NewInstrumented(name string, provider interfaces.QuoteProvider, log *logger.Logger) *Instrumented {
	return &Instrumented{
		name:     name,
		provider: provider,
		log:      log.Component("quote").With(logger.String("provider", name)),
	}
}

func (i *Instrumented) Lookup(ctx context.Context, symbol string) (trading.Quote, error) {
	metrics.QuoteLookupsTotal.WithLabelValues(i.name).Inc()
	timer := metrics.NewTimer(metrics.QuoteLookupDuration.WithLabelValues(i.name))

	q, err := i.provider.Lookup(ctx, symbol)
	elapsed := timer.ObserveDuration()
	if err != nil {
		metrics.QuoteFailuresTotal.WithLabelValues(i.name).Inc()
		i.log.Warn("quote lookup failed",
			logger.String("symbol", symbol),
			logger.Duration("elapsed", elapsed),
			logger.Error(err))
		return trading.Quote{}, err
	}

	i.log.Debug("quote resolved",
		logger.String("symbol", q.Symbol),
		logger.Decimal("price", q.Price),
		logger.Duration("elapsed", elapsed))
	return q, nil
}

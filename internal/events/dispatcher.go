// Package events delivers settled trade events to downstream sinks.
package events

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mohamedammareid/finance/internal/logger"
	"github.com/mohamedammareid/finance/internal/metrics"
	"github.com/mohamedammareid/finance/internal/utils"
	"github.com/mohamedammareid/finance/pkg/interfaces"
	"github.com/mohamedammareid/finance/pkg/trading"
)

const publishTimeout = 5 * time.Second

type Dispatcher struct {
	publishers []interfaces.Publisher
	retry      utils.RetryConfig
	logger     *logger.Logger
}

func NewDispatcher(publishers []interfaces.Publisher, retry utils.RetryConfig, log *logger.Logger) *Dispatcher {
	return &Dispatcher{
		publishers: publishers,
		retry:      retry,
		logger:     log.Component("events"),
	}
}

// Start publishes every event from eventChan to all sinks until the channel
// is closed or ctx is done, then closes the sinks. A sink that keeps failing
// loses the event; the others are unaffected.
func (d *Dispatcher) Start(ctx context.Context, eventChan <-chan trading.TradeEvent) error {
	d.logger.Info("event dispatcher starting",
		logger.Int("sinks", len(d.publishers)),
		logger.Int("input_channel_buffer", cap(eventChan)))

	defer d.close()

	for {
		select {
		case event, ok := <-eventChan:
			if !ok {
				d.logger.Info("event channel closed, stopping dispatcher")
				return nil
			}
			metrics.UpdateChannelMetrics(len(eventChan), cap(eventChan), metrics.EventsChanSize, metrics.EventsChanCapacity)
			d.dispatch(ctx, event)

		case <-ctx.Done():
			d.drain(eventChan)
			d.logger.Info("context cancelled, dispatcher finished")
			return nil
		}
	}
}

// drain publishes events that were already queued at shutdown, each under
// its own timeout.
func (d *Dispatcher) drain(eventChan <-chan trading.TradeEvent) {
	for {
		select {
		case event, ok := <-eventChan:
			if !ok {
				return
			}
			ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
			d.dispatch(ctx, event)
			cancel()
		default:
			return
		}
	}
}

func (d *Dispatcher) dispatch(ctx context.Context, event trading.TradeEvent) {
	g, gctx := errgroup.WithContext(ctx)
	for _, p := range d.publishers {
		g.Go(func() error {
			d.publish(gctx, p, event)
			return nil
		})
	}
	_ = g.Wait()
}

func (d *Dispatcher) publish(ctx context.Context, p interfaces.Publisher, event trading.TradeEvent) {
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	op := func(ctx context.Context) error {
		return p.Publish(ctx, event)
	}
	log := d.logger.With(logger.String("sink", p.Name()), logger.String("event_id", event.ID))
	if err := utils.RetryWithConfig(ctx, op, d.retry, log); err != nil {
		metrics.EventsPublishErrorsTotal.WithLabelValues(p.Name()).Inc()
		log.Error("failed to publish trade event",
			logger.Int64("trade_id", event.Trade.ID),
			logger.String("symbol", event.Trade.Symbol),
			logger.Error(err))
		return
	}

	metrics.EventsPublishedTotal.WithLabelValues(p.Name()).Inc()
	log.Debug("published trade event",
		logger.Int64("trade_id", event.Trade.ID),
		logger.String("symbol", event.Trade.Symbol))
}

func (d *Dispatcher) close() {
	for _, p := range d.publishers {
		if err := p.Close(); err != nil {
			d.logger.Error("error closing sink", logger.String("sink", p.Name()), logger.Error(err))
		}
	}
}

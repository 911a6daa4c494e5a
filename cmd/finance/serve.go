package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mohamedammareid/finance/internal/accounts"
	"github.com/mohamedammareid/finance/internal/api"
	"github.com/mohamedammareid/finance/internal/config"
	"github.com/mohamedammareid/finance/internal/events"
	"github.com/mohamedammareid/finance/internal/infrastructure/alpaca"
	"github.com/mohamedammareid/finance/internal/infrastructure/amqp"
	"github.com/mohamedammareid/finance/internal/infrastructure/kafka"
	infraredis "github.com/mohamedammareid/finance/internal/infrastructure/redis"
	"github.com/mohamedammareid/finance/internal/ledger"
	"github.com/mohamedammareid/finance/internal/logger"
	"github.com/mohamedammareid/finance/internal/metrics"
	"github.com/mohamedammareid/finance/internal/portfolio"
	"github.com/mohamedammareid/finance/internal/quote"
	"github.com/mohamedammareid/finance/internal/session"
	"github.com/mohamedammareid/finance/internal/settlement"
	"github.com/mohamedammareid/finance/internal/utils"
	"github.com/mohamedammareid/finance/pkg/interfaces"
	"github.com/mohamedammareid/finance/pkg/trading"
)

func runServe(ctx context.Context, cfg *config.Config, log *logger.Logger) error {
	log.Info("starting finance service")

	store, err := ledger.Open(ctx, cfg.DBDriver, cfg.DatabaseDSN)
	if err != nil {
		return fmt.Errorf("open ledger: %w", err)
	}
	defer store.Close()

	provider, err := newQuoteProvider(cfg, log)
	if err != nil {
		return err
	}
	cached, err := quote.NewCached(provider, cfg.QuoteCacheTTL)
	if err != nil {
		return err
	}
	defer cached.Close()

	sessions, closeSessions, err := newSessionStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeSessions()

	publishers, err := newPublishers(ctx, cfg, log)
	if err != nil {
		return err
	}

	eventChan := make(chan trading.TradeEvent, cfg.EventsChanBuff)
	engine := settlement.NewEngine(store, provider, eventChan, log)

	handler := api.NewServer(api.Deps{
		Accounts:  accounts.NewService(store, cfg.StartingCash, log),
		Sessions:  sessions,
		Engine:    engine,
		Portfolio: portfolio.NewCalculator(store, cached, log),
		Ledger:    store,
		Quotes:    cached,
		Health:    store,
	}, log)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	stopCollector := metrics.StartRuntimeMetricsCollector(ctx, cfg.MetricsInterval)
	defer stopCollector()

	// The dispatcher outlives the request context so queued events are
	// delivered after the listener stops.
	dispatchCtx, cancelDispatch := context.WithCancel(context.WithoutCancel(ctx))
	defer cancelDispatch()
	dispatcher := events.NewDispatcher(publishers, utils.DefaultPublishRetryConfig(), log)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return dispatcher.Start(dispatchCtx, eventChan)
	})

	g.Go(func() error {
		log.Info("http server listening", logger.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down http server", logger.Duration("timeout", cfg.ShutdownTimeout))

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			// Handlers may still be settling; leave the channel open and
			// make the dispatcher drain what it has.
			cancelDispatch()
			return fmt.Errorf("shutdown http server: %w", err)
		}
		close(eventChan)
		return nil
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("finance service stopped with error", logger.Error(err))
		return err
	}

	log.Info("finance service stopped")
	return nil
}

// newQuoteProvider builds the configured upstream provider. Settlement prices
// through it directly; read paths wrap it in a cache.
func newQuoteProvider(cfg *config.Config, log *logger.Logger) (interfaces.QuoteProvider, error) {
	var provider interfaces.QuoteProvider
	switch cfg.QuoteProvider {
	case config.ProviderYahoo:
		provider = quote.NewYahooProvider()
	case config.ProviderIEX:
		provider = quote.NewIEXProvider(cfg.IEXBaseURL, cfg.IEXToken, cfg.QuoteTimeout)
	case config.ProviderAlpaca:
		provider = alpaca.NewQuoteProvider(cfg)
	default:
		return nil, fmt.Errorf("%w: unknown quote provider %q", config.ErrInvalidConfig, cfg.QuoteProvider)
	}
	return quote.NewInstrumented(cfg.QuoteProvider, provider, log), nil
}

func newSessionStore(ctx context.Context, cfg *config.Config, log *logger.Logger) (interfaces.SessionStore, func(), error) {
	if cfg.RedisSessionAddr == "" {
		return session.NewMemoryStore(cfg.SessionTTL), func() {}, nil
	}

	client, err := infraredis.NewRedisSessionClient(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to session redis: %w", err)
	}
	log.Info("sessions stored in redis", logger.String("addr", cfg.RedisSessionAddr))

	closeFn := func() {
		if err := client.Close(); err != nil {
			log.Warn("failed to close session redis", logger.Error(err))
		}
	}
	return session.NewRedisStore(client, cfg.SessionTTL), closeFn, nil
}

// newPublishers connects every configured event sink. On failure the sinks
// already connected are closed.
func newPublishers(ctx context.Context, cfg *config.Config, log *logger.Logger) (publishers []interfaces.Publisher, err error) {
	defer func() {
		if err == nil {
			return
		}
		for _, p := range publishers {
			_ = p.Close()
		}
		publishers = nil
	}()

	if len(cfg.KafkaBrokers) > 0 {
		producer, err := kafka.NewKafkaSyncProducer(cfg)
		if err != nil {
			return publishers, fmt.Errorf("create kafka producer: %w", err)
		}
		publishers = append(publishers, events.NewKafkaPublisher(producer))
	}

	if cfg.RedisPubsubAddr != "" {
		client, err := infraredis.NewRedisPubsubClient(ctx, cfg)
		if err != nil {
			return publishers, fmt.Errorf("connect to pubsub redis: %w", err)
		}
		publishers = append(publishers, events.NewRedisPublisher(client, cfg.RedisPubsubChannel))
	}

	if cfg.AMQPURL != "" {
		publisher, err := amqp.NewPublisher(cfg)
		if err != nil {
			return publishers, err
		}
		publishers = append(publishers, publisher)
	}

	names := make([]string, 0, len(publishers))
	for _, p := range publishers {
		names = append(names, p.Name())
	}
	log.Info("event sinks configured", logger.Any("sinks", names))

	return publishers, nil
}

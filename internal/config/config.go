package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/mohamedammareid/finance/internal/logger"
	"github.com/shopspring/decimal"
)

const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "pgx"

	ProviderYahoo  = "yahoo"
	ProviderIEX    = "iex"
	ProviderAlpaca = "alpaca"

	EVENTS_CHAN_BUFF_MIN = 1
	QUOTE_TIMEOUT_MIN    = 100 * time.Millisecond
)

var ErrInvalidConfig = errors.New("invalid configuration")

type Config struct {
	HTTPAddr        string        `env:"HTTP_ADDR" envDefault:":8080"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`

	DBDriver    string `env:"DB_DRIVER" envDefault:"sqlite3"`
	DatabaseDSN string `env:"DATABASE_DSN" envDefault:"finance.db"`

	StartingCashRaw string          `env:"STARTING_CASH" envDefault:"10000.00"`
	StartingCash    decimal.Decimal

	QuoteProvider string        `env:"QUOTE_PROVIDER" envDefault:"yahoo"`
	QuoteTimeout  time.Duration `env:"QUOTE_TIMEOUT" envDefault:"5s"`
	QuoteCacheTTL time.Duration `env:"QUOTE_CACHE_TTL" envDefault:"15s"`

	IEXToken   string `env:"API_KEY"`
	IEXBaseURL string `env:"IEX_BASE_URL" envDefault:"https://cloud.iexapis.com/stable"`

	AlpacaAPIKey    string `env:"ALPACA_API_KEY"`
	AlpacaAPISecret string `env:"ALPACA_API_SECRET"`
	AlpacaFeed      string `env:"ALPACA_FEED" envDefault:"iex"`

	SessionTTL       time.Duration `env:"SESSION_TTL" envDefault:"24h"`
	RedisSessionAddr string        `env:"REDIS_SESSION_ADDR"`
	RedisSessionUser string        `env:"REDIS_SESSION_UN"`
	RedisSessionPw   string        `env:"REDIS_SESSION_PW"`
	RedisSessionDB   int           `env:"REDIS_SESSION_DB" envDefault:"0"`

	RedisPubsubAddr    string `env:"REDIS_PUBSUB_ADDR"`
	RedisPubsubUser    string `env:"REDIS_PUBSUB_UN"`
	RedisPubsubPw      string `env:"REDIS_PUBSUB_PW"`
	RedisPubsubChannel string `env:"REDIS_PUBSUB_CHANNEL" envDefault:"trades.settled"`

	KafkaBrokers     []string `env:"KAFKA_BROKERS" envSeparator:","`
	KafkaTopicTrades string   `env:"KAFKA_TOPIC_TRADES" envDefault:"trades-settled"`

	AMQPURL      string `env:"AMQP_URL"`
	AMQPExchange string `env:"AMQP_EXCHANGE" envDefault:"trades.settled"`

	EventsChanBuff  int           `env:"EVENTS_CHAN_BUFF" envDefault:"256"`
	MetricsInterval time.Duration `env:"METRICS_INTERVAL" envDefault:"15s"`
}

// LoadConfig parses the configuration from environ. A nil map reads the
// process environment.
func LoadConfig(environ map[string]string, log *logger.Logger) (*Config, error) {
	log.Info("loading configuration from environment")

	cfg := &Config{}
	if err := env.ParseWithOptions(cfg, env.Options{Environment: environ}); err != nil {
		log.Error("could not parse environment", logger.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	cfg.DBDriver = strings.ToLower(strings.TrimSpace(cfg.DBDriver))
	switch cfg.DBDriver {
	case DriverSQLite, DriverPostgres:
	case "sqlite", "":
		cfg.DBDriver = DriverSQLite
	case "postgres", "postgresql":
		cfg.DBDriver = DriverPostgres
	default:
		return nil, fmt.Errorf("%w: DB_DRIVER %q is not supported", ErrInvalidConfig, cfg.DBDriver)
	}
	if strings.TrimSpace(cfg.DatabaseDSN) == "" {
		return nil, fmt.Errorf("%w: DATABASE_DSN is required", ErrInvalidConfig)
	}

	cash, err := decimal.NewFromString(strings.TrimSpace(cfg.StartingCashRaw))
	if err != nil {
		return nil, fmt.Errorf("%w: STARTING_CASH can't be parsed to a decimal: %v", ErrInvalidConfig, err)
	}
	if cash.IsNegative() {
		return nil, fmt.Errorf("%w: STARTING_CASH must not be negative", ErrInvalidConfig)
	}
	cfg.StartingCash = cash

	cfg.QuoteProvider = strings.ToLower(strings.TrimSpace(cfg.QuoteProvider))
	switch cfg.QuoteProvider {
	case ProviderYahoo:
	case ProviderIEX:
		if cfg.IEXToken == "" {
			return nil, fmt.Errorf("%w: API_KEY is required for the iex quote provider", ErrInvalidConfig)
		}
	case ProviderAlpaca:
		if cfg.AlpacaAPIKey == "" || cfg.AlpacaAPISecret == "" {
			return nil, fmt.Errorf("%w: ALPACA_API_KEY and ALPACA_API_SECRET are required for the alpaca quote provider", ErrInvalidConfig)
		}
	default:
		return nil, fmt.Errorf("%w: QUOTE_PROVIDER %q is not supported", ErrInvalidConfig, cfg.QuoteProvider)
	}

	if cfg.QuoteTimeout < QUOTE_TIMEOUT_MIN {
		log.Warn("quote timeout too low, using minimum value",
			logger.Duration("provided", cfg.QuoteTimeout),
			logger.Duration("min", QUOTE_TIMEOUT_MIN))
		cfg.QuoteTimeout = QUOTE_TIMEOUT_MIN
	}
	if cfg.QuoteCacheTTL < 0 {
		log.Warn("negative quote cache ttl, disabling the cache",
			logger.Duration("provided", cfg.QuoteCacheTTL))
		cfg.QuoteCacheTTL = 0
	}
	if cfg.EventsChanBuff < EVENTS_CHAN_BUFF_MIN {
		log.Warn("events channel buffer too small, using minimum value",
			logger.Int("provided", cfg.EventsChanBuff),
			logger.Int("min", EVENTS_CHAN_BUFF_MIN))
		cfg.EventsChanBuff = EVENTS_CHAN_BUFF_MIN
	}

	cfg.KafkaBrokers = filterEmpty(cfg.KafkaBrokers)
	if len(cfg.KafkaBrokers) == 0 {
		log.Info("no Kafka brokers specified, settled trades will not be published to kafka")
	}
	if cfg.RedisSessionAddr == "" {
		log.Warn("no redis session address specified, sessions are kept in memory")
	}

	// Log the configuration (hiding sensitive values)
	log.Info("configuration loaded successfully",
		logger.String("http_addr", cfg.HTTPAddr),
		logger.String("db_driver", cfg.DBDriver),
		logger.Decimal("starting_cash", cfg.StartingCash),
		logger.String("quote_provider", cfg.QuoteProvider),
		logger.Duration("quote_timeout", cfg.QuoteTimeout),
		logger.Duration("quote_cache_ttl", cfg.QuoteCacheTTL),
		logger.Duration("session_ttl", cfg.SessionTTL),
		logger.String("redis_session_addr", cfg.RedisSessionAddr),
		logger.String("redis_pubsub_addr", cfg.RedisPubsubAddr),
		logger.Any("kafka_brokers", cfg.KafkaBrokers),
		logger.String("kafka_topic", cfg.KafkaTopicTrades),
		logger.Bool("amqp_enabled", cfg.AMQPURL != ""),
		logger.Int("events_buff_size", cfg.EventsChanBuff))

	return cfg, nil
}

func filterEmpty(values []string) []string {
	var out []string
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

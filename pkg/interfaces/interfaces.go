package interfaces

import (
	"context"
	"time"

	"github.com/mohamedammareid/finance/pkg/trading"
	"github.com/shopspring/decimal"
)

type QuoteProvider interface {
	Lookup(ctx context.Context, symbol string) (trading.Quote, error)
}

// LedgerTx is the set of ledger operations that can take part in a single
// settlement transaction.
type LedgerTx interface {
	CashBalance(ctx context.Context, accountID int64) (decimal.Decimal, error)
	AdjustCash(ctx context.Context, accountID int64, delta decimal.Decimal) (decimal.Decimal, error)
	AppendTrade(ctx context.Context, accountID int64, symbol string, quantity int64, price decimal.Decimal) (trading.Trade, error)
	NetPosition(ctx context.Context, accountID int64, symbol string) (int64, error)
}

type Ledger interface {
	LedgerTx
	WithTx(ctx context.Context, fn func(tx LedgerTx) error) error
	Positions(ctx context.Context, accountID int64) ([]trading.Position, error)
	Trades(ctx context.Context, accountID int64, limit int) ([]trading.Trade, error)
}

type AccountStore interface {
	CreateAccount(ctx context.Context, username, passwordHash string, startingCash decimal.Decimal) (trading.Account, error)
	AccountByUsername(ctx context.Context, username string) (trading.Account, error)
	Account(ctx context.Context, id int64) (trading.Account, error)
}

type SessionStore interface {
	Create(ctx context.Context, accountID int64) (string, error)
	Lookup(ctx context.Context, token string) (int64, error)
	Delete(ctx context.Context, token string) error
}

// Publisher delivers settled trade events to one downstream sink.
type Publisher interface {
	Name() string
	Publish(ctx context.Context, event trading.TradeEvent) error
	Close() error
}

type PubsubClient interface {
	Publish(ctx context.Context, channel string, message any) error
	Close() error
}

// KeyValueClient is a string store with expiry. Get reports found=false for
// missing or expired keys instead of an error.
type KeyValueClient interface {
	Set(ctx context.Context, key string, value any, exp time.Duration) error
	Get(ctx context.Context, key string) (value string, found bool, err error)
	Del(ctx context.Context, key string) error
	Close() error
}

type KafkaProducer interface {
	SendMessage(ctx context.Context, key string, value []byte) (partition int32, offset int64, err error)
	Close() error
}

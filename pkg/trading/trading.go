package trading

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Side is the direction of a trade.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// Account is a registered user with a cash balance.
type Account struct {
	ID           int64
	Username     string
	PasswordHash string
	Cash         decimal.Decimal
	CreatedAt    time.Time
}

// Trade is an immutable ledger record. Quantity is signed: positive for
// buys, negative for sells.
type Trade struct {
	ID         int64           `json:"id"`
	AccountID  int64           `json:"account_id"`
	Symbol     string          `json:"symbol"`
	Quantity   int64           `json:"quantity"`
	Price      decimal.Decimal `json:"price"`
	ExecutedAt time.Time       `json:"executed_at"`
}

// Side reports whether the trade bought or sold shares.
func (t Trade) Side() Side {
	if t.Quantity < 0 {
		return SideSell
	}
	return SideBuy
}

// Amount is the absolute cash value of the trade.
func (t Trade) Amount() decimal.Decimal {
	return t.Price.Mul(decimal.NewFromInt(t.Quantity)).Abs()
}

// Quote is a point-in-time price for a symbol. It is never persisted.
type Quote struct {
	Symbol string          `json:"symbol"`
	Name   string          `json:"name"`
	Price  decimal.Decimal `json:"price"`
	AsOf   time.Time       `json:"as_of"`
}

// Position is the net number of shares an account holds in one symbol.
type Position struct {
	Symbol string `json:"symbol"`
	Shares int64  `json:"shares"`
}

// TradeEvent is emitted once a trade has been settled.
type TradeEvent struct {
	ID        string          `json:"id"`
	Side      Side            `json:"side"`
	Trade     Trade           `json:"trade"`
	Amount    decimal.Decimal `json:"amount"`
	CashAfter decimal.Decimal `json:"cash_after"`
}

// NormalizeSymbol trims and upper-cases a ticker so that storage and lookups
// always agree on the same spelling.
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

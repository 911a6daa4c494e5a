package settlement

import (
	"errors"

	"github.com/shopspring/decimal"

	"github.com/mohamedammareid/finance/pkg/trading"
)

// ErrPersistence wraps every failure of the ledger while settling. Nothing
// was written when it is returned.
var ErrPersistence = errors.New("settlement persistence failure")

type State string

const (
	StateValidating State = "validating"
	StatePriced     State = "priced"
	StateSettled    State = "settled"
	StateRejected   State = "rejected"
)

// Reason explains a rejection. It is empty for settled results.
type Reason string

const (
	ReasonInvalidInput       Reason = "invalid_input"
	ReasonQuoteUnavailable   Reason = "quote_unavailable"
	ReasonInsufficientFunds  Reason = "insufficient_funds"
	ReasonInsufficientShares Reason = "insufficient_shares"
)

// Result is the terminal outcome of a buy or sell request. Amount is the
// total cost of a buy or the proceeds of a sell; Cash is the balance after
// settlement.
type Result struct {
	State    State
	Reason   Reason
	Detail   string
	Side     trading.Side
	Symbol   string
	Quantity int64
	Price    decimal.Decimal
	Amount   decimal.Decimal
	Cash     decimal.Decimal
	Trade    trading.Trade
}

func (r Result) Settled() bool {
	return r.State == StateSettled
}

func rejected(side trading.Side, symbol string, quantity int64, reason Reason, detail string) Result {
	return Result{
		State:    StateRejected,
		Reason:   reason,
		Detail:   detail,
		Side:     side,
		Symbol:   symbol,
		Quantity: quantity,
	}
}

// Package settlement executes paper buy and sell orders against the ledger.
package settlement

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mohamedammareid/finance/internal/ledger"
	"github.com/mohamedammareid/finance/internal/logger"
	"github.com/mohamedammareid/finance/internal/metrics"
	"github.com/mohamedammareid/finance/pkg/interfaces"
	"github.com/mohamedammareid/finance/pkg/trading"
)

// Engine settles trades. Quotes are always fetched from the provider it was
// built with, so it must not be given a caching provider.
type Engine struct {
	ledger interfaces.Ledger
	quotes interfaces.QuoteProvider
	locks  *accountLocks
	events chan<- trading.TradeEvent
	log    *logger.Logger
}

// NewEngine builds an Engine. events may be nil, otherwise every settled
// trade is offered to it without blocking.
func NewEngine(ledger interfaces.Ledger, quotes interfaces.QuoteProvider, events chan<- trading.TradeEvent, log *logger.Logger) *Engine {
	if events != nil {
		metrics.EventsChanCapacity.Set(float64(cap(events)))
	}
	return &Engine{
		ledger: ledger,
		quotes: quotes,
		locks:  newAccountLocks(),
		events: events,
		log:    log.Component("settlement"),
	}
}

// Buy purchases quantity shares of symbol at the current quote.
func (e *Engine) Buy(ctx context.Context, accountID int64, symbol string, quantity int64) (Result, error) {
	timer := metrics.NewTimer(metrics.SettlementDuration.WithLabelValues(string(trading.SideBuy)))
	defer timer.ObserveDuration()

	res, err := e.buy(ctx, accountID, symbol, quantity)
	e.record(accountID, res, err)
	return res, err
}

// Sell disposes of quantity shares of symbol at the current quote.
func (e *Engine) Sell(ctx context.Context, accountID int64, symbol string, quantity int64) (Result, error) {
	timer := metrics.NewTimer(metrics.SettlementDuration.WithLabelValues(string(trading.SideSell)))
	defer timer.ObserveDuration()

	res, err := e.sell(ctx, accountID, symbol, quantity)
	e.record(accountID, res, err)
	return res, err
}

func (e *Engine) buy(ctx context.Context, accountID int64, symbol string, quantity int64) (Result, error) {
	side := trading.SideBuy
	symbol = trading.NormalizeSymbol(symbol)
	if res, ok := validate(side, symbol, quantity); !ok {
		return res, nil
	}

	q, res, ok := e.price(ctx, side, symbol, quantity)
	if !ok {
		return res, nil
	}
	cost := q.Price.Mul(decimal.NewFromInt(quantity))

	release, err := e.lock(ctx, accountID)
	if err != nil {
		return Result{}, err
	}
	defer release()

	var (
		trade     trading.Trade
		cashAfter decimal.Decimal
		rejection *Result
	)
	err = e.ledger.WithTx(ctx, func(tx interfaces.LedgerTx) error {
		cash, err := tx.CashBalance(ctx, accountID)
		if err != nil {
			return err
		}
		if cash.LessThan(cost) {
			r := rejected(side, symbol, quantity, ReasonInsufficientFunds,
				fmt.Sprintf("cost %s exceeds cash %s", cost.StringFixed(2), cash.StringFixed(2)))
			rejection = &r
			return nil
		}

		if cashAfter, err = tx.AdjustCash(ctx, accountID, cost.Neg()); err != nil {
			return err
		}
		trade, err = tx.AppendTrade(ctx, accountID, symbol, quantity, q.Price)
		return err
	})
	if err != nil {
		if errors.Is(err, ledger.ErrInsufficientFunds) {
			return rejected(side, symbol, quantity, ReasonInsufficientFunds, err.Error()), nil
		}
		return Result{}, e.failure(side, err)
	}
	if rejection != nil {
		return *rejection, nil
	}

	res = settled(side, trade, cost, cashAfter)
	e.emit(res)
	return res, nil
}

func (e *Engine) sell(ctx context.Context, accountID int64, symbol string, quantity int64) (Result, error) {
	side := trading.SideSell
	symbol = trading.NormalizeSymbol(symbol)
	if res, ok := validate(side, symbol, quantity); !ok {
		return res, nil
	}

	held, err := e.ledger.NetPosition(ctx, accountID, symbol)
	if err != nil {
		return Result{}, e.failure(side, err)
	}
	if held < quantity {
		return rejected(side, symbol, quantity, ReasonInsufficientShares,
			fmt.Sprintf("holding %d shares", held)), nil
	}

	q, res, ok := e.price(ctx, side, symbol, quantity)
	if !ok {
		return res, nil
	}
	proceeds := q.Price.Mul(decimal.NewFromInt(quantity))

	release, err := e.lock(ctx, accountID)
	if err != nil {
		return Result{}, err
	}
	defer release()

	var (
		trade     trading.Trade
		cashAfter decimal.Decimal
		rejection *Result
	)
	err = e.ledger.WithTx(ctx, func(tx interfaces.LedgerTx) error {
		// Another sell may have settled while the quote was in flight.
		held, err := tx.NetPosition(ctx, accountID, symbol)
		if err != nil {
			return err
		}
		if held < quantity {
			r := rejected(side, symbol, quantity, ReasonInsufficientShares,
				fmt.Sprintf("holding %d shares", held))
			rejection = &r
			return nil
		}

		if cashAfter, err = tx.AdjustCash(ctx, accountID, proceeds); err != nil {
			return err
		}
		trade, err = tx.AppendTrade(ctx, accountID, symbol, -quantity, q.Price)
		return err
	})
	if err != nil {
		return Result{}, e.failure(side, err)
	}
	if rejection != nil {
		return *rejection, nil
	}

	res = settled(side, trade, proceeds, cashAfter)
	e.emit(res)
	return res, nil
}

func validate(side trading.Side, symbol string, quantity int64) (Result, bool) {
	if symbol == "" {
		return rejected(side, symbol, quantity, ReasonInvalidInput, "missing symbol"), false
	}
	if quantity <= 0 {
		return rejected(side, symbol, quantity, ReasonInvalidInput, ErrInvalidQuantity.Error()), false
	}
	return Result{}, true
}

func (e *Engine) price(ctx context.Context, side trading.Side, symbol string, quantity int64) (trading.Quote, Result, bool) {
	q, err := e.quotes.Lookup(ctx, symbol)
	if err != nil {
		return trading.Quote{}, rejected(side, symbol, quantity, ReasonQuoteUnavailable, err.Error()), false
	}
	if !q.Price.IsPositive() {
		return trading.Quote{}, rejected(side, symbol, quantity, ReasonQuoteUnavailable,
			fmt.Sprintf("invalid price %s", q.Price)), false
	}

	e.log.Debug("order priced",
		logger.String("state", string(StatePriced)),
		logger.String("side", string(side)),
		logger.String("symbol", symbol),
		logger.Int64("quantity", quantity),
		logger.Decimal("price", q.Price))
	return q, Result{}, true
}

func (e *Engine) lock(ctx context.Context, accountID int64) (func(), error) {
	timer := metrics.NewTimer(metrics.AccountLockWait)
	release, err := e.locks.acquire(ctx, accountID)
	timer.ObserveDuration()
	if err != nil {
		return nil, fmt.Errorf("wait for account %d: %w", accountID, err)
	}
	return release, nil
}

// failure keeps ErrAccountNotFound and context errors recognisable and
// reports everything else as a persistence failure.
func (e *Engine) failure(side trading.Side, err error) error {
	if errors.Is(err, ledger.ErrAccountNotFound) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("settle %s: %w", side, err)
	}
	metrics.SettlementErrorsTotal.WithLabelValues(string(side)).Inc()
	return fmt.Errorf("%w: %s: %w", ErrPersistence, side, err)
}

func settled(side trading.Side, trade trading.Trade, amount, cash decimal.Decimal) Result {
	quantity := trade.Quantity
	if quantity < 0 {
		quantity = -quantity
	}
	return Result{
		State:    StateSettled,
		Side:     side,
		Symbol:   trade.Symbol,
		Quantity: quantity,
		Price:    trade.Price,
		Amount:   amount,
		Cash:     cash,
		Trade:    trade,
	}
}

func (e *Engine) emit(res Result) {
	if e.events == nil {
		return
	}

	event := trading.TradeEvent{
		ID:        uuid.NewString(),
		Side:      res.Side,
		Trade:     res.Trade,
		Amount:    res.Amount,
		CashAfter: res.Cash,
	}
	select {
	case e.events <- event:
	default:
		metrics.EventsDroppedTotal.Inc()
		e.log.Warn("events channel full, dropping trade event",
			logger.String("event_id", event.ID),
			logger.Int64("trade_id", res.Trade.ID))
	}
	metrics.UpdateChannelMetrics(len(e.events), cap(e.events), metrics.EventsChanSize, metrics.EventsChanCapacity)
}

func (e *Engine) record(accountID int64, res Result, err error) {
	side := res.Side
	if err != nil {
		e.log.Error("settlement failed",
			logger.Int64("account_id", accountID),
			logger.Error(err))
		return
	}

	outcome := string(res.State)
	if res.State == StateRejected {
		outcome = string(res.Reason)
	}
	metrics.SettlementsTotal.WithLabelValues(string(side), outcome).Inc()

	if res.Settled() {
		e.log.Info("trade settled",
			logger.Int64("account_id", accountID),
			logger.Int64("trade_id", res.Trade.ID),
			logger.String("side", string(side)),
			logger.String("symbol", res.Symbol),
			logger.Int64("quantity", res.Quantity),
			logger.Decimal("price", res.Price),
			logger.Decimal("amount", res.Amount),
			logger.Decimal("cash", res.Cash))
		return
	}
	e.log.Info("trade rejected",
		logger.Int64("account_id", accountID),
		logger.String("side", string(side)),
		logger.String("symbol", res.Symbol),
		logger.Int64("quantity", res.Quantity),
		logger.String("reason", string(res.Reason)),
		logger.String("detail", res.Detail))
}

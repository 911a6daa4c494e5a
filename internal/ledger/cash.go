package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

func (v *view) CashBalance(ctx context.Context, accountID int64) (decimal.Decimal, error) {
	query := v.dialect.rebind(`SELECT cash FROM accounts WHERE id = ?` + v.lock)

	var cash decimal.Decimal
	if err := v.q.QueryRowContext(ctx, query, accountID).Scan(&cash); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return decimal.Zero, ErrAccountNotFound
		}
		return decimal.Zero, fmt.Errorf("read cash: %w", err)
	}
	return cash, nil
}

// AdjustCash adds delta to the balance and returns the new balance. A result
// below zero is refused with ErrInsufficientFunds and nothing is written.
func (v *view) AdjustCash(ctx context.Context, accountID int64, delta decimal.Decimal) (decimal.Decimal, error) {
	cash, err := v.CashBalance(ctx, accountID)
	if err != nil {
		return decimal.Zero, err
	}

	next := cash.Add(delta)
	if next.IsNegative() {
		return cash, ErrInsufficientFunds
	}

	query := v.dialect.rebind(`UPDATE accounts SET cash = ? WHERE id = ?`)
	if _, err := v.q.ExecContext(ctx, query, next.String(), accountID); err != nil {
		return cash, fmt.Errorf("update cash: %w", err)
	}
	return next, nil
}

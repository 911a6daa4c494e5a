package ledger

import (
	"context"
	"fmt"

	"github.com/mohamedammareid/finance/pkg/trading"
	"github.com/shopspring/decimal"
)

func (v *view) AppendTrade(ctx context.Context, accountID int64, symbol string, quantity int64, price decimal.Decimal) (trading.Trade, error) {
	symbol = trading.NormalizeSymbol(symbol)
	switch {
	case symbol == "":
		return trading.Trade{}, fmt.Errorf("%w: empty symbol", ErrInvalidTrade)
	case quantity == 0:
		return trading.Trade{}, fmt.Errorf("%w: zero quantity", ErrInvalidTrade)
	case !price.IsPositive():
		return trading.Trade{}, fmt.Errorf("%w: price %s is not positive", ErrInvalidTrade, price)
	}

	trade := trading.Trade{
		AccountID:  accountID,
		Symbol:     symbol,
		Quantity:   quantity,
		Price:      price,
		ExecutedAt: v.now(),
	}

	query := v.dialect.rebind(`
INSERT INTO trades (account_id, symbol, shares, price, executed_at)
VALUES (?, ?, ?, ?, ?)
RETURNING id`)
	err := v.q.QueryRowContext(ctx, query,
		trade.AccountID,
		trade.Symbol,
		trade.Quantity,
		trade.Price.String(),
		trade.ExecutedAt,
	).Scan(&trade.ID)
	if err != nil {
		return trading.Trade{}, fmt.Errorf("insert trade: %w", err)
	}
	return trade, nil
}

func (v *view) NetPosition(ctx context.Context, accountID int64, symbol string) (int64, error) {
	query := v.dialect.rebind(`
SELECT COALESCE(SUM(shares), 0)
FROM trades
WHERE account_id = ? AND symbol = ?`)

	var shares int64
	if err := v.q.QueryRowContext(ctx, query, accountID, trading.NormalizeSymbol(symbol)).Scan(&shares); err != nil {
		return 0, fmt.Errorf("sum position: %w", err)
	}
	return shares, nil
}

// Positions returns every symbol the account holds a non-zero net position
// in, ordered by symbol.
func (s *Store) Positions(ctx context.Context, accountID int64) ([]trading.Position, error) {
	query := s.dialect.rebind(`
SELECT symbol, SUM(shares)
FROM trades
WHERE account_id = ?
GROUP BY symbol
HAVING SUM(shares) <> 0
ORDER BY symbol`)

	rows, err := s.db.QueryContext(ctx, query, accountID)
	if err != nil {
		return nil, fmt.Errorf("query positions: %w", err)
	}
	defer rows.Close()

	out := make([]trading.Position, 0)
	for rows.Next() {
		var p trading.Position
		if err := rows.Scan(&p.Symbol, &p.Shares); err != nil {
			return nil, fmt.Errorf("scan position: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Trades returns the account's history, newest first. limit <= 0 returns all.
func (s *Store) Trades(ctx context.Context, accountID int64, limit int) ([]trading.Trade, error) {
	query := `
SELECT id, account_id, symbol, shares, price, executed_at
FROM trades
WHERE account_id = ?
ORDER BY id DESC`
	args := []any{accountID}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, s.dialect.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("query trades: %w", err)
	}
	defer rows.Close()

	out := make([]trading.Trade, 0)
	for rows.Next() {
		var t trading.Trade
		if err := rows.Scan(&t.ID, &t.AccountID, &t.Symbol, &t.Quantity, &t.Price, &t.ExecutedAt); err != nil {
			return nil, fmt.Errorf("scan trade: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

package portfolio

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/mohamedammareid/finance/internal/ledger"
	"github.com/mohamedammareid/finance/internal/logger"
	"github.com/mohamedammareid/finance/internal/mocks"
)

func setup(t *testing.T) (*ledger.Store, int64) {
	t.Helper()
	ctx := context.Background()
	store, err := ledger.Open(ctx, "sqlite3", filepath.Join(t.TempDir(), "ledger.db"))
	if err != nil {
		t.Fatalf("open ledger: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	acct, err := store.CreateAccount(ctx, "alice", "hash", decimal.RequireFromString("500.00"))
	if err != nil {
		t.Fatalf("create account: %v", err)
	}
	return store, acct.ID
}

func TestCalculator_Positions(t *testing.T) {
	ctx := context.Background()
	store, id := setup(t)

	trades := []struct {
		symbol string
		qty    int64
	}{
		{"NFLX", 10},
		{"AAPL", 3},
		{"NFLX", -4},
		{"AAPL", -3},
	}
	for _, tr := range trades {
		if _, err := store.AppendTrade(ctx, id, tr.symbol, tr.qty, decimal.NewFromInt(100)); err != nil {
			t.Fatalf("append trade: %v", err)
		}
	}

	calc := NewCalculator(store, mocks.NewMockQuoteProvider(), logger.NewNoOpLogger())
	positions, err := calc.Positions(ctx, id)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(positions) != 1 || positions[0].Symbol != "NFLX" || positions[0].Shares != 6 {
		t.Errorf("unexpected positions: %+v", positions)
	}

	again, _ := calc.Positions(ctx, id)
	if len(again) != len(positions) || again[0] != positions[0] {
		t.Errorf("positions should be stable between reads: %+v vs %+v", positions, again)
	}
}

func TestCalculator_Valuation(t *testing.T) {
	ctx := context.Background()
	store, id := setup(t)

	if _, err := store.AppendTrade(ctx, id, "NFLX", 10, decimal.NewFromInt(100)); err != nil {
		t.Fatalf("append trade: %v", err)
	}
	if _, err := store.AppendTrade(ctx, id, "GONE", 2, decimal.NewFromInt(5)); err != nil {
		t.Fatalf("append trade: %v", err)
	}

	quotes := mocks.NewMockQuoteProvider().SetPrice("NFLX", "150.50")
	calc := NewCalculator(store, quotes, logger.NewNoOpLogger())

	v, err := calc.Valuation(ctx, id)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(v.Holdings) != 2 {
		t.Fatalf("expected 2 holdings, got %+v", v.Holdings)
	}

	gone, nflx := v.Holdings[0], v.Holdings[1]
	if gone.Symbol != "GONE" || gone.Priced || !gone.Value.IsZero() {
		t.Errorf("expected GONE to be unpriced, got %+v", gone)
	}
	if nflx.Symbol != "NFLX" || !nflx.Priced || !nflx.Value.Equal(decimal.RequireFromString("1505")) {
		t.Errorf("unexpected NFLX holding: %+v", nflx)
	}
	if nflx.Name != "NFLX Inc." {
		t.Errorf("expected quote name, got %q", nflx.Name)
	}
	if !v.HoldingsValue.Equal(decimal.RequireFromString("1505")) {
		t.Errorf("unexpected holdings value %s", v.HoldingsValue)
	}
	if !v.Total.Equal(decimal.RequireFromString("2005")) {
		t.Errorf("unexpected total %s", v.Total)
	}
}

func TestCalculator_ValuationUnknownAccount(t *testing.T) {
	store, id := setup(t)
	calc := NewCalculator(store, mocks.NewMockQuoteProvider(), logger.NewNoOpLogger())

	if _, err := calc.Valuation(context.Background(), id+1); !errors.Is(err, ledger.ErrAccountNotFound) {
		t.Errorf("expected ErrAccountNotFound, got %v", err)
	}
}

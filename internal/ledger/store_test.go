package ledger

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/mohamedammareid/finance/pkg/interfaces"
	"github.com/shopspring/decimal"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), "sqlite3", filepath.Join(t.TempDir(), "data", "ledger.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func createAccount(t *testing.T, s *Store, username, cash string) int64 {
	t.Helper()
	acct, err := s.CreateAccount(context.Background(), username, "hash", decimal.RequireFromString(cash))
	if err != nil {
		t.Fatalf("create account: %v", err)
	}
	return acct.ID
}

func TestStore_CreateAccount(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	acct, err := s.CreateAccount(ctx, " alice ", "hash", decimal.RequireFromString("10000.00"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if acct.ID == 0 || acct.Username != "alice" {
		t.Errorf("unexpected account: %+v", acct)
	}

	if _, err := s.CreateAccount(ctx, "alice", "other", decimal.Zero); !errors.Is(err, ErrUsernameTaken) {
		t.Errorf("expected ErrUsernameTaken, got %v", err)
	}

	got, err := s.AccountByUsername(ctx, "alice")
	if err != nil {
		t.Fatalf("lookup by username: %v", err)
	}
	if got.ID != acct.ID || !got.Cash.Equal(decimal.RequireFromString("10000")) {
		t.Errorf("unexpected account: %+v", got)
	}

	if _, err := s.Account(ctx, acct.ID+100); !errors.Is(err, ErrAccountNotFound) {
		t.Errorf("expected ErrAccountNotFound, got %v", err)
	}
}

func TestStore_AdjustCash(t *testing.T) {
	tests := []struct {
		name        string
		start       string
		delta       string
		wantBalance string
		wantErr     error
	}{
		{name: "credit", start: "100", delta: "25.50", wantBalance: "125.50"},
		{name: "debit_to_zero", start: "100", delta: "-100", wantBalance: "0"},
		{name: "overdraw", start: "100", delta: "-100.01", wantBalance: "100", wantErr: ErrInsufficientFunds},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			s := openTestStore(t)
			id := createAccount(t, s, "bob", tt.start)

			_, err := s.AdjustCash(ctx, id, decimal.RequireFromString(tt.delta))
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected error %v, got %v", tt.wantErr, err)
			}

			cash, err := s.CashBalance(ctx, id)
			if err != nil {
				t.Fatalf("read cash: %v", err)
			}
			if !cash.Equal(decimal.RequireFromString(tt.wantBalance)) {
				t.Errorf("expected balance %s, got %s", tt.wantBalance, cash)
			}
		})
	}

	t.Run("unknown_account", func(t *testing.T) {
		s := openTestStore(t)
		if _, err := s.AdjustCash(context.Background(), 42, decimal.NewFromInt(1)); !errors.Is(err, ErrAccountNotFound) {
			t.Errorf("expected ErrAccountNotFound, got %v", err)
		}
	})
}

func TestStore_AppendTrade(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	id := createAccount(t, s, "carol", "0")

	tests := []struct {
		name     string
		symbol   string
		quantity int64
		price    string
		wantErr  error
	}{
		{name: "buy", symbol: " nflx ", quantity: 10, price: "150.00"},
		{name: "sell", symbol: "NFLX", quantity: -4, price: "155.00"},
		{name: "empty_symbol", symbol: "  ", quantity: 1, price: "1", wantErr: ErrInvalidTrade},
		{name: "zero_quantity", symbol: "NFLX", quantity: 0, price: "1", wantErr: ErrInvalidTrade},
		{name: "zero_price", symbol: "NFLX", quantity: 1, price: "0", wantErr: ErrInvalidTrade},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			trade, err := s.AppendTrade(ctx, id, tt.symbol, tt.quantity, decimal.RequireFromString(tt.price))
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected error %v, got %v", tt.wantErr, err)
			}
			if tt.wantErr != nil {
				return
			}
			if trade.ID == 0 || trade.Symbol != "NFLX" || trade.ExecutedAt.IsZero() {
				t.Errorf("unexpected trade: %+v", trade)
			}
		})
	}

	shares, err := s.NetPosition(ctx, id, "nflx")
	if err != nil {
		t.Fatalf("net position: %v", err)
	}
	if shares != 6 {
		t.Errorf("expected 6 shares, got %d", shares)
	}

	if shares, _ := s.NetPosition(ctx, id, "AAPL"); shares != 0 {
		t.Errorf("expected no AAPL shares, got %d", shares)
	}
}

func TestStore_PositionsAndTrades(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	id := createAccount(t, s, "dave", "0")
	other := createAccount(t, s, "erin", "0")

	appends := []struct {
		account int64
		symbol  string
		qty     int64
	}{
		{id, "NFLX", 10},
		{id, "AAPL", 5},
		{id, "AAPL", -5},
		{id, "MSFT", 3},
		{other, "TSLA", 1},
	}
	for _, a := range appends {
		if _, err := s.AppendTrade(ctx, a.account, a.symbol, a.qty, decimal.NewFromInt(10)); err != nil {
			t.Fatalf("append trade: %v", err)
		}
	}

	positions, err := s.Positions(ctx, id)
	if err != nil {
		t.Fatalf("positions: %v", err)
	}
	if len(positions) != 2 {
		t.Fatalf("expected 2 positions, got %+v", positions)
	}
	if positions[0].Symbol != "MSFT" || positions[0].Shares != 3 || positions[1].Symbol != "NFLX" || positions[1].Shares != 10 {
		t.Errorf("unexpected positions: %+v", positions)
	}

	trades, err := s.Trades(ctx, id, 0)
	if err != nil {
		t.Fatalf("trades: %v", err)
	}
	if len(trades) != 4 {
		t.Fatalf("expected 4 trades, got %d", len(trades))
	}
	if trades[0].Symbol != "MSFT" || trades[3].Symbol != "NFLX" {
		t.Errorf("expected newest first, got %+v", trades)
	}

	limited, err := s.Trades(ctx, id, 2)
	if err != nil {
		t.Fatalf("limited trades: %v", err)
	}
	if len(limited) != 2 {
		t.Errorf("expected 2 trades, got %d", len(limited))
	}

	empty, err := s.Positions(ctx, other+100)
	if err != nil {
		t.Fatalf("positions for unknown account: %v", err)
	}
	if len(empty) != 0 {
		t.Errorf("expected no positions, got %+v", empty)
	}
}

func TestStore_WithTxRollsBack(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	id := createAccount(t, s, "frank", "1000")

	boom := errors.New("boom")
	err := s.WithTx(ctx, func(tx interfaces.LedgerTx) error {
		if _, err := tx.AdjustCash(ctx, id, decimal.NewFromInt(-500)); err != nil {
			return err
		}
		if _, err := tx.AppendTrade(ctx, id, "NFLX", 5, decimal.NewFromInt(100)); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	cash, _ := s.CashBalance(ctx, id)
	if !cash.Equal(decimal.NewFromInt(1000)) {
		t.Errorf("expected cash to be restored, got %s", cash)
	}
	if shares, _ := s.NetPosition(ctx, id, "NFLX"); shares != 0 {
		t.Errorf("expected no shares after rollback, got %d", shares)
	}
}

func TestStore_ReadsAreIdempotent(t *testing.T) {
	for _, backend := range testBackends(t) {
		t.Run(backend.name, func(t *testing.T) {
			ctx := context.Background()
			s := backend.open(t)
			id := createAccount(t, s, uniqueUsername("heidi"), "1000.25")

			if _, err := s.AdjustCash(ctx, id, decimal.RequireFromString("-450.75")); err != nil {
				t.Fatalf("adjust cash: %v", err)
			}
			for _, qty := range []int64{7, -2, 4} {
				if _, err := s.AppendTrade(ctx, id, "AMZN", qty, decimal.RequireFromString("64.35")); err != nil {
					t.Fatalf("append trade: %v", err)
				}
			}

			assertStableReads := func(t *testing.T, r interfaces.LedgerTx) {
				t.Helper()
				cash1, err := r.CashBalance(ctx, id)
				if err != nil {
					t.Fatalf("first cash read: %v", err)
				}
				cash2, err := r.CashBalance(ctx, id)
				if err != nil {
					t.Fatalf("second cash read: %v", err)
				}
				if !cash1.Equal(cash2) || !cash1.Equal(decimal.RequireFromString("549.50")) {
					t.Errorf("cash reads differ or are wrong: %s then %s", cash1, cash2)
				}

				pos1, err := r.NetPosition(ctx, id, "AMZN")
				if err != nil {
					t.Fatalf("first position read: %v", err)
				}
				pos2, err := r.NetPosition(ctx, id, "AMZN")
				if err != nil {
					t.Fatalf("second position read: %v", err)
				}
				if pos1 != pos2 || pos1 != 9 {
					t.Errorf("position reads differ or are wrong: %d then %d", pos1, pos2)
				}
			}

			t.Run("store", func(t *testing.T) {
				assertStableReads(t, s)
			})
			t.Run("transaction", func(t *testing.T) {
				err := s.WithTx(ctx, func(tx interfaces.LedgerTx) error {
					assertStableReads(t, tx)
					return nil
				})
				if err != nil {
					t.Fatalf("with tx: %v", err)
				}
			})
		})
	}
}

func TestStore_ConcurrentDebits(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	id := createAccount(t, s, "grace", "10")

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		ok       int
		rejected int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.AdjustCash(ctx, id, decimal.NewFromInt(-1))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case errors.Is(err, ErrInsufficientFunds):
				rejected++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if ok != 10 || rejected != 10 {
		t.Errorf("expected 10 debits and 10 rejections, got %d and %d", ok, rejected)
	}
	cash, _ := s.CashBalance(ctx, id)
	if !cash.IsZero() {
		t.Errorf("expected zero cash, got %s", cash)
	}
}

func TestDialect_Rebind(t *testing.T) {
	got := postgresDialect.rebind(`SELECT * FROM t WHERE a = ? AND b = ?`)
	if got != `SELECT * FROM t WHERE a = $1 AND b = $2` {
		t.Errorf("unexpected rebind: %s", got)
	}
	if q := sqliteDialect.rebind(`a = ?`); q != `a = ?` {
		t.Errorf("sqlite should keep ? placeholders, got %s", q)
	}
}

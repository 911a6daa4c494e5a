package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mohamedammareid/finance/pkg/interfaces"
	"github.com/mohamedammareid/finance/pkg/trading"
	"github.com/shopspring/decimal"

	_ "github.com/jackc/pgx/v5/stdlib"
)

var (
	ErrAccountNotFound   = errors.New("account not found")
	ErrUsernameTaken     = errors.New("username already exists")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrInvalidTrade      = errors.New("invalid trade")
)

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store is the durable ledger: an append-only trades relation plus one
// mutable cash balance per account.
type Store struct {
	db      *sql.DB
	dialect dialect
	now     func() time.Time
}

var (
	_ interfaces.Ledger       = (*Store)(nil)
	_ interfaces.AccountStore = (*Store)(nil)
)

// Open connects to the ledger database and creates the schema if needed.
// driver is "sqlite3" (dsn is a file path) or "pgx" (dsn is a postgres URL).
func Open(ctx context.Context, driver, dsn string) (*Store, error) {
	d, err := dialectFor(driver)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("ledger dsn is required")
	}

	if d.driver == sqliteDialect.driver {
		if dir := filepath.Dir(dsn); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create db dir: %w", err)
			}
		}
		dsn = sqliteDSN(dsn)
	}

	db, err := sql.Open(d.driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", d.driver, err)
	}

	s := &Store{db: db, dialect: d, now: func() time.Time { return time.Now().UTC() }}
	if err := s.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Migrate creates the accounts and trades relations if they do not exist.
func (s *Store) Migrate(ctx context.Context) error {
	for _, stmt := range s.dialect.schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	return nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// WithTx runs fn inside a single database transaction. Any error returned by
// fn, or a cancelled ctx, rolls back every write fn made.
func (s *Store) WithTx(ctx context.Context, fn func(tx interfaces.LedgerTx) error) (err error) {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = sqlTx.Rollback()
		}
	}()

	if err = fn(s.txView(sqlTx)); err != nil {
		return err
	}
	if err = sqlTx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (s *Store) view() *view {
	return &view{q: s.db, dialect: s.dialect, now: s.now}
}

func (s *Store) txView(tx *sql.Tx) *view {
	return &view{q: tx, dialect: s.dialect, now: s.now, lock: s.dialect.forUpdate}
}

func (s *Store) CashBalance(ctx context.Context, accountID int64) (decimal.Decimal, error) {
	return s.view().CashBalance(ctx, accountID)
}

// AdjustCash applies delta in its own transaction so the read-modify-write of
// the balance cannot interleave with another writer.
func (s *Store) AdjustCash(ctx context.Context, accountID int64, delta decimal.Decimal) (decimal.Decimal, error) {
	var balance decimal.Decimal
	err := s.WithTx(ctx, func(tx interfaces.LedgerTx) error {
		var err error
		balance, err = tx.AdjustCash(ctx, accountID, delta)
		return err
	})
	return balance, err
}

func (s *Store) AppendTrade(ctx context.Context, accountID int64, symbol string, quantity int64, price decimal.Decimal) (trading.Trade, error) {
	return s.view().AppendTrade(ctx, accountID, symbol, quantity, price)
}

func (s *Store) NetPosition(ctx context.Context, accountID int64, symbol string) (int64, error) {
	return s.view().NetPosition(ctx, accountID, symbol)
}

// view runs ledger queries against either the pool or an open transaction.
type view struct {
	q       execer
	dialect dialect
	now     func() time.Time
	lock    string
}

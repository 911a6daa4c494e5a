package ledger

import (
	"errors"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
)

type dialect struct {
	driver string
	schema []string
	// forUpdate is appended to reads of the account row inside a transaction.
	forUpdate string
	numbered  bool
}

var sqliteDialect = dialect{
	driver: "sqlite3",
	schema: []string{
		`CREATE TABLE IF NOT EXISTS accounts (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    username TEXT NOT NULL UNIQUE,
    hash TEXT NOT NULL,
    cash TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL
)`,
		`CREATE TABLE IF NOT EXISTS trades (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    account_id INTEGER NOT NULL REFERENCES accounts(id),
    symbol TEXT NOT NULL,
    shares INTEGER NOT NULL,
    price TEXT NOT NULL,
    executed_at TIMESTAMP NOT NULL
)`,
		`CREATE INDEX IF NOT EXISTS idx_trades_account_symbol ON trades(account_id, symbol)`,
	},
}

var postgresDialect = dialect{
	driver: "pgx",
	schema: []string{
		`CREATE TABLE IF NOT EXISTS accounts (
    id BIGSERIAL PRIMARY KEY,
    username TEXT NOT NULL UNIQUE,
    hash TEXT NOT NULL,
    cash NUMERIC NOT NULL CHECK (cash >= 0),
    created_at TIMESTAMPTZ NOT NULL
)`,
		`CREATE TABLE IF NOT EXISTS trades (
    id BIGSERIAL PRIMARY KEY,
    account_id BIGINT NOT NULL REFERENCES accounts(id),
    symbol TEXT NOT NULL,
    shares BIGINT NOT NULL,
    price NUMERIC NOT NULL CHECK (price > 0),
    executed_at TIMESTAMPTZ NOT NULL
)`,
		`CREATE INDEX IF NOT EXISTS idx_trades_account_symbol ON trades(account_id, symbol)`,
	},
	forUpdate: " FOR UPDATE",
	numbered:  true,
}

func dialectFor(driver string) (dialect, error) {
	switch driver {
	case sqliteDialect.driver:
		return sqliteDialect, nil
	case postgresDialect.driver:
		return postgresDialect, nil
	default:
		return dialect{}, errors.New("unsupported ledger driver " + strconv.Quote(driver))
	}
}

// rebind rewrites ? placeholders into $n for drivers that need numbered ones.
func (d dialect) rebind(query string) string {
	if !d.numbered {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

// sqliteDSN adds the connection parameters the ledger relies on: writers take
// the database lock at BEGIN, wait instead of failing when it is busy, and
// foreign keys are enforced on every pooled connection.
func sqliteDSN(path string) string {
	params := []string{
		"_txlock=immediate",
		"_busy_timeout=5000",
		"_foreign_keys=on",
		"_journal_mode=WAL",
	}
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + strings.Join(params, "&")
}

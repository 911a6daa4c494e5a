package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/mohamedammareid/finance/pkg/trading"
	"github.com/shopspring/decimal"
)

func (s *Store) CreateAccount(ctx context.Context, username, passwordHash string, startingCash decimal.Decimal) (trading.Account, error) {
	username = strings.TrimSpace(username)
	if username == "" || passwordHash == "" {
		return trading.Account{}, errors.New("username and password hash are required")
	}
	if startingCash.IsNegative() {
		return trading.Account{}, errors.New("starting cash must not be negative")
	}

	acct := trading.Account{
		Username:     username,
		PasswordHash: passwordHash,
		Cash:         startingCash,
		CreatedAt:    s.now(),
	}

	query := s.dialect.rebind(`
INSERT INTO accounts (username, hash, cash, created_at)
VALUES (?, ?, ?, ?)
RETURNING id`)
	err := s.db.QueryRowContext(ctx, query, acct.Username, acct.PasswordHash, acct.Cash.String(), acct.CreatedAt).Scan(&acct.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return trading.Account{}, ErrUsernameTaken
		}
		return trading.Account{}, fmt.Errorf("insert account: %w", err)
	}
	return acct, nil
}

func (s *Store) AccountByUsername(ctx context.Context, username string) (trading.Account, error) {
	return s.scanAccount(ctx, `SELECT id, username, hash, cash, created_at FROM accounts WHERE username = ?`, strings.TrimSpace(username))
}

func (s *Store) Account(ctx context.Context, id int64) (trading.Account, error) {
	return s.scanAccount(ctx, `SELECT id, username, hash, cash, created_at FROM accounts WHERE id = ?`, id)
}

func (s *Store) scanAccount(ctx context.Context, query string, arg any) (trading.Account, error) {
	var acct trading.Account
	err := s.db.QueryRowContext(ctx, s.dialect.rebind(query), arg).Scan(
		&acct.ID,
		&acct.Username,
		&acct.PasswordHash,
		&acct.Cash,
		&acct.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return trading.Account{}, ErrAccountNotFound
		}
		return trading.Account{}, fmt.Errorf("read account: %w", err)
	}
	return acct, nil
}

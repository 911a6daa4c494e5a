// Package accounts registers users and checks their credentials.
package accounts

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"github.com/mohamedammareid/finance/internal/ledger"
	"github.com/mohamedammareid/finance/internal/logger"
	"github.com/mohamedammareid/finance/pkg/interfaces"
	"github.com/mohamedammareid/finance/pkg/trading"
)

var (
	ErrInvalidInput       = errors.New("invalid registration input")
	ErrInvalidCredentials = errors.New("invalid username and/or password")
)

type Service struct {
	store        interfaces.AccountStore
	startingCash decimal.Decimal
	cost         int
	logger       *logger.Logger
}

func NewService(store interfaces.AccountStore, startingCash decimal.Decimal, log *logger.Logger) *Service {
	return &Service{
		store:        store,
		startingCash: startingCash,
		cost:         bcrypt.DefaultCost,
		logger:       log.Component("accounts"),
	}
}

// Register creates an account funded with the configured starting cash.
// Taken usernames return ledger.ErrUsernameTaken.
func (s *Service) Register(ctx context.Context, username, password, confirmation string) (trading.Account, error) {
	username = strings.TrimSpace(username)
	switch {
	case username == "":
		return trading.Account{}, fmt.Errorf("%w: must provide username", ErrInvalidInput)
	case password == "":
		return trading.Account{}, fmt.Errorf("%w: must provide password", ErrInvalidInput)
	case confirmation == "":
		return trading.Account{}, fmt.Errorf("%w: must confirm password", ErrInvalidInput)
	case password != confirmation:
		return trading.Account{}, fmt.Errorf("%w: passwords do not match", ErrInvalidInput)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return trading.Account{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	acct, err := s.store.CreateAccount(ctx, username, string(hash), s.startingCash)
	if err != nil {
		if errors.Is(err, ledger.ErrUsernameTaken) {
			return trading.Account{}, err
		}
		return trading.Account{}, fmt.Errorf("create account: %w", err)
	}

	s.logger.Info("account registered",
		logger.Int64("account_id", acct.ID),
		logger.String("username", acct.Username),
		logger.Decimal("starting_cash", acct.Cash))
	return acct, nil
}

func (s *Service) Authenticate(ctx context.Context, username, password string) (trading.Account, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return trading.Account{}, ErrInvalidCredentials
	}

	acct, err := s.store.AccountByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, ledger.ErrAccountNotFound) {
			return trading.Account{}, ErrInvalidCredentials
		}
		return trading.Account{}, fmt.Errorf("load account: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(acct.PasswordHash), []byte(password)); err != nil {
		return trading.Account{}, ErrInvalidCredentials
	}
	return acct, nil
}

func (s *Service) Account(ctx context.Context, id int64) (trading.Account, error) {
	return s.store.Account(ctx, id)
}

// Package quote resolves ticker symbols to current prices.
package quote

import (
	"errors"
	"fmt"

	"github.com/mohamedammareid/finance/pkg/trading"
)

// ErrUnavailable is returned for every failed lookup: transport errors,
// malformed payloads, unknown symbols and non-positive prices alike.
var ErrUnavailable = errors.New("quote unavailable")

func unavailable(symbol string, format string, args ...any) error {
	return fmt.Errorf("%w: %s: %s", ErrUnavailable, symbol, fmt.Sprintf(format, args...))
}

// Unavailablef builds an ErrUnavailable for providers living outside this
// package.
func Unavailablef(symbol string, format string, args ...any) error {
	return unavailable(symbol, format, args...)
}

// Validate rejects quotes that must never reach a caller.
func Validate(q trading.Quote) error {
	if q.Symbol == "" {
		return unavailable(q.Symbol, "empty symbol in response")
	}
	if !q.Price.IsPositive() {
		return unavailable(q.Symbol, "non-positive price %s", q.Price)
	}
	return nil
}

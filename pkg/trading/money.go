package trading

import (
	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// DisplayUSD formats an amount in dollars, e.g. $1,234.50. Amounts are
// rounded half away from zero to whole cents.
func DisplayUSD(amount decimal.Decimal) string {
	cents := amount.Shift(2).Round(0).IntPart()
	return money.New(cents, money.USD).Display()
}

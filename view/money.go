package view

import (
	"fmt"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// Money formats amount in the account currency, e.g. "$1,234.50". Unknown
// or empty currencies fall back to a plain two-decimal number.
func Money(amount float64, currency string) string {
	cur := money.GetCurrency(currency)
	if currency == "" || cur == nil {
		return fmt.Sprintf("%.2f", amount)
	}

	factor, _ := decimal.NewFromInt(10).PowInt32(int32(cur.Fraction))
	minor := decimal.NewFromFloat(amount).Mul(factor).Round(0)
	return money.New(minor.IntPart(), currency).Display()
}

// Signed is Money with an explicit plus sign for gains.
func Signed(amount float64, currency string) string {
	if amount > 0 {
		return "+" + Money(amount, currency)
	}
	return Money(amount, currency)
}

// Package money holds the currency helpers shared by the cart, catalog and
// checkout. Amounts are shopspring decimals; rounding only happens for display.
package money

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// DisplayPlaces is the number of fraction digits rendered to customers.
const DisplayPlaces = 2

var hundred = decimal.NewFromInt(100)

// Format renders amount with two decimals, rounding half away from zero.
func Format(amount decimal.Decimal) string {
	return amount.Round(DisplayPlaces).StringFixed(DisplayPlaces)
}

// ToCents converts amount to integer minor units using the display rounding.
func ToCents(amount decimal.Decimal) int64 {
	return amount.Round(DisplayPlaces).Mul(hundred).IntPart()
}

// FromCents builds an amount from integer minor units.
func FromCents(cents int64) decimal.Decimal {
	return decimal.New(cents, -DisplayPlaces)
}

// Parse reads a decimal amount such as "12.50". Negative amounts are rejected.
func Parse(raw string) (decimal.Decimal, error) {
	value, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse amount %q: %w", raw, err)
	}
	if value.IsNegative() {
		return decimal.Zero, fmt.Errorf("amount %q must not be negative", raw)
	}
	return value, nil
}

// Sum adds amounts exactly.
func Sum(amounts ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, a := range amounts {
		total = total.Add(a)
	}
	return total
}

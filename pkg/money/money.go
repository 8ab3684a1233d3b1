// Package money converts between client-facing amount strings, floats and
// fixed-precision decimals. Amounts carry at most 8 fractional digits.
package money

import (
	"errors"
	"math"
	"regexp"

	"github.com/shopspring/decimal"
)

const (
	// Scale is the number of fractional digits kept for every amount.
	Scale = 8
	// MaxInputLength caps the length of an amount string.
	MaxInputLength = 20
)

var (
	ErrInvalidAmount = errors.New("invalid amount")
	ErrNotPositive   = errors.New("amount must be positive")
)

var amountRe = regexp.MustCompile(`^\d+(\.\d{1,8})?$`)

// Valid reports whether s has the wire format of an amount. It does not check
// the sign; use Parse for that.
func Valid(s string) bool {
	return len(s) <= MaxInputLength && amountRe.MatchString(s)
}

// Parse converts a client amount string into a positive decimal.
func Parse(s string) (decimal.Decimal, error) {
	if !Valid(s) {
		return decimal.Zero, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	if !d.IsPositive() {
		return decimal.Zero, ErrNotPositive
	}
	return d, nil
}

// FromFloat converts a native float into a decimal rounded to Scale digits.
// NaN, infinities and non-positive values are rejected.
func FromFloat(f float64) (decimal.Decimal, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return decimal.Zero, ErrInvalidAmount
	}
	d := decimal.NewFromFloat(f).Round(Scale)
	if !d.IsPositive() {
		return decimal.Zero, ErrNotPositive
	}
	return d, nil
}

// Format renders d with exactly Scale fractional digits.
func Format(d decimal.Decimal) string {
	return d.StringFixed(Scale)
}

// Float converts d into a float64 for display.
func Float(d decimal.Decimal) float64 {
	return d.InexactFloat64()
}

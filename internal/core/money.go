// Package core provides the ledger domain model and money handling utilities.
//
// Amounts travel as decimal.Decimal and are persisted as integer cents.
package core

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// RatePlaces is the precision of a derived exchange rate.
const RatePlaces = 2

// MaxAmount is the largest accepted amount. Its cents fit in int64 with
// enough headroom that summing a group's rows cannot overflow either.
var MaxAmount = decimal.RequireFromString("999999999999.99")

var (
	hundred = decimal.NewFromInt(100)
	two     = decimal.NewFromInt(2)
)

// ParseAmount converts a user supplied decimal string into a positive amount.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators and rounds
// to cents. Zero, negative, malformed and out of range values yield
// ErrInvalidAmount.
//
// Examples:
//   ParseAmount("12.34")  -> 12.34
//   ParseAmount("12,34")  -> 12.34
//   ParseAmount("12.345") -> 12.35
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return decimal.Zero, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	d = RoundCents(d)
	if !d.IsPositive() {
		return decimal.Zero, ErrInvalidAmount
	}
	if err := CheckRange(d); err != nil {
		return decimal.Zero, err
	}
	return d, nil
}

// CheckRange rejects amounts whose magnitude exceeds MaxAmount.
func CheckRange(d decimal.Decimal) error {
	if d.Abs().GreaterThan(MaxAmount) {
		return fmt.Errorf("%w: %s exceeds %s", ErrInvalidAmount, d, MaxAmount)
	}
	return nil
}

// RoundCents rounds half away from zero to two decimal places.
func RoundCents(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// ToCents returns the amount in minor units.
func ToCents(d decimal.Decimal) int64 {
	return d.Mul(hundred).Round(0).IntPart()
}

// FromCents converts minor units back to a decimal amount.
func FromCents(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}

// ExchangeRate derives target/source rounded once, half away from zero, to
// RatePlaces. Callers must reject a zero source beforehand.
func ExchangeRate(source, target decimal.Decimal) decimal.Decimal {
	neg := source.Sign()*target.Sign() < 0
	source, target = source.Abs(), target.Abs()

	q, r := target.Shift(RatePlaces).QuoRem(source, 0)
	if r.Mul(two).GreaterThanOrEqual(source) {
		q = q.Add(decimal.NewFromInt(1))
	}
	rate := q.Shift(-RatePlaces)
	if neg {
		return rate.Neg()
	}
	return rate
}

package models

import (
	"fmt"

	"github.com/shopspring/decimal"

	appErrors "github.com/tutorbill/tutorbill-api/pkg/errors"
)

// Amount is a non-negative monetary value rendered with two decimal places.
type Amount struct {
	value decimal.Decimal
}

// ZeroAmount returns the additive identity.
func ZeroAmount() Amount {
	return Amount{value: decimal.Zero}
}

// NewAmount wraps a decimal, rejecting negative values.
func NewAmount(value decimal.Decimal) (Amount, error) {
	if value.IsNegative() {
		return Amount{}, appErrors.Clone(appErrors.ErrInvalidFormat, fmt.Sprintf("amount must not be negative, got %s", value))
	}
	return Amount{value: value}, nil
}

// ParseAmount parses a decimal text such as "30" or "45.50".
func ParseAmount(raw string) (Amount, error) {
	value, err := decimal.NewFromString(raw)
	if err != nil {
		return Amount{}, appErrors.Clone(appErrors.ErrInvalidFormat, fmt.Sprintf("amount %q is not a valid number", raw))
	}
	return NewAmount(value)
}

// MustAmount parses a decimal text and panics on failure. Intended for
// constants and tests.
func MustAmount(raw string) Amount {
	amount, err := ParseAmount(raw)
	if err != nil {
		panic(err)
	}
	return amount
}

// Add returns the sum of two amounts.
func (a Amount) Add(other Amount) Amount {
	return Amount{value: a.value.Add(other.value)}
}

// MulInt scales the amount by a non-negative integer factor.
func (a Amount) MulInt(n int) Amount {
	return Amount{value: a.value.Mul(decimal.NewFromInt(int64(n)))}
}

// Cmp compares two amounts, returning -1, 0 or 1.
func (a Amount) Cmp(other Amount) int {
	return a.value.Cmp(other.value)
}

// Equal reports numeric equality.
func (a Amount) Equal(other Amount) bool {
	return a.value.Equal(other.value)
}

// IsZero reports whether the amount is exactly zero.
func (a Amount) IsZero() bool {
	return a.value.IsZero()
}

// IsPositive reports whether the amount is strictly greater than zero.
func (a Amount) IsPositive() bool {
	return a.value.IsPositive()
}

// Decimal exposes the underlying decimal value.
func (a Amount) Decimal() decimal.Decimal {
	return a.value
}

// String renders the amount with exactly two decimal places.
func (a Amount) String() string {
	return a.value.StringFixed(2)
}

// MarshalJSON encodes the amount as its fixed two-decimal string form.
func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(`"` + a.String() + `"`), nil
}

// UnmarshalJSON accepts either a JSON string or bare number.
func (a *Amount) UnmarshalJSON(data []byte) error {
	raw := string(data)
	if len(raw) >= 2 && raw[0] == '"' && raw[len(raw)-1] == '"' {
		raw = raw[1 : len(raw)-1]
	}
	parsed, err := ParseAmount(raw)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// RecomputeOutstanding adjusts an outstanding balance after the billed total
// changes, preserving any payments already made:
//
//	max(oldOutstanding + newTotal - oldTotal, 0)
func RecomputeOutstanding(oldOutstanding, oldTotal, newTotal Amount) Amount {
	adjusted := oldOutstanding.value.Add(newTotal.value).Sub(oldTotal.value)
	if adjusted.IsNegative() {
		return ZeroAmount()
	}
	return Amount{value: adjusted}
}

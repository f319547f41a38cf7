// Package core provides amount parsing and handling utilities.
//
// Amounts are kept as decimals end to end. A value read back from a ledger
// that is not numeric becomes a missing amount that remembers its raw text,
// so it can still be listed but never summed.
package core

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidAmount  = errors.New("invalid amount")
	ErrNegativeAmount = errors.New("amount must not be negative")
)

// Amount is a nullable decimal plus the raw cell text it was read from.
type Amount struct {
	decimal.NullDecimal
	Raw string
}

// NewAmount wraps a known decimal value.
func NewAmount(d decimal.Decimal) Amount {
	return Amount{NullDecimal: decimal.NewNullDecimal(d)}
}

// MustAmount parses s and panics when it is not numeric. Intended for tests
// and constants.
func MustAmount(s string) Amount {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return NewAmount(d)
}

// CoerceAmount converts a stored cell to an Amount. Text that is not a number
// yields a missing amount carrying the raw text; it never fails.
func CoerceAmount(s string) Amount {
	raw := s
	s = strings.TrimSpace(s)
	if s == "" {
		return Amount{Raw: raw}
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Amount{Raw: raw}
	}
	return NewAmount(d)
}

// ParseAmount parses user input. It accepts a decimal comma and rejects
// negative or non-numeric values.
//
// Examples:
//
//	ParseAmount("88.5")  -> 88.5, nil
//	ParseAmount("12,34") -> 12.34, nil
//	ParseAmount("-1")    -> ErrNegativeAmount
func ParseAmount(s string) (Amount, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Amount{}, ErrInvalidAmount
	}
	if strings.Count(s, ",") == 1 && !strings.Contains(s, ".") {
		s = strings.Replace(s, ",", ".", 1)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Amount{}, ErrInvalidAmount
	}
	if d.IsNegative() {
		return Amount{}, ErrNegativeAmount
	}
	return NewAmount(d), nil
}

// Missing reports whether the amount has no numeric value.
func (a Amount) Missing() bool {
	return !a.Valid
}

// String is the ledger cell representation: the canonical decimal, or the raw
// text for a missing amount.
func (a Amount) String() string {
	if a.Valid {
		return a.Decimal.String()
	}
	return a.Raw
}

// Yuan formats the amount with two decimals for display.
func (a Amount) Yuan() string {
	if !a.Valid {
		return ""
	}
	return a.Decimal.StringFixed(2)
}

func (a Amount) MarshalJSON() ([]byte, error) {
	if !a.Valid {
		return []byte("null"), nil
	}
	return a.Decimal.MarshalJSON()
}

func (a Amount) validateInput() error {
	if !a.Valid {
		return &ValidationError{Field: "amount", Reason: ErrInvalidAmount.Error()}
	}
	if a.Decimal.IsNegative() {
		return &ValidationError{Field: "amount", Reason: ErrNegativeAmount.Error()}
	}
	return nil
}

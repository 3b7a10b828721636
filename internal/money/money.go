// Package money holds currency minor-unit rules shared by posting, FX and allocation.
package money

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// minorUnits lists ISO 4217 currencies whose exponent differs from 2.
var minorUnits = map[string]int32{
	"BIF": 0, "CLP": 0, "DJF": 0, "GNF": 0, "ISK": 0, "JPY": 0, "KMF": 0, "KRW": 0,
	"PYG": 0, "RWF": 0, "UGX": 0, "VND": 0, "VUV": 0, "XAF": 0, "XOF": 0, "XPF": 0,
	"BHD": 3, "IQD": 3, "JOD": 3, "KWD": 3, "LYD": 3, "OMR": 3, "TND": 3,
}

// ErrOutOfRange is returned when an amount does not fit in an int64 count of minor units.
var ErrOutOfRange = errors.New("amount out of range")

// Normalize upper-cases and trims a currency code.
func Normalize(currency string) string {
	return strings.ToUpper(strings.TrimSpace(currency))
}

// Places returns the number of decimal places of the currency's minor unit.
func Places(currency string) int32 {
	if p, ok := minorUnits[Normalize(currency)]; ok {
		return p
	}
	return 2
}

// Unit returns the smallest representable amount of the currency (0.01 for USD).
func Unit(currency string) decimal.Decimal {
	return decimal.New(1, -Places(currency))
}

// Round rounds an amount to the currency's minor unit, half away from zero.
func Round(amount decimal.Decimal, currency string) decimal.Decimal {
	return amount.Round(Places(currency))
}

// IsExact reports whether amount has no digits below the currency's minor unit.
func IsExact(amount decimal.Decimal, currency string) bool {
	return amount.Equal(Round(amount, currency))
}

// InRange reports whether amount fits in an int64 count of minor units.
func InRange(amount decimal.Decimal, currency string) bool {
	return amount.Shift(Places(currency)).BigInt().IsInt64()
}

// ToMinor converts an amount to an integer count of minor units.
// It fails if the amount is not exact in the currency or does not fit.
func ToMinor(amount decimal.Decimal, currency string) (int64, error) {
	if !IsExact(amount, currency) {
		return 0, fmt.Errorf("amount %s has more than %d decimal places for %s", amount, Places(currency), Normalize(currency))
	}
	if !InRange(amount, currency) {
		return 0, fmt.Errorf("%w: %s %s", ErrOutOfRange, amount, Normalize(currency))
	}
	return amount.Shift(Places(currency)).IntPart(), nil
}

// FromMinor converts an integer count of minor units back to an amount.
func FromMinor(minor int64, currency string) decimal.Decimal {
	return decimal.New(minor, -Places(currency))
}

// Format renders an amount with exactly the currency's number of decimal places.
func Format(amount decimal.Decimal, currency string) string {
	return amount.StringFixed(Places(currency))
}

// Package currency handles currency code validation and conversion between
// smallest-unit integer amounts and their human-readable decimal form.
package currency

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"slices"
	"strings"

	"github.com/shopspring/decimal"
)

// Supported currency codes.
const (
	SUI  = "SUI"
	USDC = "USDC"
	USDT = "USDT"
	ETH  = "ETH"
)

// decimals maps each supported code to the number of fractional digits in
// one whole unit.
var decimals = map[string]int32{
	SUI:  9,
	USDC: 6,
	USDT: 6,
	ETH:  18,
}

// codeRegex matches an upper-case ticker, e.g. SUI or USDC.
var codeRegex = regexp.MustCompile(`^[A-Z][A-Z0-9]{1,9}$`)

var (
	ErrInvalidCode    = errors.New("currency: invalid code format")
	ErrUnsupported    = errors.New("currency: unsupported currency")
	ErrInvalidAmount  = errors.New("currency: invalid amount")
	ErrAmountTooLarge = errors.New("currency: amount exceeds 64-bit range")
)

var maxUnits = decimal.NewFromUint64(math.MaxUint64)

// Currency is a supported fungible currency.
type Currency struct {
	Code     string `json:"code"`
	Decimals int32  `json:"decimals"`
}

// Parse validates a currency code and resolves its precision.
func Parse(code string) (Currency, error) {
	if !codeRegex.MatchString(code) {
		return Currency{}, fmt.Errorf("%w: %q", ErrInvalidCode, code)
	}
	d, ok := decimals[code]
	if !ok {
		return Currency{}, fmt.Errorf("%w: %s", ErrUnsupported, code)
	}
	return Currency{Code: code, Decimals: d}, nil
}

// Format renders a smallest-unit amount as a fixed-point string,
// e.g. 1500000000 SUI units → "1.500000000".
func (c Currency) Format(amount uint64) string {
	return decimal.NewFromUint64(amount).Shift(-c.Decimals).StringFixed(c.Decimals)
}

// ParseAmount converts a decimal string in whole units into smallest units.
// Fractions finer than the currency precision are rejected, not rounded.
func (c Currency) ParseAmount(s string) (uint64, error) {
	v, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %s", ErrInvalidAmount, s)
	}
	if v.IsNegative() {
		return 0, fmt.Errorf("%w: negative amount %s", ErrInvalidAmount, s)
	}
	units := v.Shift(c.Decimals)
	if !units.Equal(units.Truncate(0)) {
		return 0, fmt.Errorf("%w: %s has more than %d decimal places", ErrInvalidAmount, s, c.Decimals)
	}
	if units.GreaterThan(maxUnits) {
		return 0, fmt.Errorf("%w: %s", ErrAmountTooLarge, s)
	}
	return units.BigInt().Uint64(), nil
}

// Supported returns every supported currency, ordered by code.
func Supported() []Currency {
	out := make([]Currency, 0, len(decimals))
	for code, d := range decimals {
		out = append(out, Currency{Code: code, Decimals: d})
	}
	slices.SortFunc(out, func(a, b Currency) int { return strings.Compare(a.Code, b.Code) })
	return out
}

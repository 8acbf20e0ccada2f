package stockwatch

import (
	"strings"

	"github.com/shopspring/decimal"
)

// UnavailableMarker replaces a ratio whose denominator is zero.
const UnavailableMarker = "-"

var hundred = decimal.NewFromInt(100)

// parseAmount reads a numeric upstream field. Empty or malformed input is
// reported as not ok.
func parseAmount(s string) (decimal.Decimal, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// amountOrZero reads an optional formatted amount, treating absence as zero.
func amountOrZero(s string) decimal.Decimal {
	d, _ := parseAmount(s)
	return d
}

// percentOf returns delta/base*100 fixed to two places, or the unavailable
// marker when base is zero.
func percentOf(delta, base decimal.Decimal) string {
	if base.IsZero() {
		return UnavailableMarker
	}
	return delta.Div(base).Mul(hundred).StringFixed(2)
}

// trendPercent compares the current price with a historical reference. A
// non-positive reference means the history had no close for that horizon.
func trendPercent(current decimal.Decimal, reference float64) string {
	if reference <= 0 {
		return ""
	}
	ref := decimal.NewFromFloat(reference)
	return current.Sub(ref).Div(ref).Mul(hundred).StringFixed(2)
}

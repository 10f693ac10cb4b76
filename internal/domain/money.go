package domain

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Display precision used by the dashboard.
const (
	PricePlaces  int32 = 2
	AmountPlaces int32 = 6
)

// ParsePositive parses s as a decimal for the named field and requires it to
// be > 0 with at most maxPlaces fractional digits.
func ParsePositive(field, s string, maxPlaces int32) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, &ValidationError{Message: fmt.Sprintf("%s is required", field)}
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, &ValidationError{Message: fmt.Sprintf("%s must be a decimal number", field)}
	}
	if !d.IsPositive() {
		return decimal.Zero, &ValidationError{Message: fmt.Sprintf("%s must be > 0", field)}
	}
	// Trailing zeros beyond maxPlaces are accepted.
	if !d.Equal(d.Truncate(maxPlaces)) {
		return decimal.Zero, &ValidationError{Message: fmt.Sprintf("%s must have at most %d decimal places", field, maxPlaces)}
	}
	return d, nil
}

// FormatPrice renders a price with the display precision.
func FormatPrice(d decimal.Decimal) string {
	return d.StringFixed(PricePlaces)
}

// FormatAmount renders an amount with the display precision.
func FormatAmount(d decimal.Decimal) string {
	return d.StringFixed(AmountPlaces)
}

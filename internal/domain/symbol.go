package domain

import (
	"fmt"
	"regexp"
	"strings"
)

var assetRegex = regexp.MustCompile(`^[A-Z0-9]{2,10}$`)

// Pair is a trading symbol split into its base and quote assets, e.g.
// BTC/USDT trades BTC (base) priced in USDT (quote).
type Pair struct {
	Base  string
	Quote string
}

// ParsePair parses a "BASE/QUOTE" symbol.
func ParsePair(symbol string) (Pair, error) {
	base, quote, ok := strings.Cut(symbol, "/")
	if !ok || !assetRegex.MatchString(base) || !assetRegex.MatchString(quote) || base == quote {
		return Pair{}, &ValidationError{
			Message: fmt.Sprintf("symbol must look like BASE/QUOTE with assets matching %s, got %q", assetRegex, symbol),
		}
	}
	return Pair{Base: base, Quote: quote}, nil
}

// String returns the "BASE/QUOTE" form.
func (p Pair) String() string {
	return p.Base + "/" + p.Quote
}

// Compact returns the symbol without separator ("BTCUSDT"), the form used by
// exchange REST APIs.
func (p Pair) Compact() string {
	return p.Base + p.Quote
}

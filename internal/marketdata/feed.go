// Package marketdata reads public market data for a symbol from an external
// exchange and keeps a periodically refreshed snapshot of it.
package marketdata

import (
	"context"
	"time"

	"github.com/efreitasn/papertrade/internal/domain"
	"github.com/shopspring/decimal"
)

// Feed is a source of external market data. Symbols use the BASE/QUOTE form.
type Feed interface {
	BestQuote(ctx context.Context, symbol string) (domain.Quote, error)
	LastPrice(ctx context.Context, symbol string) (decimal.Decimal, error)
	Depth(ctx context.Context, symbol string, limit int) (Depth, error)
	Ticker(ctx context.Context, symbol string) (Ticker, error)
	RecentTrades(ctx context.Context, symbol string, limit int) ([]PublicTrade, error)
}

// Level is one aggregated price level of an external book.
type Level struct {
	Price  decimal.Decimal
	Amount decimal.Decimal
}

// Depth is an external order book snapshot, each side best price first.
type Depth struct {
	Symbol    string
	Bids      []Level
	Asks      []Level
	FetchedAt time.Time
}

// Ticker holds 24h rolling statistics for a symbol.
type Ticker struct {
	Symbol        string
	LastPrice     decimal.Decimal
	OpenPrice     decimal.Decimal
	HighPrice     decimal.Decimal
	LowPrice      decimal.Decimal
	Volume        decimal.Decimal
	ChangePercent decimal.Decimal
}

// PublicTrade is an execution on the external market. Side is the taker's
// side.
type PublicTrade struct {
	ID     int64
	Price  decimal.Decimal
	Amount decimal.Decimal
	Side   domain.Side
	Time   time.Time
}

// quoteFromDepth takes the first level of each side. A missing side is left
// at zero.
func quoteFromDepth(d Depth) domain.Quote {
	q := domain.Quote{
		Symbol:    d.Symbol,
		BidPrice:  decimal.Zero,
		BidQty:    decimal.Zero,
		AskPrice:  decimal.Zero,
		AskQty:    decimal.Zero,
		FetchedAt: d.FetchedAt,
	}
	if len(d.Bids) > 0 {
		q.BidPrice, q.BidQty = d.Bids[0].Price, d.Bids[0].Amount
	}
	if len(d.Asks) > 0 {
		q.AskPrice, q.AskQty = d.Asks[0].Price, d.Asks[0].Amount
	}
	return q
}

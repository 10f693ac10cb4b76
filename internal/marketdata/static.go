package marketdata

import (
	"context"
	"sync"
	"time"

	"github.com/efreitasn/papertrade/internal/domain"
	"github.com/shopspring/decimal"
)

// StaticFeed serves a fixed book that can be replaced at runtime. It backs
// offline runs and tests.
type StaticFeed struct {
	mu     sync.RWMutex
	depth  Depth
	ticker Ticker
	trades []PublicTrade
	now    func() time.Time
}

// NewStaticFeed returns a feed whose book has a single level on each side:
// bid at mid − spread/2 and ask at mid + spread/2, each with amount.
func NewStaticFeed(symbol string, mid, spread, amount decimal.Decimal) *StaticFeed {
	half := spread.Div(decimal.NewFromInt(2))
	f := &StaticFeed{now: time.Now}
	f.SetDepth(Depth{
		Symbol: symbol,
		Bids:   []Level{{Price: mid.Sub(half), Amount: amount}},
		Asks:   []Level{{Price: mid.Add(half), Amount: amount}},
	})
	f.SetTicker(Ticker{
		Symbol:        symbol,
		LastPrice:     mid,
		OpenPrice:     mid,
		HighPrice:     mid,
		LowPrice:      mid,
		Volume:        decimal.Zero,
		ChangePercent: decimal.Zero,
	})
	return f
}

// SetDepth replaces the served book.
func (f *StaticFeed) SetDepth(d Depth) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.depth = d
}

// SetTicker replaces the served ticker.
func (f *StaticFeed) SetTicker(t Ticker) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ticker = t
}

// SetTrades replaces the served trade tape, most recent first.
func (f *StaticFeed) SetTrades(trades []PublicTrade) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.trades = append([]PublicTrade(nil), trades...)
}

// BestQuote returns the first level of each side.
func (f *StaticFeed) BestQuote(ctx context.Context, symbol string) (domain.Quote, error) {
	d, err := f.Depth(ctx, symbol, quoteDepth)
	if err != nil {
		return domain.Quote{}, err
	}
	return quoteFromDepth(d), nil
}

// LastPrice returns the ticker's last price.
func (f *StaticFeed) LastPrice(_ context.Context, _ string) (decimal.Decimal, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.ticker.LastPrice, nil
}

// Depth returns up to limit levels per side.
func (f *StaticFeed) Depth(_ context.Context, symbol string, limit int) (Depth, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	return Depth{
		Symbol:    symbol,
		Bids:      headLevels(f.depth.Bids, limit),
		Asks:      headLevels(f.depth.Asks, limit),
		FetchedAt: f.now(),
	}, nil
}

// Ticker returns the served ticker.
func (f *StaticFeed) Ticker(_ context.Context, symbol string) (Ticker, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	t := f.ticker
	t.Symbol = symbol
	return t, nil
}

// RecentTrades returns up to limit trades, most recent first.
func (f *StaticFeed) RecentTrades(_ context.Context, _ string, limit int) ([]PublicTrade, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	n := limit
	if n > len(f.trades) {
		n = len(f.trades)
	}
	if n < 0 {
		n = 0
	}
	return append([]PublicTrade{}, f.trades[:n]...), nil
}

func headLevels(levels []Level, n int) []Level {
	if n > len(levels) {
		n = len(levels)
	}
	if n < 0 {
		n = 0
	}
	return append([]Level{}, levels[:n]...)
}

package marketdata

import (
	"context"
	"fmt"
	"time"

	"github.com/adshao/go-binance/v2"
	"github.com/efreitasn/papertrade/internal/domain"
	"github.com/shopspring/decimal"
)

const quoteDepth = 5

// BinanceFeed implements Feed using Binance's public spot REST API.
type BinanceFeed struct {
	client  *binance.Client
	timeout time.Duration
	now     func() time.Time
}

// NewBinanceFeed returns a feed talking to baseURL. An empty baseURL keeps
// the client's default endpoint. Each request is bounded by timeout.
func NewBinanceFeed(baseURL string, timeout time.Duration) *BinanceFeed {
	client := binance.NewClient("", "")
	if baseURL != "" {
		client.BaseURL = baseURL
	}
	return &BinanceFeed{
		client:  client,
		timeout: timeout,
		now:     time.Now,
	}
}

// binanceSymbol maps "BTC/USDT" to "BTCUSDT".
func binanceSymbol(symbol string) (string, error) {
	pair, err := domain.ParsePair(symbol)
	if err != nil {
		return "", err
	}
	return pair.Compact(), nil
}

func (f *BinanceFeed) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if f.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, f.timeout)
}

// BestQuote returns the first level of each side of the book.
func (f *BinanceFeed) BestQuote(ctx context.Context, symbol string) (domain.Quote, error) {
	d, err := f.Depth(ctx, symbol, quoteDepth)
	if err != nil {
		return domain.Quote{}, err
	}
	return quoteFromDepth(d), nil
}

// LastPrice returns the latest traded price.
func (f *BinanceFeed) LastPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	s, err := binanceSymbol(symbol)
	if err != nil {
		return decimal.Zero, err
	}
	ctx, cancel := f.withTimeout(ctx)
	defer cancel()

	prices, err := f.client.NewListPricesService().Symbol(s).Do(ctx)
	if err != nil {
		return decimal.Zero, fmt.Errorf("binance: list prices %s: %w", s, err)
	}
	for _, p := range prices {
		if p.Symbol == s {
			return decimal.NewFromString(p.Price)
		}
	}
	return decimal.Zero, fmt.Errorf("binance: no price for %s", s)
}

// Depth returns up to limit levels per side.
func (f *BinanceFeed) Depth(ctx context.Context, symbol string, limit int) (Depth, error) {
	s, err := binanceSymbol(symbol)
	if err != nil {
		return Depth{}, err
	}
	ctx, cancel := f.withTimeout(ctx)
	defer cancel()

	res, err := f.client.NewDepthService().Symbol(s).Limit(limit).Do(ctx)
	if err != nil {
		return Depth{}, fmt.Errorf("binance: depth %s: %w", s, err)
	}

	d := Depth{
		Symbol:    symbol,
		Bids:      make([]Level, 0, len(res.Bids)),
		Asks:      make([]Level, 0, len(res.Asks)),
		FetchedAt: f.now(),
	}
	for _, b := range res.Bids {
		lvl, err := parseLevel(b.Price, b.Quantity)
		if err != nil {
			return Depth{}, fmt.Errorf("binance: depth %s bid: %w", s, err)
		}
		d.Bids = append(d.Bids, lvl)
	}
	for _, a := range res.Asks {
		lvl, err := parseLevel(a.Price, a.Quantity)
		if err != nil {
			return Depth{}, fmt.Errorf("binance: depth %s ask: %w", s, err)
		}
		d.Asks = append(d.Asks, lvl)
	}
	return d, nil
}

// Ticker returns 24h statistics.
func (f *BinanceFeed) Ticker(ctx context.Context, symbol string) (Ticker, error) {
	s, err := binanceSymbol(symbol)
	if err != nil {
		return Ticker{}, err
	}
	ctx, cancel := f.withTimeout(ctx)
	defer cancel()

	stats, err := f.client.NewListPriceChangeStatsService().Symbol(s).Do(ctx)
	if err != nil {
		return Ticker{}, fmt.Errorf("binance: ticker %s: %w", s, err)
	}
	if len(stats) == 0 {
		return Ticker{}, fmt.Errorf("binance: no ticker for %s", s)
	}

	st := stats[0]
	t := Ticker{Symbol: symbol}
	fields := []struct {
		dst *decimal.Decimal
		raw string
	}{
		{&t.LastPrice, st.LastPrice},
		{&t.OpenPrice, st.OpenPrice},
		{&t.HighPrice, st.HighPrice},
		{&t.LowPrice, st.LowPrice},
		{&t.Volume, st.Volume},
		{&t.ChangePercent, st.PriceChangePercent},
	}
	for _, fl := range fields {
		v, err := decimal.NewFromString(fl.raw)
		if err != nil {
			return Ticker{}, fmt.Errorf("binance: ticker %s: %w", s, err)
		}
		*fl.dst = v
	}
	return t, nil
}

// RecentTrades returns up to limit public trades, most recent first.
func (f *BinanceFeed) RecentTrades(ctx context.Context, symbol string, limit int) ([]PublicTrade, error) {
	s, err := binanceSymbol(symbol)
	if err != nil {
		return nil, err
	}
	ctx, cancel := f.withTimeout(ctx)
	defer cancel()

	res, err := f.client.NewRecentTradesService().Symbol(s).Limit(limit).Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("binance: trades %s: %w", s, err)
	}

	// Binance returns the tape oldest first.
	out := make([]PublicTrade, 0, len(res))
	for i := len(res) - 1; i >= 0; i-- {
		tr := res[i]
		lvl, err := parseLevel(tr.Price, tr.Quantity)
		if err != nil {
			return nil, fmt.Errorf("binance: trade %d: %w", tr.ID, err)
		}
		side := domain.SideBuy
		if tr.IsBuyerMaker {
			side = domain.SideSell
		}
		out = append(out, PublicTrade{
			ID:     tr.ID,
			Price:  lvl.Price,
			Amount: lvl.Amount,
			Side:   side,
			Time:   time.UnixMilli(tr.Time),
		})
	}
	return out, nil
}

func parseLevel(price, qty string) (Level, error) {
	p, err := decimal.NewFromString(price)
	if err != nil {
		return Level{}, err
	}
	q, err := decimal.NewFromString(qty)
	if err != nil {
		return Level{}, err
	}
	return Level{Price: p, Amount: q}, nil
}

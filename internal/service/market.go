package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/efreitasn/papertrade/internal/domain"
	"github.com/efreitasn/papertrade/internal/engine"
	"github.com/efreitasn/papertrade/internal/marketdata"
	"github.com/shopspring/decimal"
)

// SnapshotSource provides the latest external market snapshot.
type SnapshotSource interface {
	Snapshot() marketdata.Snapshot
}

// BookRow is one row of the merged book: an external price level or one of
// the trader's resting orders.
type BookRow struct {
	Side   domain.Side
	Price  decimal.Decimal
	Amount decimal.Decimal
	Origin engine.Origin
	Status domain.OrderStatus // empty for external levels
}

// BookView is the external book merged with the trader's resting orders.
type BookView struct {
	Symbol    string
	Asks      []BookRow // best (lowest) first
	Bids      []BookRow // best (highest) first
	Spread    *decimal.Decimal
	LastPrice *decimal.Decimal
	UpdatedAt time.Time
	MarketErr error
}

// TradeRow is one row of the trade tape.
type TradeRow struct {
	Time   time.Time
	Price  decimal.Decimal
	Amount decimal.Decimal
	Side   domain.Side
	Origin engine.Origin
}

// AssetBalance is one asset's balance in the portfolio.
type AssetBalance struct {
	Asset    string
	Free     decimal.Decimal
	Reserved decimal.Decimal
	Total    decimal.Decimal
}

// Portfolio is the trader's balances valued at the last price.
type Portfolio struct {
	Balances     []AssetBalance // base first
	LastPrice    decimal.Decimal
	TotalValue   decimal.Decimal
	InitialValue decimal.Decimal
	PnL          decimal.Decimal
	PnLPercent   decimal.Decimal
}

// MarketView summarizes the external market.
type MarketView struct {
	Symbol    string
	Ticker    marketdata.Ticker
	Ready     bool
	UpdatedAt time.Time
	MarketErr error
}

// MarketService builds the read models shown by the dashboard.
type MarketService struct {
	exchange     *engine.Exchange
	market       SnapshotSource
	initialBase  decimal.Decimal
	initialQuote decimal.Decimal

	mu           sync.Mutex
	initialValue *decimal.Decimal
}

// NewMarketService creates a MarketService. initialBase and initialQuote are
// the balances the trader started with; PnL is measured against their value
// at the first price seen.
func NewMarketService(exchange *engine.Exchange, market SnapshotSource, initialBase, initialQuote decimal.Decimal) *MarketService {
	return &MarketService{
		exchange:     exchange,
		market:       market,
		initialBase:  initialBase,
		initialQuote: initialQuote,
	}
}

// Market returns the latest external ticker.
func (s *MarketService) Market() MarketView {
	snap := s.market.Snapshot()
	return MarketView{
		Symbol:    s.exchange.Symbol(),
		Ticker:    snap.Ticker,
		Ready:     snap.Ready(),
		UpdatedAt: snap.UpdatedAt,
		MarketErr: snap.Err,
	}
}

// Book merges up to depth external levels per side with every resting order
// of the trader. At equal prices external levels come first.
func (s *MarketService) Book(depth int) BookView {
	snap := s.market.Snapshot()
	bids, asks := s.exchange.RestingOrders()

	view := BookView{
		Symbol:    s.exchange.Symbol(),
		Asks:      mergeSide(domain.SideSell, headLevels(snap.Depth.Asks, depth), asks),
		Bids:      mergeSide(domain.SideBuy, headLevels(snap.Depth.Bids, depth), bids),
		UpdatedAt: snap.UpdatedAt,
		MarketErr: snap.Err,
	}
	if len(snap.Depth.Asks) > 0 && len(snap.Depth.Bids) > 0 {
		spread := snap.Depth.Asks[0].Price.Sub(snap.Depth.Bids[0].Price)
		view.Spread = &spread
	}
	if snap.Ready() {
		last := snap.Ticker.LastPrice
		view.LastPrice = &last
	}
	return view
}

func headLevels(levels []marketdata.Level, n int) []marketdata.Level {
	if n < 0 {
		n = 0
	}
	if n > len(levels) {
		n = len(levels)
	}
	return levels[:n]
}

func mergeSide(side domain.Side, levels []marketdata.Level, resting []engine.RestingOrder) []BookRow {
	rows := make([]BookRow, 0, len(levels)+len(resting))
	for _, l := range levels {
		rows = append(rows, BookRow{
			Side:   side,
			Price:  l.Price,
			Amount: l.Amount,
			Origin: engine.OriginMarket,
		})
	}
	for _, o := range resting {
		rows = append(rows, BookRow{
			Side:   side,
			Price:  o.Price,
			Amount: o.Remaining,
			Origin: o.Origin,
			Status: o.Status,
		})
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if side == domain.SideBuy {
			return rows[i].Price.GreaterThan(rows[j].Price)
		}
		return rows[i].Price.LessThan(rows[j].Price)
	})
	return rows
}

// Trades returns up to limit rows: the trader's own fills, most recent
// first, followed by public trades until limit is reached.
func (s *MarketService) Trades(limit int) []TradeRow {
	if limit <= 0 {
		return []TradeRow{}
	}
	rows := make([]TradeRow, 0, limit)
	for _, t := range s.exchange.RecentTrades(limit) {
		rows = append(rows, TradeRow{
			Time:   t.ExecutedAt,
			Price:  t.Price,
			Amount: t.Amount,
			Side:   t.Side,
			Origin: engine.OriginUser,
		})
	}
	for _, t := range s.market.Snapshot().Trades {
		if len(rows) >= limit {
			break
		}
		rows = append(rows, TradeRow{
			Time:   t.Time,
			Price:  t.Price,
			Amount: t.Amount,
			Side:   t.Side,
			Origin: engine.OriginMarket,
		})
	}
	return rows
}

// Price returns the external last price, from the snapshot when available
// and from the exchange's quote source otherwise.
func (s *MarketService) Price(ctx context.Context) (decimal.Decimal, error) {
	if snap := s.market.Snapshot(); snap.Ready() && snap.Ticker.LastPrice.IsPositive() {
		return snap.Ticker.LastPrice, nil
	}
	return s.exchange.LastPrice(ctx)
}

// Portfolio values the trader's balances at the last price.
func (s *MarketService) Portfolio(ctx context.Context) (Portfolio, error) {
	last, err := s.Price(ctx)
	if err != nil {
		return Portfolio{}, err
	}

	pair := s.exchange.Pair()
	balances := s.exchange.Balances()
	base, quote := balances[pair.Base], balances[pair.Quote]

	p := Portfolio{
		Balances: []AssetBalance{
			{Asset: pair.Base, Free: base.Free, Reserved: base.Reserved, Total: base.Total()},
			{Asset: pair.Quote, Free: quote.Free, Reserved: quote.Reserved, Total: quote.Total()},
		},
		LastPrice:  last,
		TotalValue: quote.Total().Add(base.Total().Mul(last)),
	}
	p.InitialValue = s.initial(last)
	p.PnL = p.TotalValue.Sub(p.InitialValue)
	p.PnLPercent = decimal.Zero
	if p.InitialValue.IsPositive() {
		p.PnLPercent = p.PnL.Div(p.InitialValue).Mul(decimal.NewFromInt(100))
	}
	return p, nil
}

// initial returns the starting portfolio value, fixing it at price the first
// time it is asked for.
func (s *MarketService) initial(price decimal.Decimal) decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.initialValue == nil {
		v := s.initialQuote.Add(s.initialBase.Mul(price))
		s.initialValue = &v
	}
	return *s.initialValue
}

// CaptureInitialValue fixes the starting portfolio value at the current
// price. It is a no-op once a value has been captured.
func (s *MarketService) CaptureInitialValue(ctx context.Context) error {
	price, err := s.Price(ctx)
	if err != nil {
		return err
	}
	s.initial(price)
	return nil
}

package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/efreitasn/papertrade/internal/domain"
	"github.com/shopspring/decimal"
)

// QuoteSource supplies one-level external quotes for a symbol.
type QuoteSource interface {
	BestQuote(ctx context.Context, symbol string) (domain.Quote, error)
	LastPrice(ctx context.Context, symbol string) (decimal.Decimal, error)
}

// Origin tells a resting order placed by the trader apart from one that
// stands in for external liquidity.
type Origin string

const (
	OriginMarket Origin = "market"
	OriginUser   Origin = "user"
)

// RestingOrder is a read-only view of an order on the book.
type RestingOrder struct {
	OrderID   string
	Side      domain.Side
	Price     decimal.Decimal
	Remaining decimal.Decimal
	Origin    Origin
	Status    domain.OrderStatus
}

// Placement is the outcome of a successful order placement.
type Placement struct {
	Order  domain.Order
	Trades []*domain.Trade
}

// Exchange owns the book and the trader's account for one symbol and runs
// every operation on them under a single lock.
type Exchange struct {
	mu      sync.Mutex
	book    *OrderBook
	account *TraderAccount
	quotes  QuoteSource
	logger  *slog.Logger
}

// NewExchange creates an Exchange over book and account. Market orders are
// priced from quotes.
func NewExchange(book *OrderBook, account *TraderAccount, quotes QuoteSource, logger *slog.Logger) *Exchange {
	return &Exchange{
		book:    book,
		account: account,
		quotes:  quotes,
		logger:  logger,
	}
}

// Symbol returns the traded symbol.
func (e *Exchange) Symbol() string {
	return e.book.Symbol()
}

// Pair returns the traded pair.
func (e *Exchange) Pair() domain.Pair {
	return e.account.Pair()
}

// TraderID returns the id of the account's trader.
func (e *Exchange) TraderID() string {
	return e.account.ID()
}

// MarketBuy buys amount at the external best ask.
func (e *Exchange) MarketBuy(ctx context.Context, amount decimal.Decimal) (Placement, error) {
	return e.market(ctx, domain.SideBuy, amount)
}

// MarketSell sells amount at the external best bid.
func (e *Exchange) MarketSell(ctx context.Context, amount decimal.Decimal) (Placement, error) {
	return e.market(ctx, domain.SideSell, amount)
}

// market fetches the external quote before touching any state, then matches
// the order against a single synthetic resting order built from it. The
// book's own orders on that side are swapped out for the duration of the
// call and put back afterwards.
func (e *Exchange) market(ctx context.Context, side domain.Side, amount decimal.Decimal) (Placement, error) {
	if !amount.IsPositive() {
		return Placement{}, &domain.ValidationError{Message: "amount must be > 0"}
	}

	quote, err := e.quotes.BestQuote(ctx, e.book.Symbol())
	if err != nil {
		return Placement{}, fmt.Errorf("%w: %v", domain.ErrMarketUnavailable, err)
	}
	price, qty, ok := quote.Best(side)
	if !ok {
		return Placement{}, fmt.Errorf("%w: no external %s side for %s", domain.ErrNoLiquidity, side.Opposite(), e.book.Symbol())
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	synthetic, err := domain.NewOrder(domain.MarketTraderID, side.Opposite(), e.book.Symbol(), qty, price, quote.FetchedAt)
	if err != nil {
		return Placement{}, err
	}
	restore := e.book.ReplaceSide(side.Opposite(), synthetic)
	defer restore()

	order, trades, err := e.account.placeMarket(e.book, side, amount, price)
	if err != nil {
		return Placement{}, err
	}
	if len(trades) == 0 {
		e.logger.Error("market order did not match synthetic counterparty",
			slog.String("order_id", order.ID),
			slog.String("side", string(side)),
			slog.String("price", price.String()),
		)
	}
	return Placement{Order: *order, Trades: trades}, nil
}

// LimitBuy places a limit buy of amount at price.
func (e *Exchange) LimitBuy(amount, price decimal.Decimal) (Placement, error) {
	return e.limit(domain.SideBuy, amount, price)
}

// LimitSell places a limit sell of amount at price.
func (e *Exchange) LimitSell(amount, price decimal.Decimal) (Placement, error) {
	return e.limit(domain.SideSell, amount, price)
}

func (e *Exchange) limit(side domain.Side, amount, price decimal.Decimal) (Placement, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	order, trades, err := e.account.placeLimit(e.book, side, amount, price)
	if err != nil {
		return Placement{}, err
	}
	return Placement{Order: *order, Trades: trades}, nil
}

// LastPrice returns the external last traded price.
func (e *Exchange) LastPrice(ctx context.Context) (decimal.Decimal, error) {
	p, err := e.quotes.LastPrice(ctx, e.book.Symbol())
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %v", domain.ErrMarketUnavailable, err)
	}
	return p, nil
}

// RestingOrders returns the resting bids and asks, each best first.
func (e *Exchange) RestingOrders() (bids, asks []RestingOrder) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return restingView(e.book.Bids()), restingView(e.book.Asks())
}

func restingView(orders []*domain.Order) []RestingOrder {
	out := make([]RestingOrder, 0, len(orders))
	for _, o := range orders {
		origin := OriginUser
		if o.IsSynthetic() {
			origin = OriginMarket
		}
		out = append(out, RestingOrder{
			OrderID:   o.ID,
			Side:      o.Side,
			Price:     o.Price,
			Remaining: o.RemainingAmount,
			Origin:    origin,
			Status:    o.Status,
		})
	}
	return out
}

// RecentTrades returns up to n of the trader's trades, most recent first.
func (e *Exchange) RecentTrades(n int) []domain.Trade {
	e.mu.Lock()
	defer e.mu.Unlock()

	trades := e.account.RecentTrades(n)
	out := make([]domain.Trade, len(trades))
	for i, t := range trades {
		out[i] = *t
	}
	return out
}

// Balances returns a copy of the trader's balances keyed by asset.
func (e *Exchange) Balances() map[string]Balance {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.account.Balances()
}

// Order returns a copy of one of the trader's orders.
func (e *Exchange) Order(orderID string) (domain.Order, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	o, err := e.account.Orders().Get(orderID)
	if err != nil {
		return domain.Order{}, err
	}
	return *o, nil
}

// Orders returns a page of the trader's orders, newest first, optionally
// filtered by status, and the total number of matching orders.
func (e *Exchange) Orders(status *domain.OrderStatus, page, limit int) ([]domain.Order, int) {
	e.mu.Lock()
	defer e.mu.Unlock()

	orders, total := e.account.Orders().ListByTrader(e.account.ID(), status, page, limit)
	out := make([]domain.Order, len(orders))
	for i, o := range orders {
		out[i] = *o
	}
	return out, total
}

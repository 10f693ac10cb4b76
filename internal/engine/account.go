package engine

import (
	"fmt"
	"time"

	"github.com/efreitasn/papertrade/internal/domain"
	"github.com/efreitasn/papertrade/internal/store"
	"github.com/shopspring/decimal"
)

// Balance is the split of one asset between what is free to spend and what
// is locked by resting limit orders.
type Balance struct {
	Free     decimal.Decimal
	Reserved decimal.Decimal
}

// Total returns free plus reserved.
func (b Balance) Total() decimal.Decimal {
	return b.Free.Add(b.Reserved)
}

// TraderAccount holds a trader's base/quote balances and order and trade
// history, and places orders on a book on the trader's behalf. It is not
// safe for concurrent use; Exchange serializes access.
type TraderAccount struct {
	id       string
	pair     domain.Pair
	balances map[string]*Balance
	orders   *store.OrderStore
	trades   *store.TradeStore
	now      func() time.Time
}

// NewTraderAccount creates an account for id trading pair, funded with the
// given base and quote balances.
func NewTraderAccount(id string, pair domain.Pair, base, quote decimal.Decimal) *TraderAccount {
	return &TraderAccount{
		id:   id,
		pair: pair,
		balances: map[string]*Balance{
			pair.Base:  {Free: base, Reserved: decimal.Zero},
			pair.Quote: {Free: quote, Reserved: decimal.Zero},
		},
		orders: store.NewOrderStore(),
		trades: store.NewTradeStore(),
		now:    time.Now,
	}
}

// ID returns the trader id.
func (a *TraderAccount) ID() string {
	return a.id
}

// Pair returns the traded pair.
func (a *TraderAccount) Pair() domain.Pair {
	return a.pair
}

// Balance returns a copy of the balance held in asset.
func (a *TraderAccount) Balance(asset string) Balance {
	b, ok := a.balances[asset]
	if !ok {
		return Balance{Free: decimal.Zero, Reserved: decimal.Zero}
	}
	return *b
}

// Balances returns a copy of every balance keyed by asset.
func (a *TraderAccount) Balances() map[string]Balance {
	out := make(map[string]Balance, len(a.balances))
	for asset, b := range a.balances {
		out[asset] = *b
	}
	return out
}

// Orders returns the account's order history.
func (a *TraderAccount) Orders() *store.OrderStore {
	return a.orders
}

// RecentTrades returns up to n of the account's trades, most recent first.
func (a *TraderAccount) RecentTrades(n int) []*domain.Trade {
	return a.trades.Recent(a.pair.String(), n)
}

// PlaceMarketBuy buys amount against book at price, paying the resting
// price of each execution. The quote balance must cover amount × price.
// Whatever is not matched is withdrawn from the book before returning.
func (a *TraderAccount) PlaceMarketBuy(book *OrderBook, amount, price decimal.Decimal) ([]*domain.Trade, error) {
	_, trades, err := a.placeMarket(book, domain.SideBuy, amount, price)
	return trades, err
}

// PlaceMarketSell sells amount against book at price. The base balance must
// cover amount.
func (a *TraderAccount) PlaceMarketSell(book *OrderBook, amount, price decimal.Decimal) ([]*domain.Trade, error) {
	_, trades, err := a.placeMarket(book, domain.SideSell, amount, price)
	return trades, err
}

// PlaceLimitBuy reserves amount × price of quote and submits a buy at price.
// It matches immediately when a resting sell at or below price exists and
// otherwise rests on the book without a matching pass.
func (a *TraderAccount) PlaceLimitBuy(book *OrderBook, amount, price decimal.Decimal) ([]*domain.Trade, error) {
	_, trades, err := a.placeLimit(book, domain.SideBuy, amount, price)
	return trades, err
}

// PlaceLimitSell reserves amount of base and submits a sell at price. It
// matches immediately when a resting buy at or above price exists and
// otherwise rests on the book without a matching pass.
func (a *TraderAccount) PlaceLimitSell(book *OrderBook, amount, price decimal.Decimal) ([]*domain.Trade, error) {
	_, trades, err := a.placeLimit(book, domain.SideSell, amount, price)
	return trades, err
}

func (a *TraderAccount) placeMarket(book *OrderBook, side domain.Side, amount, price decimal.Decimal) (*domain.Order, []*domain.Trade, error) {
	order, err := a.newOrder(book, side, amount, price)
	if err != nil {
		return nil, nil, err
	}
	if err := a.checkFunds(side, amount, price); err != nil {
		return nil, nil, err
	}

	a.orders.Create(order)
	trades, err := book.Submit(order)
	book.Remove(order.ID)
	if err != nil {
		return order, nil, err
	}

	for _, t := range trades {
		a.settleTaker(order, t, false)
		a.settleMaker(t)
		a.trades.Append(t)
	}
	return order, trades, nil
}

func (a *TraderAccount) placeLimit(book *OrderBook, side domain.Side, amount, price decimal.Decimal) (*domain.Order, []*domain.Trade, error) {
	order, err := a.newOrder(book, side, amount, price)
	if err != nil {
		return nil, nil, err
	}
	if err := a.checkFunds(side, amount, price); err != nil {
		return nil, nil, err
	}

	crossing := book.HasCrossing(side, price)

	asset, reservation := a.reservationFor(order)
	a.reserve(asset, reservation)

	if !crossing {
		a.orders.Create(order)
		book.Insert(order)
		return order, []*domain.Trade{}, nil
	}

	trades, err := book.Submit(order)
	if err == nil && len(trades) == 0 {
		err = fmt.Errorf("%w: order %s crossed the book but produced no trades", domain.ErrNoLiquidity, order.ID)
	}
	if err != nil {
		book.Remove(order.ID)
		a.release(asset, reservation)
		return nil, nil, err
	}

	a.orders.Create(order)
	for _, t := range trades {
		a.settleTaker(order, t, true)
		a.settleMaker(t)
		a.trades.Append(t)
	}
	return order, trades, nil
}

func (a *TraderAccount) newOrder(book *OrderBook, side domain.Side, amount, price decimal.Decimal) (*domain.Order, error) {
	if book.Symbol() != a.pair.String() {
		return nil, &domain.ValidationError{
			Message: fmt.Sprintf("book %s does not trade %s", book.Symbol(), a.pair),
		}
	}
	return domain.NewOrder(a.id, side, book.Symbol(), amount, price, a.now())
}

// checkFunds verifies the free balance covers the order: amount × price of
// quote for a buy, amount of base for a sell.
func (a *TraderAccount) checkFunds(side domain.Side, amount, price decimal.Decimal) error {
	asset, need := a.pair.Base, amount
	if side == domain.SideBuy {
		asset, need = a.pair.Quote, amount.Mul(price)
	}
	have := a.balances[asset].Free
	if have.LessThan(need) {
		return fmt.Errorf("%w: required %s %s, available %s", domain.ErrInsufficientFunds, need, asset, have)
	}
	return nil
}

func (a *TraderAccount) reservationFor(o *domain.Order) (string, decimal.Decimal) {
	if o.Side == domain.SideBuy {
		return a.pair.Quote, o.Notional(o.RemainingAmount)
	}
	return a.pair.Base, o.RemainingAmount
}

func (a *TraderAccount) reserve(asset string, amount decimal.Decimal) {
	b := a.balances[asset]
	b.Free = b.Free.Sub(amount)
	b.Reserved = b.Reserved.Add(amount)
}

func (a *TraderAccount) release(asset string, amount decimal.Decimal) {
	b := a.balances[asset]
	b.Reserved = b.Reserved.Sub(amount)
	b.Free = b.Free.Add(amount)
}

// settleTaker applies a trade to the incoming order's owner. A reserved
// order consumes its reservation at its own limit price and gets the
// difference to the execution price back immediately.
func (a *TraderAccount) settleTaker(o *domain.Order, t *domain.Trade, reserved bool) {
	base, quote := a.balances[a.pair.Base], a.balances[a.pair.Quote]

	if o.Side == domain.SideBuy {
		if reserved {
			locked := o.Notional(t.Amount)
			quote.Reserved = quote.Reserved.Sub(locked)
			quote.Free = quote.Free.Add(locked)
		}
		quote.Free = quote.Free.Sub(t.Total)
		base.Free = base.Free.Add(t.Amount)
		return
	}

	if reserved {
		base.Reserved = base.Reserved.Sub(t.Amount)
	} else {
		base.Free = base.Free.Sub(t.Amount)
	}
	quote.Free = quote.Free.Add(t.Total)
}

// settleMaker applies a trade to the resting order when the account owns it.
// The resting order was reserved when it was placed; executions happen at
// its own price so the reservation is consumed exactly.
func (a *TraderAccount) settleMaker(t *domain.Trade) {
	if t.MakerTraderID != a.id {
		return
	}
	base, quote := a.balances[a.pair.Base], a.balances[a.pair.Quote]

	if t.Side == domain.SideSell {
		// The resting order was a buy.
		quote.Reserved = quote.Reserved.Sub(t.Total)
		base.Free = base.Free.Add(t.Amount)
		return
	}
	base.Reserved = base.Reserved.Sub(t.Amount)
	quote.Free = quote.Free.Add(t.Total)
}

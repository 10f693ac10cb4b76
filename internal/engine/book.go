package engine

import (
	"time"

	"github.com/efreitasn/papertrade/internal/domain"
	"github.com/efreitasn/papertrade/internal/store"
	"github.com/google/btree"
	"github.com/shopspring/decimal"
)

// bookEntry is a single order resting on the book. Seq is assigned on
// insertion and gives time priority among equal prices.
type bookEntry struct {
	Price decimal.Decimal
	Seq   uint64
	Order *domain.Order
}

// bidLess orders the bid side by price descending, then insertion order.
// Min() returns the best bid.
func bidLess(a, b bookEntry) bool {
	if c := a.Price.Cmp(b.Price); c != 0 {
		return c > 0
	}
	return a.Seq < b.Seq
}

// askLess orders the ask side by price ascending, then insertion order.
// Min() returns the best ask.
func askLess(a, b bookEntry) bool {
	if c := a.Price.Cmp(b.Price); c != 0 {
		return c < 0
	}
	return a.Seq < b.Seq
}

// PriceLevel is an aggregated price level of one side of the book.
type PriceLevel struct {
	Price       decimal.Decimal
	TotalAmount decimal.Decimal
	OrderCount  int
}

// OrderBook holds the resting bids and asks for a single symbol and the
// book's trade history. It is not safe for concurrent use; Exchange
// serializes access.
type OrderBook struct {
	symbol string
	bids   *btree.BTreeG[bookEntry]
	asks   *btree.BTreeG[bookEntry]
	index  map[string]bookEntry // order id → entry
	seq    uint64
	trades *store.TradeStore
	now    func() time.Time
}

const btreeDegree = 32

// NewOrderBook creates an empty order book for symbol that records its
// executions in trades.
func NewOrderBook(symbol string, trades *store.TradeStore) *OrderBook {
	return &OrderBook{
		symbol: symbol,
		bids:   btree.NewG[bookEntry](btreeDegree, bidLess),
		asks:   btree.NewG[bookEntry](btreeDegree, askLess),
		index:  make(map[string]bookEntry),
		trades: trades,
		now:    time.Now,
	}
}

// Symbol returns the book's symbol.
func (ob *OrderBook) Symbol() string {
	return ob.symbol
}

func (ob *OrderBook) side(s domain.Side) *btree.BTreeG[bookEntry] {
	if s == domain.SideBuy {
		return ob.bids
	}
	return ob.asks
}

// Insert rests o on its own side without matching. Inserting an order that
// is already resting is a no-op.
func (ob *OrderBook) Insert(o *domain.Order) {
	if _, ok := ob.index[o.ID]; ok {
		return
	}
	ob.seq++
	entry := bookEntry{Price: o.Price, Seq: ob.seq, Order: o}
	ob.side(o.Side).ReplaceOrInsert(entry)
	ob.index[o.ID] = entry
}

// Remove takes an order off the book by id. It reports whether the order
// was resting.
func (ob *OrderBook) Remove(orderID string) bool {
	entry, ok := ob.index[orderID]
	if !ok {
		return false
	}
	delete(ob.index, orderID)
	ob.side(entry.Order.Side).Delete(entry)
	return true
}

// Contains reports whether the order is resting on the book.
func (ob *OrderBook) Contains(orderID string) bool {
	_, ok := ob.index[orderID]
	return ok
}

// BestBid returns the highest-priority bid (highest price, earliest insertion).
func (ob *OrderBook) BestBid() (*domain.Order, bool) {
	e, ok := ob.bids.Min()
	return e.Order, ok
}

// BestAsk returns the highest-priority ask (lowest price, earliest insertion).
func (ob *OrderBook) BestAsk() (*domain.Order, bool) {
	e, ok := ob.asks.Min()
	return e.Order, ok
}

// HasCrossing reports whether any resting order on the side opposite to
// side would trade with an incoming order at price.
func (ob *OrderBook) HasCrossing(side domain.Side, price decimal.Decimal) bool {
	if side == domain.SideBuy {
		best, ok := ob.BestAsk()
		return ok && best.Price.LessThanOrEqual(price)
	}
	best, ok := ob.BestBid()
	return ok && best.Price.GreaterThanOrEqual(price)
}

// Bids returns the resting bids in priority order.
func (ob *OrderBook) Bids() []*domain.Order {
	return collect(ob.bids)
}

// Asks returns the resting asks in priority order.
func (ob *OrderBook) Asks() []*domain.Order {
	return collect(ob.asks)
}

func collect(tree *btree.BTreeG[bookEntry]) []*domain.Order {
	out := make([]*domain.Order, 0, tree.Len())
	tree.Ascend(func(e bookEntry) bool {
		out = append(out, e.Order)
		return true
	})
	return out
}

// TopBids returns up to n aggregated bid levels, best first.
func (ob *OrderBook) TopBids(n int) []PriceLevel {
	return topLevels(ob.bids, n)
}

// TopAsks returns up to n aggregated ask levels, best first.
func (ob *OrderBook) TopAsks(n int) []PriceLevel {
	return topLevels(ob.asks, n)
}

func topLevels(tree *btree.BTreeG[bookEntry], n int) []PriceLevel {
	if n <= 0 {
		return nil
	}
	levels := make([]PriceLevel, 0, n)
	tree.Ascend(func(e bookEntry) bool {
		if len(levels) > 0 && levels[len(levels)-1].Price.Equal(e.Price) {
			last := &levels[len(levels)-1]
			last.TotalAmount = last.TotalAmount.Add(e.Order.RemainingAmount)
			last.OrderCount++
			return true
		}
		if len(levels) >= n {
			return false
		}
		levels = append(levels, PriceLevel{
			Price:       e.Price,
			TotalAmount: e.Order.RemainingAmount,
			OrderCount:  1,
		})
		return true
	})
	return levels
}

// BidCount returns the number of resting bids.
func (ob *OrderBook) BidCount() int {
	return ob.bids.Len()
}

// AskCount returns the number of resting asks.
func (ob *OrderBook) AskCount() int {
	return ob.asks.Len()
}

// ReplaceSide swaps out every resting order on side for the given orders
// and returns a function that puts the previous orders back. Orders added
// while swapped out, and whatever is left of the replacements, are dropped
// on restore.
func (ob *OrderBook) ReplaceSide(side domain.Side, orders ...*domain.Order) (restore func()) {
	saved := ob.side(side)
	for _, o := range collect(saved) {
		delete(ob.index, o.ID)
	}

	less := askLess
	if side == domain.SideBuy {
		less = bidLess
	}
	ob.setSide(side, btree.NewG[bookEntry](btreeDegree, less))
	for _, o := range orders {
		ob.Insert(o)
	}

	return func() {
		for _, o := range collect(ob.side(side)) {
			delete(ob.index, o.ID)
		}
		ob.setSide(side, saved)
		saved.Ascend(func(e bookEntry) bool {
			ob.index[e.Order.ID] = e
			return true
		})
	}
}

func (ob *OrderBook) setSide(s domain.Side, tree *btree.BTreeG[bookEntry]) {
	if s == domain.SideBuy {
		ob.bids = tree
	} else {
		ob.asks = tree
	}
}

// RecentTrades returns up to n of the book's executions, most recent first.
func (ob *OrderBook) RecentTrades(n int) []*domain.Trade {
	return ob.trades.Recent(ob.symbol, n)
}

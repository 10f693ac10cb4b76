package engine

import (
	"fmt"

	"github.com/efreitasn/papertrade/internal/domain"
	"github.com/shopspring/decimal"
)

// Submit rests the incoming order on its own side and matches it against the
// opposite side, best price first and earliest insertion among equal prices.
// Every execution happens at the resting order's price. Matching stops once
// the incoming order is filled or the next resting order no longer crosses.
// Filled resting orders leave the book; whatever is left of the incoming
// order keeps resting at its limit price.
//
// The returned slice is empty when nothing matched.
func (ob *OrderBook) Submit(o *domain.Order) ([]*domain.Trade, error) {
	if o.Symbol != ob.symbol {
		return nil, &domain.ValidationError{
			Message: fmt.Sprintf("order symbol %s does not match book %s", o.Symbol, ob.symbol),
		}
	}
	if o.Status.Terminal() {
		return nil, fmt.Errorf("%w: cannot submit %s order %s", domain.ErrIllegalTransition, o.Status, o.ID)
	}

	ob.Insert(o)

	var (
		trades []*domain.Trade
		filled []bookEntry
		err    error
	)
	// Resting entries are collected during the walk and removed after it, so
	// the tree is never mutated while being iterated.
	ob.side(o.Side.Opposite()).Ascend(func(r bookEntry) bool {
		resting := r.Order
		if !o.Crosses(resting) {
			return false
		}

		qty := decimal.Min(o.RemainingAmount, resting.RemainingAmount)
		price := resting.Price

		if err = o.Fill(qty); err != nil {
			return false
		}
		if err = resting.Fill(qty); err != nil {
			return false
		}

		t := domain.NewTrade(o, resting, qty, price, ob.now())
		trades = append(trades, t)
		ob.trades.Append(t)

		if resting.Status == domain.OrderStatusFilled {
			filled = append(filled, r)
		}
		return o.Status != domain.OrderStatusFilled
	})

	for _, r := range filled {
		ob.Remove(r.Order.ID)
	}
	if o.Status == domain.OrderStatusFilled {
		ob.Remove(o.ID)
	}

	if trades == nil {
		trades = []*domain.Trade{}
	}
	return trades, err
}

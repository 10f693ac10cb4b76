package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MarketTraderID is the reserved owner of synthetic orders built from an
// external quote.
const MarketTraderID = "market"

// Side indicates whether an order buys or sells the base asset.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// Valid reports whether s is one of the known sides.
func (s Side) Valid() bool {
	return s == SideBuy || s == SideSell
}

// Opposite returns the side an order of side s matches against.
func (s Side) Opposite() Side {
	if s == SideBuy {
		return SideSell
	}
	return SideBuy
}

// OrderType selects how an order is priced: against the external quote
// (market) or at the caller's price (limit).
type OrderType string

const (
	OrderTypeMarket OrderType = "market"
	OrderTypeLimit  OrderType = "limit"
)

// Valid reports whether t is one of the known order types.
func (t OrderType) Valid() bool {
	return t == OrderTypeMarket || t == OrderTypeLimit
}

// OrderStatus represents the lifecycle state of an order.
type OrderStatus string

const (
	OrderStatusPending         OrderStatus = "pending"
	OrderStatusPartiallyFilled OrderStatus = "partially_filled"
	OrderStatusFilled          OrderStatus = "filled"
	OrderStatusCancelled       OrderStatus = "cancelled"
)

// transitions lists the legal next states for each status. Filled and
// cancelled are terminal.
var transitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:         {OrderStatusPartiallyFilled, OrderStatusFilled, OrderStatusCancelled},
	OrderStatusPartiallyFilled: {OrderStatusPartiallyFilled, OrderStatusFilled, OrderStatusCancelled},
}

// CanTransitionTo reports whether an order in status s may move to next.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transition is possible from s.
func (s OrderStatus) Terminal() bool {
	return len(transitions[s]) == 0
}

// Order is a buy or sell instruction for a single symbol. Everything but the
// fill state is fixed at creation.
type Order struct {
	ID              string
	TraderID        string
	Side            Side
	Symbol          string
	Amount          decimal.Decimal
	Price           decimal.Decimal
	CreatedAt       time.Time
	Status          OrderStatus
	FilledAmount    decimal.Decimal
	RemainingAmount decimal.Decimal
}

// NewOrder validates the inputs and returns a pending order with nothing
// filled yet.
func NewOrder(traderID string, side Side, symbol string, amount, price decimal.Decimal, now time.Time) (*Order, error) {
	if traderID == "" {
		return nil, &ValidationError{Message: "trader id is required"}
	}
	if !side.Valid() {
		return nil, &ValidationError{Message: fmt.Sprintf("unknown side %q, must be one of: buy, sell", side)}
	}
	if symbol == "" {
		return nil, &ValidationError{Message: "symbol is required"}
	}
	if !amount.IsPositive() {
		return nil, &ValidationError{Message: "amount must be > 0"}
	}
	if !price.IsPositive() {
		return nil, &ValidationError{Message: "price must be > 0"}
	}
	return &Order{
		ID:              uuid.New().String(),
		TraderID:        traderID,
		Side:            side,
		Symbol:          symbol,
		Amount:          amount,
		Price:           price,
		CreatedAt:       now,
		Status:          OrderStatusPending,
		FilledAmount:    decimal.Zero,
		RemainingAmount: amount,
	}, nil
}

// IsSynthetic reports whether the order stands in for external liquidity.
func (o *Order) IsSynthetic() bool {
	return o.TraderID == MarketTraderID
}

// Crosses reports whether o, as an incoming order, can trade against the
// resting order r.
func (o *Order) Crosses(r *Order) bool {
	if o.Side == r.Side {
		return false
	}
	if o.Side == SideBuy {
		return r.Price.LessThanOrEqual(o.Price)
	}
	return r.Price.GreaterThanOrEqual(o.Price)
}

// Fill records qty as executed. The status follows the remaining amount:
// partially filled while something is left, filled once it reaches zero.
func (o *Order) Fill(qty decimal.Decimal) error {
	if !qty.IsPositive() {
		return fmt.Errorf("%w: fill amount %s must be > 0", ErrOverfill, qty)
	}
	if qty.GreaterThan(o.RemainingAmount) {
		return fmt.Errorf("%w: fill %s exceeds remaining %s on order %s", ErrOverfill, qty, o.RemainingAmount, o.ID)
	}

	next := OrderStatusPartiallyFilled
	if qty.Equal(o.RemainingAmount) {
		next = OrderStatusFilled
	}
	if err := o.transition(next); err != nil {
		return err
	}
	o.FilledAmount = o.FilledAmount.Add(qty)
	o.RemainingAmount = o.RemainingAmount.Sub(qty)
	return nil
}

func (o *Order) transition(next OrderStatus) error {
	if !o.Status.CanTransitionTo(next) {
		return fmt.Errorf("%w: %s -> %s on order %s", ErrIllegalTransition, o.Status, next, o.ID)
	}
	o.Status = next
	return nil
}

// Notional returns amount × price for the given amount at the order's own
// limit price.
func (o *Order) Notional(amount decimal.Decimal) decimal.Decimal {
	return amount.Mul(o.Price)
}

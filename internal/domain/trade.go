package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Trade is an execution of an incoming order against a resting one. The
// originating order is the incoming one; the resting side is kept as the
// maker fields.
type Trade struct {
	ID            string
	OrderID       string
	TraderID      string
	Symbol        string
	Side          Side
	Amount        decimal.Decimal
	Price         decimal.Decimal
	Total         decimal.Decimal // Amount × Price
	ExecutedAt    time.Time
	MakerOrderID  string
	MakerTraderID string
}

// NewTrade builds the trade for amount executed between taker and maker at
// price.
func NewTrade(taker, maker *Order, amount, price decimal.Decimal, at time.Time) *Trade {
	return &Trade{
		ID:            uuid.New().String(),
		OrderID:       taker.ID,
		TraderID:      taker.TraderID,
		Symbol:        taker.Symbol,
		Side:          taker.Side,
		Amount:        amount,
		Price:         price,
		Total:         amount.Mul(price),
		ExecutedAt:    at,
		MakerOrderID:  maker.ID,
		MakerTraderID: maker.TraderID,
	}
}

// FillSummary aggregates a batch of trades for one order.
type FillSummary struct {
	Filled       decimal.Decimal
	AveragePrice decimal.Decimal
	Total        decimal.Decimal
	Trades       int
}

// Summarize computes the filled amount and volume-weighted average price of
// trades. AveragePrice is zero when nothing was filled.
func Summarize(trades []*Trade) FillSummary {
	s := FillSummary{Filled: decimal.Zero, AveragePrice: decimal.Zero, Total: decimal.Zero, Trades: len(trades)}
	for _, t := range trades {
		s.Filled = s.Filled.Add(t.Amount)
		s.Total = s.Total.Add(t.Total)
	}
	if s.Filled.IsPositive() {
		s.AveragePrice = s.Total.Div(s.Filled)
	}
	return s
}

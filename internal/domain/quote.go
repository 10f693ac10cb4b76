package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Quote is a one-level best bid/ask snapshot from the external market.
// A side with no liquidity has zero price and quantity.
type Quote struct {
	Symbol    string
	BidPrice  decimal.Decimal
	BidQty    decimal.Decimal
	AskPrice  decimal.Decimal
	AskQty    decimal.Decimal
	FetchedAt time.Time
}

// Best returns the price and quantity available to an incoming order of the
// given side: the ask for a buy, the bid for a sell.
func (q Quote) Best(side Side) (price, qty decimal.Decimal, ok bool) {
	if side == SideBuy {
		price, qty = q.AskPrice, q.AskQty
	} else {
		price, qty = q.BidPrice, q.BidQty
	}
	return price, qty, price.IsPositive() && qty.IsPositive()
}

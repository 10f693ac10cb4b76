package domain

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestQuote_Best(t *testing.T) {
	q := Quote{
		BidPrice: dec("99"), BidQty: dec("2"),
		AskPrice: dec("100"), AskQty: dec("0.5"),
	}

	price, qty, ok := q.Best(SideBuy)
	if !ok || !price.Equal(dec("100")) || !qty.Equal(dec("0.5")) {
		t.Errorf("Best(buy) = %s/%s/%v, want ask 100/0.5", price, qty, ok)
	}
	price, qty, ok = q.Best(SideSell)
	if !ok || !price.Equal(dec("99")) || !qty.Equal(dec("2")) {
		t.Errorf("Best(sell) = %s/%s/%v, want bid 99/2", price, qty, ok)
	}
}

func TestQuote_Best_EmptySide(t *testing.T) {
	q := Quote{BidPrice: dec("99"), BidQty: dec("2"), AskPrice: decimal.Zero, AskQty: decimal.Zero}
	if _, _, ok := q.Best(SideBuy); ok {
		t.Error("Best(buy) should report no liquidity when the ask side is empty")
	}
}

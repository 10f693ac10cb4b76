package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/efreitasn/papertrade/internal/domain"
	"github.com/shopspring/decimal"
	"pgregory.net/rapid"
)

func drawPrice(t *rapid.T, label string) decimal.Decimal {
	return decimal.New(rapid.Int64Range(9000, 11000).Draw(t, label), -2)
}

func drawAmount(t *rapid.T, label string) decimal.Decimal {
	return decimal.New(rapid.Int64Range(1, 50).Draw(t, label), -1)
}

// reservedOnBook sums what the resting orders of traderID should hold.
func reservedOnBook(ob *OrderBook, traderID string) (base, quote decimal.Decimal) {
	base, quote = decimal.Zero, decimal.Zero
	for _, o := range ob.Bids() {
		if o.TraderID == traderID {
			quote = quote.Add(o.Notional(o.RemainingAmount))
		}
	}
	for _, o := range ob.Asks() {
		if o.TraderID == traderID {
			base = base.Add(o.RemainingAmount)
		}
	}
	return base, quote
}

func TestProperty_LimitOrdersConserveBalances(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		ob := newTestBook()
		acct := newTestAccount("10", "5000")
		startBase := acct.Balance("BTC").Total()
		startQuote := acct.Balance("USDT").Total()

		n := rapid.IntRange(1, 30).Draw(t, "n")
		for i := 0; i < n; i++ {
			side := rapid.SampledFrom([]domain.Side{domain.SideBuy, domain.SideSell}).Draw(t, "side")
			amount := drawAmount(t, "amount")
			price := drawPrice(t, "price")

			before := acct.Balances()
			ordersBefore := acct.Orders().Len()

			var err error
			if side == domain.SideBuy {
				_, err = acct.PlaceLimitBuy(ob, amount, price)
			} else {
				_, err = acct.PlaceLimitSell(ob, amount, price)
			}
			if err != nil {
				if !errors.Is(err, domain.ErrInsufficientFunds) {
					t.Fatalf("unexpected error: %v", err)
				}
				after := acct.Balances()
				for asset, b := range before {
					if !after[asset].Free.Equal(b.Free) || !after[asset].Reserved.Equal(b.Reserved) {
						t.Fatalf("rejected order changed %s balance", asset)
					}
				}
				if acct.Orders().Len() != ordersBefore {
					t.Fatal("rejected order was recorded")
				}
				continue
			}

			// Every trade is a self-trade, so totals never move.
			if !acct.Balance("BTC").Total().Equal(startBase) {
				t.Fatalf("base total drifted: %s != %s", acct.Balance("BTC").Total(), startBase)
			}
			if !acct.Balance("USDT").Total().Equal(startQuote) {
				t.Fatalf("quote total drifted: %s != %s", acct.Balance("USDT").Total(), startQuote)
			}

			for asset, b := range acct.Balances() {
				if b.Free.IsNegative() || b.Reserved.IsNegative() {
					t.Fatalf("negative %s balance: %+v", asset, b)
				}
			}

			wantBase, wantQuote := reservedOnBook(ob, acct.ID())
			if !acct.Balance("BTC").Reserved.Equal(wantBase) {
				t.Fatalf("reserved base %s, resting asks hold %s", acct.Balance("BTC").Reserved, wantBase)
			}
			if !acct.Balance("USDT").Reserved.Equal(wantQuote) {
				t.Fatalf("reserved quote %s, resting bids hold %s", acct.Balance("USDT").Reserved, wantQuote)
			}
		}

		if bid, ok := ob.BestBid(); ok {
			if ask, ok := ob.BestAsk(); ok && bid.Price.GreaterThanOrEqual(ask.Price) {
				t.Fatalf("book is crossed: bid %s >= ask %s", bid.Price, ask.Price)
			}
		}
	})
}

func TestProperty_FillAccounting(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		ob := newTestBook()
		acct := newTestAccount("10", "5000")

		n := rapid.IntRange(1, 30).Draw(t, "n")
		for i := 0; i < n; i++ {
			amount := drawAmount(t, "amount")
			price := drawPrice(t, "price")
			if rapid.Bool().Draw(t, "buy") {
				_, _ = acct.PlaceLimitBuy(ob, amount, price)
			} else {
				_, _ = acct.PlaceLimitSell(ob, amount, price)
			}
		}

		orders, _ := acct.Orders().ListByTrader(acct.ID(), nil, 1, n)
		for _, o := range orders {
			if !o.FilledAmount.Add(o.RemainingAmount).Equal(o.Amount) {
				t.Fatalf("order %s: filled %s + remaining %s != amount %s", o.ID, o.FilledAmount, o.RemainingAmount, o.Amount)
			}
			if o.RemainingAmount.IsNegative() {
				t.Fatalf("order %s: negative remaining %s", o.ID, o.RemainingAmount)
			}
			if o.Status == domain.OrderStatusFilled && ob.Contains(o.ID) {
				t.Fatalf("filled order %s still resting", o.ID)
			}
		}
	})
}

func TestProperty_MatchingTerminatesWithinRestingCount(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		ob := newTestBook()
		n := rapid.IntRange(0, 20).Draw(t, "resting")
		for i := 0; i < n; i++ {
			o, err := domain.NewOrder("other", domain.SideSell, testSymbol, drawAmount(t, "amount"), drawPrice(t, "price"), baseTime)
			if err != nil {
				t.Fatal(err)
			}
			ob.Insert(o)
		}

		buy, err := domain.NewOrder("user", domain.SideBuy, testSymbol, drawAmount(t, "buyAmount"), drawPrice(t, "buyPrice"), baseTime)
		if err != nil {
			t.Fatal(err)
		}
		trades, err := ob.Submit(buy)
		if err != nil {
			t.Fatal(err)
		}
		if len(trades) > n {
			t.Fatalf("%d trades against %d resting orders", len(trades), n)
		}
		for _, tr := range trades {
			if tr.Price.GreaterThan(buy.Price) {
				t.Fatalf("executed at %s above limit %s", tr.Price, buy.Price)
			}
		}
		for i := 1; i < len(trades); i++ {
			if trades[i].Price.LessThan(trades[i-1].Price) {
				t.Fatalf("trade %d at %s better than earlier %s", i, trades[i].Price, trades[i-1].Price)
			}
		}
	})
}

func TestProperty_MarketBuySettlesEachTrade(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		askQty := drawAmount(t, "askQty")
		ask := drawPrice(t, "ask")
		q := &fakeQuotes{quote: domain.Quote{
			BidPrice: ask.Sub(decimal.NewFromInt(1)), BidQty: askQty,
			AskPrice: ask, AskQty: askQty,
		}}
		ex := newTestExchange("0", "100000", q)

		amount := drawAmount(t, "amount")
		p, err := ex.MarketBuy(context.Background(), amount)
		if err != nil {
			t.Fatal(err)
		}

		paid, got := decimal.Zero, decimal.Zero
		for _, tr := range p.Trades {
			paid = paid.Add(tr.Total)
			got = got.Add(tr.Amount)
		}
		bal := ex.Balances()
		if !bal["USDT"].Free.Equal(decimal.NewFromInt(100000).Sub(paid)) {
			t.Fatalf("quote %s, expected %s", bal["USDT"].Free, decimal.NewFromInt(100000).Sub(paid))
		}
		if !bal["BTC"].Free.Equal(got) {
			t.Fatalf("base %s, expected %s", bal["BTC"].Free, got)
		}
		if !got.Equal(decimal.Min(amount, askQty)) {
			t.Fatalf("filled %s, expected min(%s, %s)", got, amount, askQty)
		}
	})
}

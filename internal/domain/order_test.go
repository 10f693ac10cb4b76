package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestNewOrder_InitialState(t *testing.T) {
	now := time.Now()
	o, err := NewOrder("user", SideSell, "BTC/USDT", dec("1"), dec("100"), now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if o.ID == "" {
		t.Error("expected non-empty id")
	}
	if o.Status != OrderStatusPending {
		t.Errorf("Status = %q, want %q", o.Status, OrderStatusPending)
	}
	if !o.RemainingAmount.Equal(dec("1")) {
		t.Errorf("RemainingAmount = %s, want 1", o.RemainingAmount)
	}
	if !o.FilledAmount.IsZero() {
		t.Errorf("FilledAmount = %s, want 0", o.FilledAmount)
	}
	if !o.CreatedAt.Equal(now) {
		t.Errorf("CreatedAt = %v, want %v", o.CreatedAt, now)
	}
}

func TestNewOrder_Validation(t *testing.T) {
	tests := []struct {
		name     string
		traderID string
		side     Side
		symbol   string
		amount   string
		price    string
	}{
		{"missing trader", "", SideBuy, "BTC/USDT", "1", "100"},
		{"unknown side", "user", Side("hold"), "BTC/USDT", "1", "100"},
		{"missing symbol", "user", SideBuy, "", "1", "100"},
		{"zero amount", "user", SideBuy, "BTC/USDT", "0", "100"},
		{"negative amount", "user", SideBuy, "BTC/USDT", "-1", "100"},
		{"zero price", "user", SideBuy, "BTC/USDT", "1", "0"},
		{"negative price", "user", SideSell, "BTC/USDT", "1", "-5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewOrder(tt.traderID, tt.side, tt.symbol, dec(tt.amount), dec(tt.price), time.Now())
			if !errors.Is(err, ErrInvalidInput) {
				t.Fatalf("expected ErrInvalidInput, got %v", err)
			}
		})
	}
}

func TestOrder_Fill_Transitions(t *testing.T) {
	o, _ := NewOrder("user", SideBuy, "BTC/USDT", dec("1"), dec("100"), time.Now())

	if err := o.Fill(dec("0.4")); err != nil {
		t.Fatalf("first fill: %v", err)
	}
	if o.Status != OrderStatusPartiallyFilled {
		t.Errorf("Status = %q, want %q", o.Status, OrderStatusPartiallyFilled)
	}

	if err := o.Fill(dec("0.5")); err != nil {
		t.Fatalf("second fill: %v", err)
	}
	if o.Status != OrderStatusPartiallyFilled {
		t.Errorf("Status = %q, want %q", o.Status, OrderStatusPartiallyFilled)
	}

	if err := o.Fill(dec("0.1")); err != nil {
		t.Fatalf("final fill: %v", err)
	}
	if o.Status != OrderStatusFilled {
		t.Errorf("Status = %q, want %q", o.Status, OrderStatusFilled)
	}
	if !o.RemainingAmount.IsZero() || !o.FilledAmount.Equal(dec("1")) {
		t.Errorf("filled/remaining = %s/%s, want 1/0", o.FilledAmount, o.RemainingAmount)
	}
}

func TestOrder_Fill_FullInOneStep(t *testing.T) {
	o, _ := NewOrder("user", SideSell, "BTC/USDT", dec("0.25"), dec("100"), time.Now())
	if err := o.Fill(dec("0.25")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if o.Status != OrderStatusFilled {
		t.Errorf("Status = %q, want %q", o.Status, OrderStatusFilled)
	}
}

func TestOrder_Fill_Rejects(t *testing.T) {
	o, _ := NewOrder("user", SideBuy, "BTC/USDT", dec("1"), dec("100"), time.Now())

	if err := o.Fill(dec("1.5")); !errors.Is(err, ErrOverfill) {
		t.Errorf("overfill: expected ErrOverfill, got %v", err)
	}
	if err := o.Fill(decimal.Zero); !errors.Is(err, ErrOverfill) {
		t.Errorf("zero fill: expected ErrOverfill, got %v", err)
	}
	if o.Status != OrderStatusPending || !o.RemainingAmount.Equal(dec("1")) {
		t.Errorf("rejected fills must not mutate the order, got %s remaining %s", o.Status, o.RemainingAmount)
	}

	_ = o.Fill(dec("1"))
	if err := o.Fill(dec("0.1")); !errors.Is(err, ErrOverfill) {
		t.Errorf("fill after filled: expected ErrOverfill, got %v", err)
	}
}

func TestOrderStatus_CanTransitionTo(t *testing.T) {
	tests := []struct {
		from, to OrderStatus
		want     bool
	}{
		{OrderStatusPending, OrderStatusPartiallyFilled, true},
		{OrderStatusPending, OrderStatusFilled, true},
		{OrderStatusPending, OrderStatusCancelled, true},
		{OrderStatusPartiallyFilled, OrderStatusPartiallyFilled, true},
		{OrderStatusPartiallyFilled, OrderStatusFilled, true},
		{OrderStatusPartiallyFilled, OrderStatusPending, false},
		{OrderStatusFilled, OrderStatusPartiallyFilled, false},
		{OrderStatusFilled, OrderStatusPending, false},
		{OrderStatusCancelled, OrderStatusFilled, false},
		{OrderStatusPending, OrderStatusPending, false},
	}
	for _, tt := range tests {
		if got := tt.from.CanTransitionTo(tt.to); got != tt.want {
			t.Errorf("%s -> %s = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
	if !OrderStatusFilled.Terminal() || !OrderStatusCancelled.Terminal() {
		t.Error("filled and cancelled should be terminal")
	}
	if OrderStatusPending.Terminal() {
		t.Error("pending should not be terminal")
	}
}

func TestOrder_Crosses(t *testing.T) {
	buy, _ := NewOrder("user", SideBuy, "BTC/USDT", dec("1"), dec("100"), time.Now())
	cheapAsk, _ := NewOrder("user", SideSell, "BTC/USDT", dec("1"), dec("99.5"), time.Now())
	equalAsk, _ := NewOrder("user", SideSell, "BTC/USDT", dec("1"), dec("100"), time.Now())
	dearAsk, _ := NewOrder("user", SideSell, "BTC/USDT", dec("1"), dec("100.01"), time.Now())
	otherBuy, _ := NewOrder("user", SideBuy, "BTC/USDT", dec("1"), dec("90"), time.Now())

	if !buy.Crosses(cheapAsk) || !buy.Crosses(equalAsk) {
		t.Error("buy at 100 should cross asks at or below 100")
	}
	if buy.Crosses(dearAsk) {
		t.Error("buy at 100 should not cross ask at 100.01")
	}
	if buy.Crosses(otherBuy) {
		t.Error("same-side orders never cross")
	}
	if !equalAsk.Crosses(buy) || equalAsk.Crosses(&Order{Side: SideBuy, Price: dec("99")}) {
		t.Error("sell at 100 crosses bids at or above 100 only")
	}
}

func TestSide_Opposite(t *testing.T) {
	if SideBuy.Opposite() != SideSell || SideSell.Opposite() != SideBuy {
		t.Error("Opposite() should swap buy and sell")
	}
}

func TestOrderType_Valid(t *testing.T) {
	for _, ot := range []OrderType{OrderTypeMarket, OrderTypeLimit} {
		if !ot.Valid() {
			t.Errorf("expected %s to be valid", ot)
		}
	}
	if OrderType("stop").Valid() {
		t.Error("expected stop to be invalid")
	}
}

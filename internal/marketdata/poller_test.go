package marketdata

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/efreitasn/papertrade/internal/domain"
	"github.com/shopspring/decimal"
)

// flakyFeed wraps a StaticFeed and fails while fail is set.
type flakyFeed struct {
	*StaticFeed
	mu   sync.Mutex
	fail bool
}

func (f *flakyFeed) setFail(v bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail = v
}

func (f *flakyFeed) Ticker(ctx context.Context, symbol string) (Ticker, error) {
	f.mu.Lock()
	fail := f.fail
	f.mu.Unlock()
	if fail {
		return Ticker{}, errors.New("upstream down")
	}
	return f.StaticFeed.Ticker(ctx, symbol)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testPollerConfig() PollerConfig {
	return PollerConfig{Symbol: "BTC/USDT", Interval: time.Hour, BookDepth: 20, TradesLimit: 15}
}

func TestPoller_RefreshPopulatesSnapshot(t *testing.T) {
	feed := NewStaticFeed("BTC/USDT", dec("100"), dec("2"), dec("1"))
	feed.SetTrades([]PublicTrade{{ID: 1, Price: dec("100"), Amount: dec("0.1"), Side: domain.SideBuy}})
	p := NewPoller(feed, testPollerConfig(), discardLogger())

	if p.Snapshot().Ready() {
		t.Fatal("expected empty snapshot before refresh")
	}
	p.Refresh(context.Background())

	s := p.Snapshot()
	if !s.Ready() || s.Err != nil {
		t.Fatalf("expected ready snapshot, got err=%v", s.Err)
	}
	if len(s.Depth.Asks) != 1 || !s.Depth.Asks[0].Price.Equal(dec("101")) {
		t.Errorf("unexpected asks: %+v", s.Depth.Asks)
	}
	if !s.Ticker.LastPrice.Equal(dec("100")) {
		t.Errorf("unexpected last price %s", s.Ticker.LastPrice)
	}
	if len(s.Trades) != 1 {
		t.Errorf("expected 1 trade, got %d", len(s.Trades))
	}
}

func TestPoller_FailureKeepsLastGoodData(t *testing.T) {
	feed := &flakyFeed{StaticFeed: NewStaticFeed("BTC/USDT", dec("100"), dec("2"), dec("1"))}
	p := NewPoller(feed, testPollerConfig(), discardLogger())

	p.Refresh(context.Background())
	good := p.Snapshot()

	feed.setFail(true)
	feed.SetTicker(Ticker{LastPrice: dec("200")})
	p.Refresh(context.Background())

	s := p.Snapshot()
	if s.Err == nil {
		t.Fatal("expected refresh error recorded")
	}
	if !s.Ticker.LastPrice.Equal(good.Ticker.LastPrice) || !s.UpdatedAt.Equal(good.UpdatedAt) {
		t.Error("expected last good data kept")
	}

	feed.setFail(false)
	p.Refresh(context.Background())
	s = p.Snapshot()
	if s.Err != nil || !s.Ticker.LastPrice.Equal(dec("200")) {
		t.Errorf("expected recovery, got err=%v last=%s", s.Err, s.Ticker.LastPrice)
	}
}

func TestPoller_StartRefreshesImmediately(t *testing.T) {
	feed := NewStaticFeed("BTC/USDT", dec("100"), dec("2"), dec("1"))
	p := NewPoller(feed, testPollerConfig(), discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Start(ctx)
		close(done)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for !p.Snapshot().Ready() {
		if time.Now().After(deadline) {
			t.Fatal("snapshot not refreshed on start")
		}
		time.Sleep(5 * time.Millisecond)
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("poller did not stop after cancel")
	}
}

func TestStaticFeed_BestQuoteAndLimits(t *testing.T) {
	feed := NewStaticFeed("BTC/USDT", dec("100"), dec("1"), dec("2"))
	q, err := feed.BestQuote(context.Background(), "BTC/USDT")
	if err != nil {
		t.Fatal(err)
	}
	if !q.BidPrice.Equal(dec("99.5")) || !q.AskPrice.Equal(dec("100.5")) || !q.AskQty.Equal(dec("2")) {
		t.Errorf("unexpected quote: %+v", q)
	}

	feed.SetDepth(Depth{Bids: []Level{{Price: dec("99"), Amount: dec("1")}, {Price: dec("98"), Amount: dec("1")}}})
	d, _ := feed.Depth(context.Background(), "BTC/USDT", 1)
	if len(d.Bids) != 1 || len(d.Asks) != 0 {
		t.Errorf("expected 1 bid and no asks, got %d and %d", len(d.Bids), len(d.Asks))
	}

	q, _ = feed.BestQuote(context.Background(), "BTC/USDT")
	if _, _, ok := q.Best(domain.SideBuy); ok {
		t.Error("expected no ask side")
	}

	trades, _ := feed.RecentTrades(context.Background(), "BTC/USDT", 10)
	if len(trades) != 0 {
		t.Errorf("expected no trades, got %d", len(trades))
	}
	if p, _ := feed.LastPrice(context.Background(), "BTC/USDT"); !p.Equal(decimal.NewFromInt(100)) {
		t.Errorf("expected last 100, got %s", p)
	}
}

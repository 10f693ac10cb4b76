package marketdata

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Snapshot is the latest market data the poller has seen. Err holds the
// error of the most recent refresh, if it failed; the data fields then keep
// their last good values.
type Snapshot struct {
	Depth     Depth
	Ticker    Ticker
	Trades    []PublicTrade
	UpdatedAt time.Time
	Err       error
}

// Ready reports whether at least one refresh has succeeded.
func (s Snapshot) Ready() bool {
	return !s.UpdatedAt.IsZero()
}

// PollerConfig configures a Poller.
type PollerConfig struct {
	Symbol      string
	Interval    time.Duration
	BookDepth   int
	TradesLimit int
}

// Poller periodically refreshes a Snapshot from a Feed.
type Poller struct {
	feed   Feed
	cfg    PollerConfig
	logger *slog.Logger
	now    func() time.Time

	mu   sync.RWMutex
	snap Snapshot
}

// NewPoller creates a Poller. Call Start to begin refreshing.
func NewPoller(feed Feed, cfg PollerConfig, logger *slog.Logger) *Poller {
	return &Poller{
		feed:   feed,
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
	}
}

// Start refreshes once immediately and then every interval until ctx is
// cancelled. It blocks; run it in its own goroutine.
func (p *Poller) Start(ctx context.Context) {
	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	p.Refresh(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.Refresh(ctx)
		}
	}
}

// Refresh fetches depth, ticker and trades once. Either all three replace
// the snapshot or none do.
func (p *Poller) Refresh(ctx context.Context) {
	snap, err := p.fetch(ctx)

	p.mu.Lock()
	if err != nil {
		p.snap.Err = err
	} else {
		p.snap = snap
	}
	p.mu.Unlock()

	if err != nil {
		p.logger.Warn("market data refresh failed",
			slog.String("symbol", p.cfg.Symbol),
			slog.String("error", err.Error()),
		)
		return
	}
	p.logger.Debug("market data refreshed",
		slog.String("symbol", p.cfg.Symbol),
		slog.String("last_price", snap.Ticker.LastPrice.String()),
	)
}

func (p *Poller) fetch(ctx context.Context) (Snapshot, error) {
	depth, err := p.feed.Depth(ctx, p.cfg.Symbol, p.cfg.BookDepth)
	if err != nil {
		return Snapshot{}, err
	}
	ticker, err := p.feed.Ticker(ctx, p.cfg.Symbol)
	if err != nil {
		return Snapshot{}, err
	}
	trades, err := p.feed.RecentTrades(ctx, p.cfg.Symbol, p.cfg.TradesLimit)
	if err != nil {
		return Snapshot{}, err
	}
	return Snapshot{
		Depth:     depth,
		Ticker:    ticker,
		Trades:    trades,
		UpdatedAt: p.now(),
	}, nil
}

// Snapshot returns the latest snapshot.
func (p *Poller) Snapshot() Snapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.snap
}

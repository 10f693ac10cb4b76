package store

import (
	"sync"

	"github.com/efreitasn/papertrade/internal/domain"
)

// TradeStore is a thread-safe in-memory store for trades,
// keyed by symbol. Trades are append-only and chronological.
type TradeStore struct {
	mu     sync.RWMutex
	trades map[string][]*domain.Trade // symbol → trades (chronological)
}

// NewTradeStore creates an empty TradeStore.
func NewTradeStore() *TradeStore {
	return &TradeStore{
		trades: make(map[string][]*domain.Trade),
	}
}

// Append adds a trade to its symbol's chronological list.
func (s *TradeStore) Append(t *domain.Trade) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.trades[t.Symbol] = append(s.trades[t.Symbol], t)
}

// GetBySymbol returns all trades for a symbol in chronological order.
// Returns an empty slice if no trades exist for the symbol.
func (s *TradeStore) GetBySymbol(symbol string) []*domain.Trade {
	s.mu.RLock()
	defer s.mu.RUnlock()

	trades := s.trades[symbol]
	if trades == nil {
		return []*domain.Trade{}
	}

	// Return a copy to avoid callers mutating the internal slice.
	result := make([]*domain.Trade, len(trades))
	copy(result, trades)
	return result
}

// Recent returns up to n trades for a symbol, most recent first.
func (s *TradeStore) Recent(symbol string, n int) []*domain.Trade {
	s.mu.RLock()
	defer s.mu.RUnlock()

	trades := s.trades[symbol]
	if n <= 0 || len(trades) == 0 {
		return []*domain.Trade{}
	}
	if n > len(trades) {
		n = len(trades)
	}
	result := make([]*domain.Trade, 0, n)
	for i := len(trades) - 1; i >= len(trades)-n; i-- {
		result = append(result, trades[i])
	}
	return result
}

// Count returns the number of trades recorded for a symbol.
func (s *TradeStore) Count(symbol string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.trades[symbol])
}

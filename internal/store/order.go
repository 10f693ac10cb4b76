package store

import (
	"sync"

	"github.com/efreitasn/papertrade/internal/domain"
)

// OrderStore keeps every order a trader has placed, indexed by ID and, per
// trader, in placement order. It is safe for concurrent use.
type OrderStore struct {
	mu       sync.RWMutex
	byID     map[string]*domain.Order
	byTrader map[string][]*domain.Order
}

// NewOrderStore creates an empty OrderStore.
func NewOrderStore() *OrderStore {
	return &OrderStore{
		byID:     make(map[string]*domain.Order),
		byTrader: make(map[string][]*domain.Order),
	}
}

// Create records o. Orders are never removed; their status evolves in place.
func (s *OrderStore) Create(o *domain.Order) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.byID[o.ID] = o
	s.byTrader[o.TraderID] = append(s.byTrader[o.TraderID], o)
}

// Get returns the order with the given ID, or domain.ErrOrderNotFound.
func (s *OrderStore) Get(id string) (*domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if o, ok := s.byID[id]; ok {
		return o, nil
	}
	return nil, domain.ErrOrderNotFound
}

// Len returns the number of stored orders.
func (s *OrderStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.byID)
}

// ListByTrader returns one page of a trader's orders, newest first, together
// with the number of orders matching the filter. A nil status matches every
// order. page is 1-based.
func (s *OrderStore) ListByTrader(traderID string, status *domain.OrderStatus, page, limit int) ([]*domain.Order, int) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history := s.byTrader[traderID]
	matched := make([]*domain.Order, 0, len(history))
	for i := len(history) - 1; i >= 0; i-- {
		if status == nil || history[i].Status == *status {
			matched = append(matched, history[i])
		}
	}
	return paginate(matched, page, limit), len(matched)
}

// paginate returns the 1-based page of items, or an empty slice past the end.
func paginate[T any](items []T, page, limit int) []T {
	if page < 1 || limit < 1 {
		return []T{}
	}
	start := (page - 1) * limit
	if start >= len(items) {
		return []T{}
	}
	return items[start:min(start+limit, len(items))]
}

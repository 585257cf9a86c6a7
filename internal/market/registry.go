package market

import (
	"iter"
	"sync"

	"github.com/rickgao/exchange-trader/internal/order"
)

// Registry holds one Market per market id.
type Registry struct {
	mu sync.RWMutex

	// All known markets indexed by id.
	markets map[string]*Market

	// Insertion order of ids, for stable iteration.
	ids []string
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		markets: make(map[string]*Market),
	}
}

// AddMarket inserts m under id. If id is already known, the existing market
// is reopened in place and m is discarded so its blotter survives.
func (r *Registry) AddMarket(id string, m *Market) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.markets[id]; ok {
		existing.Open()
		return
	}
	r.markets[id] = m
	r.ids = append(r.ids, id)
}

// CloseMarket closes the market with id, if known.
func (r *Registry) CloseMarket(id string) {
	r.mu.RLock()
	m, ok := r.markets[id]
	r.mu.RUnlock()

	if ok {
		m.Close()
	}
}

// Get returns the market with id.
func (r *Registry) Get(id string) (*Market, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m, ok := r.markets[id]
	return m, ok
}

// GetOrder returns an order by market and order id, open or closed market.
func (r *Registry) GetOrder(marketID, orderID string) (order.Order, bool) {
	m, ok := r.Get(marketID)
	if !ok {
		return nil, false
	}
	return m.GetOrder(orderID)
}

// MarketIDs returns every known id in registry order.
func (r *Registry) MarketIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, len(r.ids))
	copy(out, r.ids)
	return out
}

// OpenMarketIDs returns ids whose market is not closed, in registry order.
func (r *Registry) OpenMarketIDs() []string {
	out := []string{}
	for m := range r.All() {
		if !m.Closed() {
			out = append(out, m.ID())
		}
	}
	return out
}

// LiveOrders reports whether any market, closed or not, has a live order.
func (r *Registry) LiveOrders() bool {
	for m := range r.All() {
		if m.LiveOrders() {
			return true
		}
	}
	return false
}

// All iterates a snapshot of the markets in registry order.
func (r *Registry) All() iter.Seq[*Market] {
	r.mu.RLock()
	snapshot := make([]*Market, 0, len(r.ids))
	for _, id := range r.ids {
		snapshot = append(snapshot, r.markets[id])
	}
	r.mu.RUnlock()

	return func(yield func(*Market) bool) {
		for _, m := range snapshot {
			if !yield(m) {
				return
			}
		}
	}
}

// Len returns the number of known markets.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.markets)
}

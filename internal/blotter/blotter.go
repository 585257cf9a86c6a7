// Package blotter implements the per-market ledger of orders and the
// pending place/cancel/update/replace queues awaiting transmission.
//
// A Blotter is not safe for concurrent use on its own; the owning market
// serializes access.
package blotter

import "github.com/rickgao/exchange-trader/internal/order"

// Kind names a pending queue.
type Kind string

const (
	KindPlace   Kind = "place"
	KindCancel  Kind = "cancel"
	KindUpdate  Kind = "update"
	KindReplace Kind = "replace"
)

// Pending is a drained copy of all four pending queues.
type Pending struct {
	Place   []order.Order
	Cancel  []order.Order
	Update  []order.Order
	Replace []order.Order
}

// Empty reports whether nothing is awaiting transmission.
func (p Pending) Empty() bool {
	return len(p.Place) == 0 && len(p.Cancel) == 0 && len(p.Update) == 0 && len(p.Replace) == 0
}

// Blotter holds every order submitted for one market.
type Blotter struct {
	marketID string

	orders map[string]order.Order
	ids    []string // insertion order

	pendingPlace   []order.Order
	pendingCancel  []order.Order
	pendingUpdate  []order.Order
	pendingReplace []order.Order
}

// New creates an empty blotter for marketID.
func New(marketID string) *Blotter {
	return &Blotter{
		marketID: marketID,
		orders:   make(map[string]order.Order),
	}
}

// MarketID returns the owning market id.
func (b *Blotter) MarketID() string {
	return b.marketID
}

// Has reports whether an order id has been recorded.
func (b *Blotter) Has(orderID string) bool {
	_, ok := b.orders[orderID]
	return ok
}

// Get returns a recorded order.
func (b *Blotter) Get(orderID string) (order.Order, bool) {
	o, ok := b.orders[orderID]
	return o, ok
}

// Add records an order. Returns false if the id was already present, in
// which case the blotter is unchanged.
func (b *Blotter) Add(o order.Order) bool {
	id := o.ID()
	if _, ok := b.orders[id]; ok {
		return false
	}
	b.orders[id] = o
	b.ids = append(b.ids, id)
	return true
}

// Orders returns all recorded orders in insertion order.
func (b *Blotter) Orders() []order.Order {
	out := make([]order.Order, 0, len(b.ids))
	for _, id := range b.ids {
		out = append(out, b.orders[id])
	}
	return out
}

// Len returns the number of recorded orders.
func (b *Blotter) Len() int {
	return len(b.orders)
}

// LiveOrders reports whether any recorded order is still live.
func (b *Blotter) LiveOrders() bool {
	for _, id := range b.ids {
		if b.orders[id].Live() {
			return true
		}
	}
	return false
}

// Enqueue appends o to the pending queue of the given kind.
func (b *Blotter) Enqueue(kind Kind, o order.Order) {
	switch kind {
	case KindPlace:
		b.pendingPlace = append(b.pendingPlace, o)
	case KindCancel:
		b.pendingCancel = append(b.pendingCancel, o)
	case KindUpdate:
		b.pendingUpdate = append(b.pendingUpdate, o)
	case KindReplace:
		b.pendingReplace = append(b.pendingReplace, o)
	default:
		panic("blotter: unknown pending kind " + string(kind))
	}
}

// PendingLen returns the size of one pending queue.
func (b *Blotter) PendingLen(kind Kind) int {
	return len(b.pending(kind))
}

// PendingOrders returns a copy of one pending queue.
func (b *Blotter) PendingOrders(kind Kind) []order.Order {
	q := b.pending(kind)
	out := make([]order.Order, len(q))
	copy(out, q)
	return out
}

// Drain returns and clears all pending queues.
func (b *Blotter) Drain() Pending {
	p := Pending{
		Place:   b.pendingPlace,
		Cancel:  b.pendingCancel,
		Update:  b.pendingUpdate,
		Replace: b.pendingReplace,
	}
	b.pendingPlace = nil
	b.pendingCancel = nil
	b.pendingUpdate = nil
	b.pendingReplace = nil
	return p
}

func (b *Blotter) pending(kind Kind) []order.Order {
	switch kind {
	case KindPlace:
		return b.pendingPlace
	case KindCancel:
		return b.pendingCancel
	case KindUpdate:
		return b.pendingUpdate
	case KindReplace:
		return b.pendingReplace
	}
	return nil
}

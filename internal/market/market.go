package market

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rickgao/exchange-trader/internal/blotter"
	"github.com/rickgao/exchange-trader/internal/model"
	"github.com/rickgao/exchange-trader/internal/order"
)

// unknownStartTime is used when neither catalogue nor book carry a start
// time, so the market reads as long started.
var unknownStartTime = time.Unix(1, 0).UTC()

// Market is one venue market being traded.
type Market struct {
	id string

	mu        sync.Mutex
	book      *model.MarketBook
	catalogue *model.MarketCatalogue
	closed    bool
	blotter   *blotter.Blotter
}

// New creates an open Market. book may be nil.
func New(id string, book *model.MarketBook) *Market {
	return &Market{
		id:      id,
		book:    book,
		blotter: blotter.New(id),
	}
}

// ID returns the market id.
func (m *Market) ID() string {
	return m.id
}

// UpdateSnapshot replaces the market book.
func (m *Market) UpdateSnapshot(book *model.MarketBook) {
	m.mu.Lock()
	m.book = book
	m.mu.Unlock()
}

// MarketBook returns the latest snapshot, or nil.
func (m *Market) MarketBook() *model.MarketBook {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.book
}

// SetCatalogue replaces the catalogue.
func (m *Market) SetCatalogue(c *model.MarketCatalogue) {
	m.mu.Lock()
	m.catalogue = c
	m.mu.Unlock()
}

// MarketCatalogue returns the catalogue, or nil.
func (m *Market) MarketCatalogue() *model.MarketCatalogue {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.catalogue
}

// Open clears the closed flag.
func (m *Market) Open() {
	m.mu.Lock()
	m.closed = false
	m.mu.Unlock()
}

// Close sets the closed flag.
func (m *Market) Close() {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
}

// Closed reports whether the market is closed.
func (m *Market) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// SecondsToStart returns seconds until the scheduled start, preferring the
// catalogue start time over the streamed market time.
func (m *Market) SecondsToStart() float64 {
	return m.secondsToStartAt(time.Now())
}

func (m *Market) secondsToStartAt(now time.Time) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	start := unknownStartTime
	if t, ok := m.catalogue.StartTime(); ok {
		start = t
	} else if t, ok := m.book.MarketTime(); ok {
		start = t
	}
	return start.Sub(now).Seconds()
}

// PlaceOrder records o and marks it for placement. A second call with an
// order id already in the blotter is a retry and does nothing. An order
// whose Place fails is not recorded, so it can be placed again.
func (m *Market) PlaceOrder(o order.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.blotter.Has(o.ID()) {
		return nil
	}
	if err := o.Place(); err != nil {
		return err
	}
	m.blotter.Add(o)
	m.blotter.Enqueue(blotter.KindPlace, o)
	return nil
}

// CancelOrder marks o for cancellation. A nil reduction cancels in full.
func (m *Market) CancelOrder(o order.Order, reduction *decimal.Decimal) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := o.Cancel(reduction); err != nil {
		return err
	}
	m.blotter.Enqueue(blotter.KindCancel, o)
	return nil
}

// UpdateOrder marks o for a persistence type change.
func (m *Market) UpdateOrder(o order.Order, persistence order.PersistenceType) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := o.Update(persistence); err != nil {
		return err
	}
	m.blotter.Enqueue(blotter.KindUpdate, o)
	return nil
}

// ReplaceOrder marks o to be replaced at price.
func (m *Market) ReplaceOrder(o order.Order, price decimal.Decimal) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := o.Replace(price); err != nil {
		return err
	}
	m.blotter.Enqueue(blotter.KindReplace, o)
	return nil
}

// RecordOrder adds o to the blotter without marking it for placement.
// Used for orders the venue created on our behalf (replacements).
func (m *Market) RecordOrder(o order.Order) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.blotter.Add(o)
}

// GetOrder returns a recorded order.
func (m *Market) GetOrder(orderID string) (order.Order, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.blotter.Get(orderID)
}

// Orders returns every recorded order in insertion order.
func (m *Market) Orders() []order.Order {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.blotter.Orders()
}

// LiveOrders reports whether the blotter holds any live order.
func (m *Market) LiveOrders() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.blotter.LiveOrders()
}

// PendingLen returns the size of one pending queue.
func (m *Market) PendingLen(kind blotter.Kind) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.blotter.PendingLen(kind)
}

// DrainPending returns and clears all pending queues.
func (m *Market) DrainPending() blotter.Pending {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.blotter.Drain()
}

package market

import (
	"sync"

	"github.com/shopspring/decimal"

	"github.com/rickgao/exchange-trader/internal/order"
)

// fakeOrder records every action invoked on it.
type fakeOrder struct {
	mu   sync.Mutex
	id   string
	live bool

	placeCalls   int
	cancelArgs   []*decimal.Decimal
	updateArgs   []order.PersistenceType
	replaceArgs  []decimal.Decimal
	failNextCall error
}

func newFakeOrder(id string) *fakeOrder {
	return &fakeOrder{id: id, live: true}
}

func (f *fakeOrder) ID() string { return f.id }

func (f *fakeOrder) Live() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.live
}

func (f *fakeOrder) Place() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.placeCalls++
	return f.takeErr()
}

func (f *fakeOrder) Cancel(reduction *decimal.Decimal) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancelArgs = append(f.cancelArgs, reduction)
	return f.takeErr()
}

func (f *fakeOrder) Update(p order.PersistenceType) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updateArgs = append(f.updateArgs, p)
	return f.takeErr()
}

func (f *fakeOrder) Replace(price decimal.Decimal) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.replaceArgs = append(f.replaceArgs, price)
	return f.takeErr()
}

func (f *fakeOrder) takeErr() error {
	err := f.failNextCall
	f.failNextCall = nil
	return err
}

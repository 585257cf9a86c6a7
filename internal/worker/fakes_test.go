package worker

import (
	"context"
	"errors"
	"sync"

	"github.com/rickgao/exchange-trader/internal/api"
	"github.com/rickgao/exchange-trader/internal/events"
	"github.com/rickgao/exchange-trader/internal/market"
	"github.com/rickgao/exchange-trader/internal/model"
)

var errVenue = &api.VenueError{Operation: "test", Code: "TOO_MUCH_DATA"}

// fakeVenue is a scriptable Venue that records every call.
type fakeVenue struct {
	mu sync.Mutex

	token   string
	expired bool

	loginErr     error
	keepAlive    *api.KeepAliveResponse
	keepAliveErr error

	fundsErr error
	funds    model.AccountFunds

	catalogues    []model.MarketCatalogue
	catalogueErr  error
	catalogueArgs []catalogueCall

	// clearedPages is consumed in order; clearedErr wins when set.
	clearedPages []*api.ClearedOrderPage
	clearedErr   error
	clearedFn    func(req api.ClearedOrdersRequest) (*api.ClearedOrderPage, error)
	clearedCalls []api.ClearedOrdersRequest

	loginCalls     int
	keepAliveCalls int
	updateCalls    int
}

type catalogueCall struct {
	filter     api.MarketFilter
	projection []string
	maxResults int
}

func (v *fakeVenue) Login(context.Context) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.loginCalls++
	if v.loginErr == nil {
		v.token = "fresh"
		v.expired = false
	}
	return v.loginErr
}

func (v *fakeVenue) KeepAlive(context.Context) (*api.KeepAliveResponse, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.keepAliveCalls++
	return v.keepAlive, v.keepAliveErr
}

func (v *fakeVenue) SessionToken() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.token
}

func (v *fakeVenue) SessionExpired() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.expired
}

func (v *fakeVenue) UpdateAccountDetails(context.Context) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.updateCalls++
	return v.fundsErr
}

func (v *fakeVenue) AccountFunds() model.AccountFunds {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.funds
}

func (v *fakeVenue) ListMarketCatalogue(_ context.Context, filter api.MarketFilter, projection []string, maxResults int) ([]model.MarketCatalogue, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.catalogueArgs = append(v.catalogueArgs, catalogueCall{filter, projection, maxResults})
	return v.catalogues, v.catalogueErr
}

func (v *fakeVenue) ListClearedOrders(_ context.Context, req api.ClearedOrdersRequest) (*api.ClearedOrderPage, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.clearedCalls = append(v.clearedCalls, req)
	if v.clearedFn != nil {
		return v.clearedFn(req)
	}
	if v.clearedErr != nil {
		return nil, v.clearedErr
	}
	if len(v.clearedPages) == 0 {
		return nil, errors.New("no page scripted")
	}
	p := v.clearedPages[0]
	v.clearedPages = v.clearedPages[1:]
	return p, nil
}

// recordingQueue keeps every event put on it.
type recordingQueue struct {
	mu     sync.Mutex
	events []events.Event
}

func (q *recordingQueue) Put(e events.Event) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.events = append(q.events, e)
	return true
}

func (q *recordingQueue) all() []events.Event {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]events.Event, len(q.events))
	copy(out, q.events)
	return out
}

// fakeHost wires a fakeVenue, a registry and recording sinks.
type fakeHost struct {
	venue    *fakeVenue
	markets  *market.Registry
	queue    *recordingQueue
	control  *recordingQueue
	identity string
}

func newFakeHost() *fakeHost {
	return &fakeHost{
		venue:    &fakeVenue{},
		markets:  market.NewRegistry(),
		queue:    &recordingQueue{},
		control:  &recordingQueue{},
		identity: "host-1",
	}
}

func (h *fakeHost) Client() Venue             { return h.venue }
func (h *fakeHost) Markets() *market.Registry { return h.markets }
func (h *fakeHost) HandlerQueue() EventQueue  { return h.queue }
func (h *fakeHost) LogControl(e events.Event) { h.control.Put(e) }
func (h *fakeHost) Identifier() string        { return h.identity }

// addClosed registers a closed market.
func (h *fakeHost) addClosed(id string) {
	h.markets.AddMarket(id, market.New(id, nil))
	h.markets.CloseMarket(id)
}

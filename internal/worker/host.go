package worker

import (
	"context"

	"github.com/rickgao/exchange-trader/internal/api"
	"github.com/rickgao/exchange-trader/internal/events"
	"github.com/rickgao/exchange-trader/internal/market"
	"github.com/rickgao/exchange-trader/internal/model"
)

// Venue is the exchange client capability set the tasks use.
type Venue interface {
	Login(ctx context.Context) error
	KeepAlive(ctx context.Context) (*api.KeepAliveResponse, error)
	SessionToken() string
	SessionExpired() bool
	UpdateAccountDetails(ctx context.Context) error
	AccountFunds() model.AccountFunds
	ListMarketCatalogue(ctx context.Context, filter api.MarketFilter, projection []string, maxResults int) ([]model.MarketCatalogue, error)
	ListClearedOrders(ctx context.Context, req api.ClearedOrdersRequest) (*api.ClearedOrderPage, error)
}

// EventQueue accepts events for the single handler.
type EventQueue interface {
	Put(e events.Event) bool
}

// Host is the environment every task runs against.
type Host interface {
	Client() Venue
	Markets() *market.Registry
	HandlerQueue() EventQueue
	LogControl(e events.Event)
	Identifier() string
}

var _ Venue = (*api.Client)(nil)

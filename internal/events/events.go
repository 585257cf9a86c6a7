// Package events defines the typed results the trader publishes and the
// ordered in-process queue that carries them to the single handler.
package events

import (
	"time"

	"github.com/rickgao/exchange-trader/internal/model"
)

// Kind identifies an event type.
type Kind string

const (
	KindMarketCatalogue Kind = "market_catalogue"
	KindBalance         Kind = "balance"
	KindClearedOrders   Kind = "cleared_orders"
	KindClearedMarkets  Kind = "cleared_markets"
	KindMarketBook      Kind = "market_book"
)

// Event is anything placed on the handler queue or the control log.
type Event interface {
	Kind() Kind
}

// MarketCatalogueEvent carries one catalogue poll result.
type MarketCatalogueEvent struct {
	Catalogues []model.MarketCatalogue
	ReceivedAt time.Time
}

func (MarketCatalogueEvent) Kind() Kind { return KindMarketCatalogue }

// BalanceEvent carries the refreshed account funds.
type BalanceEvent struct {
	Funds model.AccountFunds
}

func (BalanceEvent) Kind() Kind { return KindBalance }

// ClearedOrdersEvent carries every settled order of one market.
type ClearedOrdersEvent struct {
	MarketID string
	Orders   []model.ClearedOrder
}

func (ClearedOrdersEvent) Kind() Kind { return KindClearedOrders }

// ClearedMarketsEvent carries the market-level settlement summary.
type ClearedMarketsEvent struct {
	MarketID string
	Orders   []model.ClearedOrder
}

func (ClearedMarketsEvent) Kind() Kind { return KindClearedMarkets }

// MarketBookEvent carries a fresh snapshot from the market stream.
type MarketBookEvent struct {
	Book *model.MarketBook
}

func (MarketBookEvent) Kind() Kind { return KindMarketBook }

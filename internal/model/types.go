package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Market statuses reported by the exchange.
const (
	MarketStatusInactive  = "INACTIVE"
	MarketStatusOpen      = "OPEN"
	MarketStatusSuspended = "SUSPENDED"
	MarketStatusClosed    = "CLOSED"
)

// -----------------------------------------------------------------------------
// Streamed Types
// -----------------------------------------------------------------------------

// PriceSize is a single ladder level.
type PriceSize struct {
	Price decimal.Decimal
	Size  decimal.Decimal
}

// MarketDefinition is the descriptive part of a streamed market.
type MarketDefinition struct {
	Status          string    // INACTIVE, OPEN, SUSPENDED, CLOSED
	MarketTime      time.Time // Scheduled start
	SuspendTime     time.Time
	InPlay          bool
	BetDelay        int
	Version         int64
	NumberOfWinners int
	MarketType      string
	EventID         string
	EventTypeID     string
	Runners         []RunnerDefinition
}

// RunnerDefinition describes a runner inside a MarketDefinition.
type RunnerDefinition struct {
	SelectionID  int64
	Handicap     decimal.Decimal
	Status       string // ACTIVE, WINNER, LOSER, REMOVED
	SortPriority int
}

// RunnerBook is a runner's price state.
type RunnerBook struct {
	SelectionID     int64
	Handicap        decimal.Decimal
	LastPriceTraded decimal.Decimal
	TotalMatched    decimal.Decimal
	AvailableToBack []PriceSize // Best first
	AvailableToLay  []PriceSize // Best first
}

// MarketBook is a point-in-time snapshot of one market.
// A new MarketBook replaces the previous one wholesale.
type MarketBook struct {
	MarketID         string
	PublishTime      time.Time
	ReceivedAt       time.Time
	TotalMatched     decimal.Decimal
	MarketDefinition *MarketDefinition
	Runners          []RunnerBook
}

// Status returns the market status from the definition, or "" if unknown.
func (b *MarketBook) Status() string {
	if b == nil || b.MarketDefinition == nil {
		return ""
	}
	return b.MarketDefinition.Status
}

// MarketTime returns the scheduled start from the definition.
func (b *MarketBook) MarketTime() (time.Time, bool) {
	if b == nil || b.MarketDefinition == nil || b.MarketDefinition.MarketTime.IsZero() {
		return time.Time{}, false
	}
	return b.MarketDefinition.MarketTime, true
}

// -----------------------------------------------------------------------------
// Catalogue Types
// -----------------------------------------------------------------------------

// MarketCatalogue is descriptive (non-price) market metadata.
type MarketCatalogue struct {
	MarketID        string
	MarketName      string
	MarketStartTime time.Time
	TotalMatched    decimal.Decimal
	EventTypeID     string
	EventTypeName   string
	CompetitionID   string
	CompetitionName string
	EventID         string
	EventName       string
	CountryCode     string
	Venue           string
	MarketType      string
	BettingType     string
	Runners         []RunnerCatalogue
}

// StartTime returns the catalogue start time if present.
func (c *MarketCatalogue) StartTime() (time.Time, bool) {
	if c == nil || c.MarketStartTime.IsZero() {
		return time.Time{}, false
	}
	return c.MarketStartTime, true
}

// RunnerCatalogue describes one runner.
type RunnerCatalogue struct {
	SelectionID  int64
	RunnerName   string
	Handicap     decimal.Decimal
	SortPriority int
	Metadata     map[string]string
}

// -----------------------------------------------------------------------------
// Account / Settlement Types
// -----------------------------------------------------------------------------

// AccountFunds is the cached account balance.
type AccountFunds struct {
	AvailableToBet     decimal.Decimal
	Exposure           decimal.Decimal
	RetainedCommission decimal.Decimal
	ExposureLimit      decimal.Decimal
	DiscountRate       decimal.Decimal
	PointsBalance      int64
	Wallet             string
	UpdatedAt          time.Time
}

// ClearedOrder is a settled order or, when grouped by market, a
// settlement summary for a whole market.
type ClearedOrder struct {
	MarketID            string
	EventID             string
	EventTypeID         string
	SelectionID         int64
	Handicap            decimal.Decimal
	BetID               string
	Side                string
	BetOutcome          string
	PriceRequested      decimal.Decimal
	PriceMatched        decimal.Decimal
	SizeSettled         decimal.Decimal
	Profit              decimal.Decimal
	Commission          decimal.Decimal
	BetCount            int
	CustomerOrderRef    string
	CustomerStrategyRef string
	PlacedDate          time.Time
	SettledDate         time.Time
}

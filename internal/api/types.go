package api

import "github.com/rickgao/exchange-trader/internal/model"

// -----------------------------------------------------------------------------
// Identity
// -----------------------------------------------------------------------------

// Session operation statuses.
const (
	StatusSuccess = "SUCCESS"
	StatusFailure = "FAILURE"
	StatusTimeout = "TIMEOUT"
)

// LoginResponse from the interactive login endpoint.
type LoginResponse struct {
	Token   string `json:"token"`
	Product string `json:"product"`
	Status  string `json:"status"`
	Error   string `json:"error"`
}

// CertLoginResponse from the certificate login endpoint.
type CertLoginResponse struct {
	SessionToken string `json:"sessionToken"`
	LoginStatus  string `json:"loginStatus"`
}

// KeepAliveResponse from the keep-alive endpoint.
type KeepAliveResponse struct {
	Token   string `json:"token"`
	Product string `json:"product"`
	Status  string `json:"status"`
	Error   string `json:"error"`
}

// -----------------------------------------------------------------------------
// Catalogue
// -----------------------------------------------------------------------------

// Market projections for listMarketCatalogue.
const (
	ProjectionCompetition       = "COMPETITION"
	ProjectionEvent             = "EVENT"
	ProjectionEventType         = "EVENT_TYPE"
	ProjectionRunnerDescription = "RUNNER_DESCRIPTION"
	ProjectionRunnerMetadata    = "RUNNER_METADATA"
	ProjectionMarketStartTime   = "MARKET_START_TIME"
	ProjectionMarketDescription = "MARKET_DESCRIPTION"
)

// MarketFilter selects markets.
type MarketFilter struct {
	MarketIDs []string `json:"marketIds,omitempty"`
}

type listMarketCatalogueParams struct {
	Filter           MarketFilter `json:"filter"`
	MarketProjection []string     `json:"marketProjection,omitempty"`
	MaxResults       int          `json:"maxResults"`
}

// APIMarketCatalogue is one listMarketCatalogue entry.
type APIMarketCatalogue struct {
	MarketID        string             `json:"marketId"`
	MarketName      string             `json:"marketName"`
	MarketStartTime string             `json:"marketStartTime"`
	TotalMatched    float64            `json:"totalMatched"`
	Description     *APIDescription    `json:"description,omitempty"`
	Runners         []APIRunnerCatalog `json:"runners"`
	EventType       *APINamedID        `json:"eventType,omitempty"`
	Competition     *APINamedID        `json:"competition,omitempty"`
	Event           *APIEvent          `json:"event,omitempty"`
}

// APIDescription is the MARKET_DESCRIPTION projection.
type APIDescription struct {
	MarketType  string `json:"marketType"`
	BettingType string `json:"bettingType"`
}

// APINamedID is an id/name pair.
type APINamedID struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// APIEvent is the EVENT projection.
type APIEvent struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	CountryCode string `json:"countryCode"`
	Venue       string `json:"venue"`
	OpenDate    string `json:"openDate"`
}

// APIRunnerCatalog describes a runner.
type APIRunnerCatalog struct {
	SelectionID  int64             `json:"selectionId"`
	RunnerName   string            `json:"runnerName"`
	Handicap     float64           `json:"handicap"`
	SortPriority int               `json:"sortPriority"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

// -----------------------------------------------------------------------------
// Settlement
// -----------------------------------------------------------------------------

// Cleared order options.
const (
	BetStatusSettled = "SETTLED"
	GroupByMarket    = "MARKET"
)

// ClearedOrdersRequest configures a listClearedOrders call.
type ClearedOrdersRequest struct {
	BetStatus            string   `json:"betStatus"`
	MarketIDs            []string `json:"marketIds,omitempty"`
	CustomerStrategyRefs []string `json:"customerStrategyRefs,omitempty"`
	GroupBy              string   `json:"groupBy,omitempty"`
	FromRecord           int      `json:"fromRecord,omitempty"`
	RecordCount          int      `json:"recordCount,omitempty"`
}

// ClearedOrdersResponse from listClearedOrders.
type ClearedOrdersResponse struct {
	ClearedOrders []APIClearedOrder `json:"clearedOrders"`
	MoreAvailable bool              `json:"moreAvailable"`
}

// APIClearedOrder is one settled order or market summary.
type APIClearedOrder struct {
	EventTypeID         string  `json:"eventTypeId"`
	EventID             string  `json:"eventId"`
	MarketID            string  `json:"marketId"`
	SelectionID         int64   `json:"selectionId"`
	Handicap            float64 `json:"handicap"`
	BetID               string  `json:"betId"`
	PlacedDate          string  `json:"placedDate"`
	Side                string  `json:"side"`
	BetOutcome          string  `json:"betOutcome"`
	PriceRequested      float64 `json:"priceRequested"`
	SettledDate         string  `json:"settledDate"`
	BetCount            int     `json:"betCount"`
	Commission          float64 `json:"commission"`
	PriceMatched        float64 `json:"priceMatched"`
	SizeSettled         float64 `json:"sizeSettled"`
	Profit              float64 `json:"profit"`
	CustomerOrderRef    string  `json:"customerOrderRef"`
	CustomerStrategyRef string  `json:"customerStrategyRef"`
}

// ClearedOrderPage is one decoded page of cleared orders.
type ClearedOrderPage struct {
	Orders        []model.ClearedOrder
	MoreAvailable bool
}

// -----------------------------------------------------------------------------
// Execution
// -----------------------------------------------------------------------------

// LimitOrder is the limitOrder part of a place instruction.
type LimitOrder struct {
	Size            float64 `json:"size"`
	Price           float64 `json:"price"`
	PersistenceType string  `json:"persistenceType"`
}

// PlaceInstruction places one order.
type PlaceInstruction struct {
	OrderType        string      `json:"orderType"`
	SelectionID      int64       `json:"selectionId"`
	Handicap         float64     `json:"handicap"`
	Side             string      `json:"side"`
	LimitOrder       *LimitOrder `json:"limitOrder,omitempty"`
	CustomerOrderRef string      `json:"customerOrderRef,omitempty"`
}

// CancelInstruction cancels (part of) one bet. A nil SizeReduction cancels
// the whole remaining size.
type CancelInstruction struct {
	BetID         string   `json:"betId"`
	SizeReduction *float64 `json:"sizeReduction,omitempty"`
}

// UpdateInstruction changes a bet's persistence type.
type UpdateInstruction struct {
	BetID              string `json:"betId"`
	NewPersistenceType string `json:"newPersistenceType"`
}

// ReplaceInstruction moves a bet to a new price.
type ReplaceInstruction struct {
	BetID    string  `json:"betId"`
	NewPrice float64 `json:"newPrice"`
}

// PlaceOrdersRequest is the placeOrders payload.
type PlaceOrdersRequest struct {
	MarketID            string             `json:"marketId"`
	Instructions        []PlaceInstruction `json:"instructions"`
	CustomerRef         string             `json:"customerRef,omitempty"`
	CustomerStrategyRef string             `json:"customerStrategyRef,omitempty"`
	Async               bool               `json:"async,omitempty"`
}

// CancelOrdersRequest is the cancelOrders payload.
type CancelOrdersRequest struct {
	MarketID     string              `json:"marketId"`
	Instructions []CancelInstruction `json:"instructions"`
	CustomerRef  string              `json:"customerRef,omitempty"`
}

// UpdateOrdersRequest is the updateOrders payload.
type UpdateOrdersRequest struct {
	MarketID     string              `json:"marketId"`
	Instructions []UpdateInstruction `json:"instructions"`
	CustomerRef  string              `json:"customerRef,omitempty"`
}

// ReplaceOrdersRequest is the replaceOrders payload.
type ReplaceOrdersRequest struct {
	MarketID     string               `json:"marketId"`
	Instructions []ReplaceInstruction `json:"instructions"`
	CustomerRef  string               `json:"customerRef,omitempty"`
	Async        bool                 `json:"async,omitempty"`
}

// PlaceInstructionReport is the outcome of one place instruction.
type PlaceInstructionReport struct {
	Status              string           `json:"status"`
	ErrorCode           string           `json:"errorCode,omitempty"`
	OrderStatus         string           `json:"orderStatus,omitempty"`
	Instruction         PlaceInstruction `json:"instruction"`
	BetID               string           `json:"betId,omitempty"`
	PlacedDate          string           `json:"placedDate,omitempty"`
	AveragePriceMatched float64          `json:"averagePriceMatched,omitempty"`
	SizeMatched         float64          `json:"sizeMatched,omitempty"`
}

// CancelInstructionReport is the outcome of one cancel instruction.
type CancelInstructionReport struct {
	Status        string            `json:"status"`
	ErrorCode     string            `json:"errorCode,omitempty"`
	Instruction   CancelInstruction `json:"instruction"`
	SizeCancelled float64           `json:"sizeCancelled"`
	CancelledDate string            `json:"cancelledDate,omitempty"`
}

// UpdateInstructionReport is the outcome of one update instruction.
type UpdateInstructionReport struct {
	Status      string            `json:"status"`
	ErrorCode   string            `json:"errorCode,omitempty"`
	Instruction UpdateInstruction `json:"instruction"`
}

// ReplaceInstructionReport pairs the cancel and place halves of a replace.
type ReplaceInstructionReport struct {
	Status                  string                  `json:"status"`
	ErrorCode               string                  `json:"errorCode,omitempty"`
	CancelInstructionReport CancelInstructionReport `json:"cancelInstructionReport"`
	PlaceInstructionReport  PlaceInstructionReport  `json:"placeInstructionReport"`
}

// ExecutionReport is the common envelope of the four execution operations.
type ExecutionReport[R any] struct {
	CustomerRef        string `json:"customerRef,omitempty"`
	Status             string `json:"status"`
	ErrorCode          string `json:"errorCode,omitempty"`
	MarketID           string `json:"marketId"`
	InstructionReports []R    `json:"instructionReports"`
}

// Report type aliases per operation.
type (
	PlaceExecutionReport   = ExecutionReport[PlaceInstructionReport]
	CancelExecutionReport  = ExecutionReport[CancelInstructionReport]
	UpdateExecutionReport  = ExecutionReport[UpdateInstructionReport]
	ReplaceExecutionReport = ExecutionReport[ReplaceInstructionReport]
)

// -----------------------------------------------------------------------------
// Account
// -----------------------------------------------------------------------------

// AccountFundsResponse from getAccountFunds.
type AccountFundsResponse struct {
	AvailableToBetBalance float64 `json:"availableToBetBalance"`
	Exposure              float64 `json:"exposure"`
	RetainedCommission    float64 `json:"retainedCommission"`
	ExposureLimit         float64 `json:"exposureLimit"`
	DiscountRate          float64 `json:"discountRate"`
	PointsBalance         int64   `json:"pointsBalance"`
	Wallet                string  `json:"wallet"`
}

package stream

import (
	"encoding/json"
	"fmt"
)

// Operation names.
const (
	OpAuthentication     = "authentication"
	OpMarketSubscription = "marketSubscription"
	OpConnection         = "connection"
	OpStatus             = "status"
	OpMarketChange       = "mcm"
)

// Change types on an mcm message.
const (
	ChangeSubImage   = "SUB_IMAGE"
	ChangeResubDelta = "RESUB_DELTA"
	ChangeHeartbeat  = "HEARTBEAT"
)

// Market data fields requested by default.
var DefaultFields = []string{"EX_ALL_OFFERS", "EX_TRADED_VOL", "EX_LTP", "EX_MARKET_DEF"}

// -----------------------------------------------------------------------------
// Outbound
// -----------------------------------------------------------------------------

// AuthenticationMessage authenticates the connection with a REST session.
type AuthenticationMessage struct {
	Op      string `json:"op"`
	ID      int64  `json:"id"`
	AppKey  string `json:"appKey"`
	Session string `json:"session"`
}

// MarketFilter selects the markets to stream.
type MarketFilter struct {
	MarketIDs    []string `json:"marketIds,omitempty"`
	EventTypeIDs []string `json:"eventTypeIds,omitempty"`
	MarketTypes  []string `json:"marketTypes,omitempty"`
	CountryCodes []string `json:"countryCodes,omitempty"`
}

// MarketDataFilter selects the data fields to stream.
type MarketDataFilter struct {
	Fields       []string `json:"fields"`
	LadderLevels int      `json:"ladderLevels,omitempty"`
}

// MarketSubscriptionMessage subscribes to market changes. Clk and
// InitialClk resume a previous subscription after a reconnect.
type MarketSubscriptionMessage struct {
	Op               string           `json:"op"`
	ID               int64            `json:"id"`
	MarketFilter     MarketFilter     `json:"marketFilter"`
	MarketDataFilter MarketDataFilter `json:"marketDataFilter"`
	InitialClk       string           `json:"initialClk,omitempty"`
	Clk              string           `json:"clk,omitempty"`
	HeartbeatMs      int              `json:"heartbeatMs,omitempty"`
	ConflateMs       int              `json:"conflateMs,omitempty"`
}

// -----------------------------------------------------------------------------
// Inbound
// -----------------------------------------------------------------------------

// envelope is decoded first to dispatch on op.
type envelope struct {
	Op string `json:"op"`
	ID int64  `json:"id"`
}

// ConnectionMessage is sent by the server when the socket opens.
type ConnectionMessage struct {
	ConnectionID string `json:"connectionId"`
}

// StatusMessage acknowledges a request or reports a failure.
type StatusMessage struct {
	ID               int64  `json:"id"`
	StatusCode       string `json:"statusCode"` // SUCCESS, FAILURE
	ErrorCode        string `json:"errorCode"`
	ErrorMessage     string `json:"errorMessage"`
	ConnectionClosed bool   `json:"connectionClosed"`
}

// StatusError is a FAILURE status from the server.
type StatusError struct {
	Code    string
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("stream status %s: %s", e.Code, e.Message)
}

// MarketChangeMessage carries changes for one or more markets.
type MarketChangeMessage struct {
	ID         int64          `json:"id"`
	Ct         string         `json:"ct"`
	Clk        string         `json:"clk"`
	InitialClk string         `json:"initialClk"`
	Pt         int64          `json:"pt"` // Publish time, epoch millis
	Mc         []MarketChange `json:"mc"`
}

// MarketChange is the change to a single market. Img replaces the cached
// market instead of merging into it.
type MarketChange struct {
	ID               string            `json:"id"`
	Img              bool              `json:"img"`
	Tv               *float64          `json:"tv"`
	MarketDefinition *MarketDefinition `json:"marketDefinition"`
	Rc               []RunnerChange    `json:"rc"`
}

// RunnerChange is the change to one runner. Ladder entries are
// [price, size] pairs; size 0 removes the level.
type RunnerChange struct {
	ID  int64        `json:"id"`
	Hc  float64      `json:"hc"`
	Ltp *float64     `json:"ltp"`
	Tv  *float64     `json:"tv"`
	Atb [][2]float64 `json:"atb"`
	Atl [][2]float64 `json:"atl"`
	Trd [][2]float64 `json:"trd"`
}

// MarketDefinition is the streamed market definition.
type MarketDefinition struct {
	Status          string             `json:"status"`
	MarketTime      string             `json:"marketTime"`
	SuspendTime     string             `json:"suspendTime"`
	InPlay          bool               `json:"inPlay"`
	BetDelay        int                `json:"betDelay"`
	Version         int64              `json:"version"`
	NumberOfWinners int                `json:"numberOfWinners"`
	MarketType      string             `json:"marketType"`
	EventID         string             `json:"eventId"`
	EventTypeID     string             `json:"eventTypeId"`
	Runners         []RunnerDefinition `json:"runners"`
}

// RunnerDefinition is one runner inside a MarketDefinition.
type RunnerDefinition struct {
	ID           int64   `json:"id"`
	Hc           float64 `json:"hc"`
	Status       string  `json:"status"`
	SortPriority int     `json:"sortPriority"`
}

// decode unmarshals data into a fresh T.
func decode[T any](data []byte) (T, error) {
	var v T
	err := json.Unmarshal(data, &v)
	return v, err
}

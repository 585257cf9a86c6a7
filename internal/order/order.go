// Package order defines the order contract held by a market blotter and the
// concrete limit order the execution layer transmits.
package order

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrInvalidTransition = errors.New("invalid order state transition")
	ErrInvalidPrice      = errors.New("invalid order price")
)

// Order is the capability set a blotter needs from an order. Each action
// records the intent on the order itself; transmission happens later.
type Order interface {
	ID() string
	Place() error
	Cancel(reduction *decimal.Decimal) error
	Update(persistence PersistenceType) error
	Replace(price decimal.Decimal) error
	Live() bool
}

// Status tracks the lifecycle of an order.
type Status string

const (
	StatusPending           Status = "PENDING"
	StatusPlacing           Status = "PLACING"
	StatusExecutable        Status = "EXECUTABLE"
	StatusCancelling        Status = "CANCELLING"
	StatusUpdating          Status = "UPDATING"
	StatusReplacing         Status = "REPLACING"
	StatusExecutionComplete Status = "EXECUTION_COMPLETE"
	StatusLapsed            Status = "LAPSED"
	StatusViolation         Status = "VIOLATION"
)

// Complete reports whether no further venue action can happen.
func (s Status) Complete() bool {
	switch s {
	case StatusExecutionComplete, StatusLapsed, StatusViolation:
		return true
	}
	return false
}

// Side is the bet direction.
type Side string

const (
	SideBack Side = "BACK"
	SideLay  Side = "LAY"
)

// PersistenceType is what happens to the unmatched part at in-play.
type PersistenceType string

const (
	PersistenceLapse         PersistenceType = "LAPSE"
	PersistencePersist       PersistenceType = "PERSIST"
	PersistenceMarketOnClose PersistenceType = "MARKET_ON_CLOSE"
)

// StatusChange is one entry of an order's status history.
type StatusChange struct {
	Status Status
	At     time.Time
	Reason string
}

// LimitOrder is a price/size order on one runner.
type LimitOrder struct {
	mu sync.Mutex

	id          string
	marketID    string
	selectionID int64
	handicap    decimal.Decimal
	side        Side
	price       decimal.Decimal
	size        decimal.Decimal
	persistence PersistenceType
	strategyRef string

	status      Status
	history     []StatusChange
	betID       string
	sizeMatched decimal.Decimal

	// Requested changes awaiting transmission.
	cancelReduction *decimal.Decimal
	newPersistence  PersistenceType
	newPrice        decimal.Decimal
}

// LimitParams describes a new limit order.
type LimitParams struct {
	MarketID    string
	SelectionID int64
	Handicap    decimal.Decimal
	Side        Side
	Price       decimal.Decimal
	Size        decimal.Decimal
	Persistence PersistenceType
	StrategyRef string
}

// NewLimitOrder creates a Pending order with a fresh id.
func NewLimitOrder(p LimitParams) *LimitOrder {
	if p.Persistence == "" {
		p.Persistence = PersistenceLapse
	}
	o := &LimitOrder{
		id:          uuid.NewString(),
		marketID:    p.MarketID,
		selectionID: p.SelectionID,
		handicap:    p.Handicap,
		side:        p.Side,
		price:       p.Price,
		size:        p.Size,
		persistence: p.Persistence,
		strategyRef: p.StrategyRef,
	}
	o.setStatusLocked(StatusPending, "")
	return o
}

func (o *LimitOrder) ID() string                { return o.id }
func (o *LimitOrder) MarketID() string          { return o.marketID }
func (o *LimitOrder) SelectionID() int64        { return o.selectionID }
func (o *LimitOrder) Handicap() decimal.Decimal { return o.handicap }
func (o *LimitOrder) Side() Side                { return o.side }
func (o *LimitOrder) Size() decimal.Decimal     { return o.size }
func (o *LimitOrder) StrategyRef() string       { return o.strategyRef }

// Price returns the current limit price.
func (o *LimitOrder) Price() decimal.Decimal {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.price
}

// Persistence returns the current persistence type.
func (o *LimitOrder) Persistence() PersistenceType {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.persistence
}

// Status returns the current status.
func (o *LimitOrder) Status() Status {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.status
}

// History returns a copy of the status history.
func (o *LimitOrder) History() []StatusChange {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]StatusChange, len(o.history))
	copy(out, o.history)
	return out
}

// BetID returns the venue bet id, empty until placement succeeds.
func (o *LimitOrder) BetID() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.betID
}

// SizeMatched returns the matched size reported by the venue.
func (o *LimitOrder) SizeMatched() decimal.Decimal {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.sizeMatched
}

// SizeRemaining returns size minus matched size.
func (o *LimitOrder) SizeRemaining() decimal.Decimal {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.size.Sub(o.sizeMatched)
}

// Live reports whether the order may still act on the venue.
func (o *LimitOrder) Live() bool {
	return !o.Status().Complete()
}

// Place marks the order for placement.
func (o *LimitOrder) Place() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.transitionLocked(StatusPending, StatusPlacing)
}

// Cancel marks the order for cancellation. A nil reduction cancels the
// whole remaining size.
func (o *LimitOrder) Cancel(reduction *decimal.Decimal) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if err := o.transitionLocked(StatusExecutable, StatusCancelling); err != nil {
		return err
	}
	o.cancelReduction = reduction
	return nil
}

// Update marks the order for a persistence type change.
func (o *LimitOrder) Update(persistence PersistenceType) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if err := o.transitionLocked(StatusExecutable, StatusUpdating); err != nil {
		return err
	}
	o.newPersistence = persistence
	return nil
}

// Replace marks the order to be cancelled and re-placed at price.
func (o *LimitOrder) Replace(price decimal.Decimal) error {
	if !price.IsPositive() {
		return fmt.Errorf("replace order %s: %w", o.id, ErrInvalidPrice)
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	if err := o.transitionLocked(StatusExecutable, StatusReplacing); err != nil {
		return err
	}
	o.newPrice = price
	return nil
}

// CancelReduction returns the requested size reduction (nil = full cancel).
func (o *LimitOrder) CancelReduction() *decimal.Decimal {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.cancelReduction
}

// NewPersistence returns the requested persistence type.
func (o *LimitOrder) NewPersistence() PersistenceType {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.newPersistence
}

// NewPrice returns the requested replacement price.
func (o *LimitOrder) NewPrice() decimal.Decimal {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.newPrice
}

// Executable records a successful venue acknowledgement.
func (o *LimitOrder) Executable() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.status.Complete() {
		return
	}
	o.clearRequestsLocked()
	o.setStatusLocked(StatusExecutable, "")
}

// ExecutionComplete records that the order is fully matched or cancelled.
func (o *LimitOrder) ExecutionComplete() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.clearRequestsLocked()
	o.setStatusLocked(StatusExecutionComplete, "")
}

// Lapsed records that the venue rejected or lapsed the order.
func (o *LimitOrder) Lapsed(reason string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.clearRequestsLocked()
	o.setStatusLocked(StatusLapsed, reason)
}

// Violation records that a pre-transmission control rejected the order.
func (o *LimitOrder) Violation(reason string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.clearRequestsLocked()
	o.setStatusLocked(StatusViolation, reason)
}

// Placed stores the venue bet id and matched size from a placement report.
func (o *LimitOrder) Placed(betID string, sizeMatched decimal.Decimal) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.betID = betID
	o.sizeMatched = sizeMatched
}

// Updated applies a confirmed persistence change.
func (o *LimitOrder) Updated() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.newPersistence != "" {
		o.persistence = o.newPersistence
	}
}

// Replacement builds the order created by a successful replace: same
// runner and remaining size at the new price, already Executable.
func (o *LimitOrder) Replacement(betID string) *LimitOrder {
	o.mu.Lock()
	p := LimitParams{
		MarketID:    o.marketID,
		SelectionID: o.selectionID,
		Handicap:    o.handicap,
		Side:        o.side,
		Price:       o.newPrice,
		Size:        o.size.Sub(o.sizeMatched),
		Persistence: o.persistence,
		StrategyRef: o.strategyRef,
	}
	o.mu.Unlock()

	r := NewLimitOrder(p)
	r.betID = betID
	r.setStatusLocked(StatusExecutable, "replacement of "+o.id)
	return r
}

func (o *LimitOrder) transitionLocked(from, to Status) error {
	if o.status != from {
		return fmt.Errorf("order %s %s -> %s: %w", o.id, o.status, to, ErrInvalidTransition)
	}
	o.setStatusLocked(to, "")
	return nil
}

func (o *LimitOrder) setStatusLocked(s Status, reason string) {
	o.status = s
	o.history = append(o.history, StatusChange{Status: s, At: time.Now().UTC(), Reason: reason})
}

func (o *LimitOrder) clearRequestsLocked() {
	o.cancelReduction = nil
	o.newPersistence = ""
	o.newPrice = decimal.Decimal{}
}

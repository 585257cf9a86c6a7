// Package execution transmits a market's pending order actions to the
// exchange and applies the instruction reports to the orders.
package execution

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/rickgao/exchange-trader/internal/api"
	"github.com/rickgao/exchange-trader/internal/controls"
	"github.com/rickgao/exchange-trader/internal/market"
	"github.com/rickgao/exchange-trader/internal/metrics"
	"github.com/rickgao/exchange-trader/internal/order"
	"github.com/rickgao/exchange-trader/internal/worker"
)

// Venue is the exchange execution surface.
type Venue interface {
	PlaceOrders(ctx context.Context, req api.PlaceOrdersRequest) (*api.PlaceExecutionReport, error)
	CancelOrders(ctx context.Context, req api.CancelOrdersRequest) (*api.CancelExecutionReport, error)
	UpdateOrders(ctx context.Context, req api.UpdateOrdersRequest) (*api.UpdateExecutionReport, error)
	ReplaceOrders(ctx context.Context, req api.ReplaceOrdersRequest) (*api.ReplaceExecutionReport, error)
}

var _ Venue = (*api.Client)(nil)

// Operation names used in logs and metrics.
const (
	OpPlace   = "place"
	OpCancel  = "cancel"
	OpUpdate  = "update"
	OpReplace = "replace"
)

// orderStatusComplete is reported when a placed bet matched in full.
const orderStatusComplete = "EXECUTION_COMPLETE"

// Config holds executor configuration.
type Config struct {
	StrategyRef string             // Sent as customerStrategyRef on placements
	Controls    []controls.Control // Run on every order before placement
}

// DefaultConfig returns the standard control set.
func DefaultConfig(strategyRef string) Config {
	return Config{
		StrategyRef: strategyRef,
		Controls:    []controls.Control{controls.OrderValidation{}},
	}
}

// Executor sends pending instructions one package per market and action.
type Executor struct {
	cfg     Config
	venue   Venue
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// New creates an Executor.
func New(cfg Config, venue Venue, logger *slog.Logger, m *metrics.Metrics) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{
		cfg:     cfg,
		venue:   venue,
		logger:  logger,
		metrics: m,
	}
}

// Task adapts the executor into a worker task run over every market.
func Task(e *Executor) worker.Func {
	return func(ctx context.Context, _ *worker.State, host worker.Host, _ worker.Params) error {
		var errs []error
		for m := range host.Markets().All() {
			if ctx.Err() != nil {
				break
			}
			if err := e.Process(ctx, m); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	}
}

// Process drains m's pending queues and transmits them. Venue failures are
// logged, applied to the affected orders and returned joined.
func (e *Executor) Process(ctx context.Context, m *market.Market) error {
	pending := m.DrainPending()
	if pending.Empty() {
		return nil
	}

	var errs []error
	if err := e.place(ctx, m, limitOrders(e.logger, pending.Place)); err != nil {
		errs = append(errs, err)
	}
	if err := e.cancel(ctx, m, limitOrders(e.logger, pending.Cancel)); err != nil {
		errs = append(errs, err)
	}
	if err := e.update(ctx, m, limitOrders(e.logger, pending.Update)); err != nil {
		errs = append(errs, err)
	}
	if err := e.replace(ctx, m, limitOrders(e.logger, pending.Replace)); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (e *Executor) place(ctx context.Context, m *market.Market, orders []*order.LimitOrder) error {
	sent := make([]*order.LimitOrder, 0, len(orders))
	instructions := make([]api.PlaceInstruction, 0, len(orders))

	for _, o := range orders {
		if err := controls.Run(o, e.cfg.Controls...); err != nil {
			e.logger.Warn("order rejected by control", "market_id", m.ID(), "order_id", o.ID(), "error", err)
			o.Violation(err.Error())
			continue
		}
		sent = append(sent, o)
		instructions = append(instructions, api.PlaceInstruction{
			OrderType:   "LIMIT",
			SelectionID: o.SelectionID(),
			Handicap:    o.Handicap().InexactFloat64(),
			Side:        string(o.Side()),
			LimitOrder: &api.LimitOrder{
				Size:            o.Size().InexactFloat64(),
				Price:           o.Price().InexactFloat64(),
				PersistenceType: string(o.Persistence()),
			},
			CustomerOrderRef: compactID(o.ID()),
		})
	}
	if len(sent) == 0 {
		return nil
	}

	resp, err := e.venue.PlaceOrders(ctx, api.PlaceOrdersRequest{
		MarketID:            m.ID(),
		Instructions:        instructions,
		CustomerRef:         newCustomerRef(),
		CustomerStrategyRef: e.cfg.StrategyRef,
	})
	if err != nil {
		e.logger.Error("execution error", "operation", OpPlace, "market_id", m.ID(), "orders", len(sent), "error", err)
		for _, o := range sent {
			o.Lapsed(err.Error())
		}
		return err
	}

	for i, report := range resp.InstructionReports {
		if i >= len(sent) {
			break
		}
		o := sent[i]
		e.logReport(OpPlace, o, report.Status, report.ErrorCode)

		switch report.Status {
		case api.StatusSuccess:
			o.Placed(report.BetID, api.ToDecimal(report.SizeMatched, true))
			if report.OrderStatus == orderStatusComplete {
				o.ExecutionComplete()
			} else {
				o.Executable()
			}
		case api.StatusFailure:
			o.Lapsed(report.ErrorCode)
		case api.StatusTimeout:
			// Outcome unknown; the order stays in Placing.
		}
	}
	return nil
}

func (e *Executor) cancel(ctx context.Context, m *market.Market, orders []*order.LimitOrder) error {
	lookup := make(map[string]*order.LimitOrder, len(orders))
	instructions := make([]api.CancelInstruction, 0, len(orders))

	for _, o := range orders {
		betID := o.BetID()
		if betID == "" {
			o.Executable()
			continue
		}
		ins := api.CancelInstruction{BetID: betID}
		if r := o.CancelReduction(); r != nil {
			f := r.InexactFloat64()
			ins.SizeReduction = &f
		}
		lookup[betID] = o
		instructions = append(instructions, ins)
	}
	if len(instructions) == 0 {
		if len(orders) > 0 {
			e.logger.Warn("empty cancel instructions", "market_id", m.ID())
		}
		return nil
	}

	resp, err := e.venue.CancelOrders(ctx, api.CancelOrdersRequest{
		MarketID:     m.ID(),
		Instructions: instructions,
		CustomerRef:  newCustomerRef(),
	})
	if err != nil {
		e.logger.Error("execution error", "operation", OpCancel, "market_id", m.ID(), "orders", len(lookup), "error", err)
		for _, o := range lookup {
			o.Executable()
		}
		return err
	}

	// Reports may come back in any order.
	for _, report := range resp.InstructionReports {
		o, ok := lookup[report.Instruction.BetID]
		if !ok {
			continue
		}
		delete(lookup, report.Instruction.BetID)
		e.logReport(OpCancel, o, report.Status, report.ErrorCode)

		if report.Status == api.StatusSuccess &&
			api.ToDecimal(report.SizeCancelled, true).Equal(o.SizeRemaining()) {
			o.ExecutionComplete()
			continue
		}
		o.Executable()
	}

	// Not reported: make them available for another attempt.
	for _, o := range lookup {
		o.Executable()
	}
	return nil
}

func (e *Executor) update(ctx context.Context, m *market.Market, orders []*order.LimitOrder) error {
	sent := make([]*order.LimitOrder, 0, len(orders))
	instructions := make([]api.UpdateInstruction, 0, len(orders))

	for _, o := range orders {
		if o.BetID() == "" {
			o.Executable()
			continue
		}
		sent = append(sent, o)
		instructions = append(instructions, api.UpdateInstruction{
			BetID:              o.BetID(),
			NewPersistenceType: string(o.NewPersistence()),
		})
	}
	if len(sent) == 0 {
		return nil
	}

	resp, err := e.venue.UpdateOrders(ctx, api.UpdateOrdersRequest{
		MarketID:     m.ID(),
		Instructions: instructions,
		CustomerRef:  newCustomerRef(),
	})
	if err != nil {
		e.logger.Error("execution error", "operation", OpUpdate, "market_id", m.ID(), "orders", len(sent), "error", err)
		for _, o := range sent {
			o.Executable()
		}
		return err
	}

	for i, report := range resp.InstructionReports {
		if i >= len(sent) {
			break
		}
		o := sent[i]
		e.logReport(OpUpdate, o, report.Status, report.ErrorCode)
		if report.Status == api.StatusSuccess {
			o.Updated()
		}
		o.Executable()
	}
	return nil
}

func (e *Executor) replace(ctx context.Context, m *market.Market, orders []*order.LimitOrder) error {
	sent := make([]*order.LimitOrder, 0, len(orders))
	instructions := make([]api.ReplaceInstruction, 0, len(orders))

	for _, o := range orders {
		if o.BetID() == "" {
			o.Executable()
			continue
		}
		sent = append(sent, o)
		instructions = append(instructions, api.ReplaceInstruction{
			BetID:    o.BetID(),
			NewPrice: o.NewPrice().InexactFloat64(),
		})
	}
	if len(sent) == 0 {
		return nil
	}

	resp, err := e.venue.ReplaceOrders(ctx, api.ReplaceOrdersRequest{
		MarketID:     m.ID(),
		Instructions: instructions,
		CustomerRef:  newCustomerRef(),
	})
	if err != nil {
		e.logger.Error("execution error", "operation", OpReplace, "market_id", m.ID(), "orders", len(sent), "error", err)
		for _, o := range sent {
			o.Executable()
		}
		return err
	}

	for i, report := range resp.InstructionReports {
		if i >= len(sent) {
			break
		}
		o := sent[i]
		cancelReport := report.CancelInstructionReport
		placeReport := report.PlaceInstructionReport

		// Build the replacement before the original's requests are cleared.
		var replacement *order.LimitOrder
		if placeReport.Status == api.StatusSuccess {
			replacement = o.Replacement(placeReport.BetID)
		}

		e.logReport(OpCancel, o, cancelReport.Status, cancelReport.ErrorCode)
		if cancelReport.Status == api.StatusSuccess {
			o.ExecutionComplete()
		} else {
			o.Executable()
		}

		if replacement != nil {
			e.logReport(OpReplace, replacement, placeReport.Status, placeReport.ErrorCode)
			m.RecordOrder(replacement)
		}
	}
	return nil
}

func (e *Executor) logReport(op string, o *order.LimitOrder, status, errorCode string) {
	e.metrics.InstructionReported(op, status)
	e.logger.Info("order "+op+": "+status,
		"market_id", o.MarketID(),
		"order_id", o.ID(),
		"bet_id", o.BetID(),
		"status", status,
		"error_code", errorCode,
	)
}

// limitOrders keeps the orders this executor can transmit.
func limitOrders(logger *slog.Logger, orders []order.Order) []*order.LimitOrder {
	out := make([]*order.LimitOrder, 0, len(orders))
	for _, o := range orders {
		lo, ok := o.(*order.LimitOrder)
		if !ok {
			logger.Warn("unsupported order type", "order_id", o.ID())
			continue
		}
		out = append(out, lo)
	}
	return out
}

// compactID strips dashes from a uuid so it fits the 32 character
// reference fields.
func compactID(id string) string {
	return strings.ReplaceAll(id, "-", "")
}

func newCustomerRef() string {
	return compactID(uuid.NewString())
}

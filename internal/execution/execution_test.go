package execution

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rickgao/exchange-trader/internal/api"
	"github.com/rickgao/exchange-trader/internal/blotter"
	"github.com/rickgao/exchange-trader/internal/events"
	"github.com/rickgao/exchange-trader/internal/market"
	"github.com/rickgao/exchange-trader/internal/order"
	"github.com/rickgao/exchange-trader/internal/worker"
)

var errTransport = errors.New("connection reset")

type fakeVenue struct {
	mu sync.Mutex

	place   func(api.PlaceOrdersRequest) (*api.PlaceExecutionReport, error)
	cancel  func(api.CancelOrdersRequest) (*api.CancelExecutionReport, error)
	update  func(api.UpdateOrdersRequest) (*api.UpdateExecutionReport, error)
	replace func(api.ReplaceOrdersRequest) (*api.ReplaceExecutionReport, error)

	placeReqs   []api.PlaceOrdersRequest
	cancelReqs  []api.CancelOrdersRequest
	updateReqs  []api.UpdateOrdersRequest
	replaceReqs []api.ReplaceOrdersRequest
}

func (v *fakeVenue) PlaceOrders(_ context.Context, req api.PlaceOrdersRequest) (*api.PlaceExecutionReport, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.placeReqs = append(v.placeReqs, req)
	return v.place(req)
}

func (v *fakeVenue) CancelOrders(_ context.Context, req api.CancelOrdersRequest) (*api.CancelExecutionReport, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.cancelReqs = append(v.cancelReqs, req)
	return v.cancel(req)
}

func (v *fakeVenue) UpdateOrders(_ context.Context, req api.UpdateOrdersRequest) (*api.UpdateExecutionReport, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.updateReqs = append(v.updateReqs, req)
	return v.update(req)
}

func (v *fakeVenue) ReplaceOrders(_ context.Context, req api.ReplaceOrdersRequest) (*api.ReplaceExecutionReport, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.replaceReqs = append(v.replaceReqs, req)
	return v.replace(req)
}

// placeAll answers every place instruction with status.
func placeAll(status string) func(api.PlaceOrdersRequest) (*api.PlaceExecutionReport, error) {
	return func(req api.PlaceOrdersRequest) (*api.PlaceExecutionReport, error) {
		rep := &api.PlaceExecutionReport{MarketID: req.MarketID, Status: status}
		for i, ins := range req.Instructions {
			r := api.PlaceInstructionReport{Status: status, Instruction: ins}
			switch status {
			case api.StatusSuccess:
				r.BetID = "bet-" + string(rune('a'+i))
				r.OrderStatus = "EXECUTABLE"
			case api.StatusFailure:
				r.ErrorCode = "INVALID_BET_SIZE"
			}
			rep.InstructionReports = append(rep.InstructionReports, r)
		}
		return rep, nil
	}
}

func newOrder(marketID, price, size string) *order.LimitOrder {
	return order.NewLimitOrder(order.LimitParams{
		MarketID:    marketID,
		SelectionID: 47972,
		Side:        order.SideBack,
		Price:       decimal.RequireFromString(price),
		Size:        decimal.RequireFromString(size),
	})
}

// executableOrder places o through m and acknowledges it with betID.
func executableOrder(t *testing.T, m *market.Market, price, size, betID string) *order.LimitOrder {
	t.Helper()
	o := newOrder(m.ID(), price, size)
	require.NoError(t, m.PlaceOrder(o))
	m.DrainPending()
	o.Placed(betID, decimal.Zero)
	o.Executable()
	return o
}

func newExecutor(v Venue) *Executor {
	return New(DefaultConfig("host-1"), v, nil, nil)
}

func TestProcess_NothingPending(t *testing.T) {
	v := &fakeVenue{}
	e := newExecutor(v)

	require.NoError(t, e.Process(context.Background(), market.New("1.1", nil)))
	assert.Empty(t, v.placeReqs)
	assert.Empty(t, v.cancelReqs)
}

func TestPlace_Success(t *testing.T) {
	v := &fakeVenue{place: placeAll(api.StatusSuccess)}
	e := newExecutor(v)
	m := market.New("1.1", nil)

	o1 := newOrder("1.1", "2.5", "10")
	o2 := newOrder("1.1", "3.05", "4.5")
	require.NoError(t, m.PlaceOrder(o1))
	require.NoError(t, m.PlaceOrder(o2))

	require.NoError(t, e.Process(context.Background(), m))

	require.Len(t, v.placeReqs, 1)
	req := v.placeReqs[0]
	assert.Equal(t, "1.1", req.MarketID)
	assert.Equal(t, "host-1", req.CustomerStrategyRef)
	assert.Len(t, req.CustomerRef, 32)
	require.Len(t, req.Instructions, 2)
	assert.Equal(t, "LIMIT", req.Instructions[0].OrderType)
	assert.Equal(t, int64(47972), req.Instructions[0].SelectionID)
	assert.Equal(t, "BACK", req.Instructions[0].Side)
	assert.Equal(t, 2.5, req.Instructions[0].LimitOrder.Price)
	assert.Equal(t, 10.0, req.Instructions[0].LimitOrder.Size)
	assert.Equal(t, "LAPSE", req.Instructions[0].LimitOrder.PersistenceType)
	assert.Len(t, req.Instructions[0].CustomerOrderRef, 32)

	assert.Equal(t, order.StatusExecutable, o1.Status())
	assert.Equal(t, "bet-a", o1.BetID())
	assert.Equal(t, order.StatusExecutable, o2.Status())
	assert.Equal(t, "bet-b", o2.BetID())
	assert.Equal(t, 0, m.PendingLen(blotter.KindPlace))
}

func TestPlace_FullyMatched(t *testing.T) {
	v := &fakeVenue{place: func(req api.PlaceOrdersRequest) (*api.PlaceExecutionReport, error) {
		return &api.PlaceExecutionReport{
			Status: api.StatusSuccess,
			InstructionReports: []api.PlaceInstructionReport{{
				Status:      api.StatusSuccess,
				BetID:       "b1",
				OrderStatus: "EXECUTION_COMPLETE",
				SizeMatched: 2,
			}},
		}, nil
	}}
	m := market.New("1.1", nil)
	o := newOrder("1.1", "1.5", "2")
	require.NoError(t, m.PlaceOrder(o))

	require.NoError(t, newExecutor(v).Process(context.Background(), m))

	assert.Equal(t, order.StatusExecutionComplete, o.Status())
	assert.True(t, o.SizeMatched().Equal(decimal.NewFromInt(2)))
}

func TestPlace_ReportStatuses(t *testing.T) {
	tests := []struct {
		status string
		want   order.Status
	}{
		{api.StatusSuccess, order.StatusExecutable},
		{api.StatusFailure, order.StatusLapsed},
		{api.StatusTimeout, order.StatusPlacing},
	}
	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			v := &fakeVenue{place: placeAll(tt.status)}
			m := market.New("1.1", nil)
			o := newOrder("1.1", "2", "5")
			require.NoError(t, m.PlaceOrder(o))

			require.NoError(t, newExecutor(v).Process(context.Background(), m))
			assert.Equal(t, tt.want, o.Status())
		})
	}
}

func TestPlace_LapsedReason(t *testing.T) {
	v := &fakeVenue{place: placeAll(api.StatusFailure)}
	m := market.New("1.1", nil)
	o := newOrder("1.1", "2", "5")
	require.NoError(t, m.PlaceOrder(o))

	require.NoError(t, newExecutor(v).Process(context.Background(), m))

	h := o.History()
	assert.Equal(t, "INVALID_BET_SIZE", h[len(h)-1].Reason)
}

func TestPlace_ControlViolationNotSent(t *testing.T) {
	v := &fakeVenue{place: placeAll(api.StatusSuccess)}
	m := market.New("1.1", nil)
	bad := newOrder("1.1", "2.03", "5")
	good := newOrder("1.1", "2.04", "5")
	require.NoError(t, m.PlaceOrder(bad))
	require.NoError(t, m.PlaceOrder(good))

	require.NoError(t, newExecutor(v).Process(context.Background(), m))

	assert.Equal(t, order.StatusViolation, bad.Status())
	assert.Empty(t, bad.BetID())
	assert.Equal(t, order.StatusExecutable, good.Status())
	require.Len(t, v.placeReqs, 1)
	assert.Len(t, v.placeReqs[0].Instructions, 1)
}

func TestPlace_AllViolationsNoRequest(t *testing.T) {
	v := &fakeVenue{place: placeAll(api.StatusSuccess)}
	m := market.New("1.1", nil)
	o := newOrder("1.1", "2", "0")
	require.NoError(t, m.PlaceOrder(o))

	require.NoError(t, newExecutor(v).Process(context.Background(), m))

	assert.Equal(t, order.StatusViolation, o.Status())
	assert.Empty(t, v.placeReqs)
}

func TestPlace_VenueErrorLapses(t *testing.T) {
	v := &fakeVenue{place: func(api.PlaceOrdersRequest) (*api.PlaceExecutionReport, error) {
		return nil, errTransport
	}}
	m := market.New("1.1", nil)
	o := newOrder("1.1", "2", "5")
	require.NoError(t, m.PlaceOrder(o))

	err := newExecutor(v).Process(context.Background(), m)
	require.ErrorIs(t, err, errTransport)
	assert.Equal(t, order.StatusLapsed, o.Status())
}

func TestCancel(t *testing.T) {
	tests := []struct {
		name          string
		status        string
		sizeCancelled float64
		want          order.Status
	}{
		{"full cancel", api.StatusSuccess, 10, order.StatusExecutionComplete},
		{"partial cancel", api.StatusSuccess, 4, order.StatusExecutable},
		{"failure", api.StatusFailure, 0, order.StatusExecutable},
		{"timeout", api.StatusTimeout, 0, order.StatusExecutable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := market.New("1.1", nil)
			o := executableOrder(t, m, "2", "10", "b1")
			require.NoError(t, m.CancelOrder(o, nil))

			v := &fakeVenue{cancel: func(req api.CancelOrdersRequest) (*api.CancelExecutionReport, error) {
				return &api.CancelExecutionReport{
					Status: tt.status,
					InstructionReports: []api.CancelInstructionReport{{
						Status:        tt.status,
						Instruction:   req.Instructions[0],
						SizeCancelled: tt.sizeCancelled,
					}},
				}, nil
			}}

			require.NoError(t, newExecutor(v).Process(context.Background(), m))
			assert.Equal(t, tt.want, o.Status())
		})
	}
}

func TestCancel_Reduction(t *testing.T) {
	m := market.New("1.1", nil)
	o := executableOrder(t, m, "2", "10", "b1")
	reduction := decimal.NewFromFloat(2.5)
	require.NoError(t, m.CancelOrder(o, &reduction))

	v := &fakeVenue{cancel: func(req api.CancelOrdersRequest) (*api.CancelExecutionReport, error) {
		return &api.CancelExecutionReport{Status: api.StatusSuccess}, nil
	}}
	require.NoError(t, newExecutor(v).Process(context.Background(), m))

	require.Len(t, v.cancelReqs, 1)
	ins := v.cancelReqs[0].Instructions[0]
	assert.Equal(t, "b1", ins.BetID)
	require.NotNil(t, ins.SizeReduction)
	assert.Equal(t, 2.5, *ins.SizeReduction)
	// Not reported back, so available again.
	assert.Equal(t, order.StatusExecutable, o.Status())
}

func TestCancel_ReportsMatchedByBetID(t *testing.T) {
	m := market.New("1.1", nil)
	o1 := executableOrder(t, m, "2", "10", "b1")
	o2 := executableOrder(t, m, "3", "5", "b2")
	require.NoError(t, m.CancelOrder(o1, nil))
	require.NoError(t, m.CancelOrder(o2, nil))

	v := &fakeVenue{cancel: func(req api.CancelOrdersRequest) (*api.CancelExecutionReport, error) {
		// Reversed order: b2 cancelled in full, b1 failed.
		return &api.CancelExecutionReport{
			Status: api.StatusSuccess,
			InstructionReports: []api.CancelInstructionReport{
				{Status: api.StatusSuccess, Instruction: api.CancelInstruction{BetID: "b2"}, SizeCancelled: 5},
				{Status: api.StatusFailure, Instruction: api.CancelInstruction{BetID: "b1"}},
			},
		}, nil
	}}
	require.NoError(t, newExecutor(v).Process(context.Background(), m))

	assert.Equal(t, order.StatusExecutable, o1.Status())
	assert.Equal(t, order.StatusExecutionComplete, o2.Status())
}

func TestCancel_VenueError(t *testing.T) {
	m := market.New("1.1", nil)
	o := executableOrder(t, m, "2", "10", "b1")
	require.NoError(t, m.CancelOrder(o, nil))

	v := &fakeVenue{cancel: func(api.CancelOrdersRequest) (*api.CancelExecutionReport, error) {
		return nil, errTransport
	}}
	err := newExecutor(v).Process(context.Background(), m)
	require.ErrorIs(t, err, errTransport)
	assert.Equal(t, order.StatusExecutable, o.Status())
}

func TestUpdate(t *testing.T) {
	tests := []struct {
		status string
		want   order.PersistenceType
	}{
		{api.StatusSuccess, order.PersistencePersist},
		{api.StatusFailure, order.PersistenceLapse},
	}
	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			m := market.New("1.1", nil)
			o := executableOrder(t, m, "2", "10", "b1")
			require.NoError(t, m.UpdateOrder(o, order.PersistencePersist))

			v := &fakeVenue{update: func(req api.UpdateOrdersRequest) (*api.UpdateExecutionReport, error) {
				return &api.UpdateExecutionReport{
					Status: tt.status,
					InstructionReports: []api.UpdateInstructionReport{{
						Status:      tt.status,
						Instruction: req.Instructions[0],
					}},
				}, nil
			}}
			require.NoError(t, newExecutor(v).Process(context.Background(), m))

			require.Len(t, v.updateReqs, 1)
			assert.Equal(t, "PERSIST", v.updateReqs[0].Instructions[0].NewPersistenceType)
			assert.Equal(t, order.StatusExecutable, o.Status())
			assert.Equal(t, tt.want, o.Persistence())
		})
	}
}

func TestReplace_Success(t *testing.T) {
	m := market.New("1.1", nil)
	o := executableOrder(t, m, "2", "10", "b1")
	require.NoError(t, m.ReplaceOrder(o, decimal.RequireFromString("2.2")))

	v := &fakeVenue{replace: func(req api.ReplaceOrdersRequest) (*api.ReplaceExecutionReport, error) {
		return &api.ReplaceExecutionReport{
			Status: api.StatusSuccess,
			InstructionReports: []api.ReplaceInstructionReport{{
				Status:                  api.StatusSuccess,
				CancelInstructionReport: api.CancelInstructionReport{Status: api.StatusSuccess, SizeCancelled: 10},
				PlaceInstructionReport:  api.PlaceInstructionReport{Status: api.StatusSuccess, BetID: "b2"},
			}},
		}, nil
	}}
	require.NoError(t, newExecutor(v).Process(context.Background(), m))

	require.Len(t, v.replaceReqs, 1)
	assert.Equal(t, "b1", v.replaceReqs[0].Instructions[0].BetID)
	assert.Equal(t, 2.2, v.replaceReqs[0].Instructions[0].NewPrice)
	assert.Equal(t, order.StatusExecutionComplete, o.Status())

	var replacement *order.LimitOrder
	for _, ro := range liveOrders(m, o) {
		replacement = ro
	}
	require.NotNil(t, replacement)
	assert.Equal(t, "b2", replacement.BetID())
	assert.Equal(t, order.StatusExecutable, replacement.Status())
	assert.True(t, replacement.Price().Equal(decimal.RequireFromString("2.2")))
	assert.True(t, replacement.Size().Equal(decimal.NewFromInt(10)))
}

func TestReplace_CancelFailed(t *testing.T) {
	m := market.New("1.1", nil)
	o := executableOrder(t, m, "2", "10", "b1")
	require.NoError(t, m.ReplaceOrder(o, decimal.RequireFromString("2.2")))

	v := &fakeVenue{replace: func(api.ReplaceOrdersRequest) (*api.ReplaceExecutionReport, error) {
		return &api.ReplaceExecutionReport{
			Status: api.StatusFailure,
			InstructionReports: []api.ReplaceInstructionReport{{
				Status:                  api.StatusFailure,
				CancelInstructionReport: api.CancelInstructionReport{Status: api.StatusFailure, ErrorCode: "BET_TAKEN_OR_LAPSED"},
				PlaceInstructionReport:  api.PlaceInstructionReport{Status: api.StatusFailure},
			}},
		}, nil
	}}
	require.NoError(t, newExecutor(v).Process(context.Background(), m))

	assert.Equal(t, order.StatusExecutable, o.Status())
	assert.True(t, o.Price().Equal(decimal.NewFromInt(2)))
	assert.Empty(t, liveOrders(m, o))
}

func TestProcess_AllKindsOnePackageEach(t *testing.T) {
	m := market.New("1.1", nil)
	toCancel := executableOrder(t, m, "2", "10", "b1")
	toUpdate := executableOrder(t, m, "2", "10", "b2")
	require.NoError(t, m.CancelOrder(toCancel, nil))
	require.NoError(t, m.UpdateOrder(toUpdate, order.PersistencePersist))
	require.NoError(t, m.PlaceOrder(newOrder("1.1", "4", "2")))
	require.NoError(t, m.PlaceOrder(newOrder("1.1", "5", "2")))

	v := &fakeVenue{
		place: placeAll(api.StatusSuccess),
		cancel: func(api.CancelOrdersRequest) (*api.CancelExecutionReport, error) {
			return &api.CancelExecutionReport{Status: api.StatusSuccess}, nil
		},
		update: func(api.UpdateOrdersRequest) (*api.UpdateExecutionReport, error) {
			return &api.UpdateExecutionReport{Status: api.StatusSuccess}, nil
		},
	}
	require.NoError(t, newExecutor(v).Process(context.Background(), m))

	assert.Len(t, v.placeReqs, 1)
	assert.Len(t, v.cancelReqs, 1)
	assert.Len(t, v.updateReqs, 1)
	assert.Empty(t, v.replaceReqs)
	assert.NotEqual(t, v.placeReqs[0].CustomerRef, v.cancelReqs[0].CustomerRef)
}

func TestTask_RunsEveryMarket(t *testing.T) {
	reg := market.NewRegistry()
	m1 := market.New("1.1", nil)
	m2 := market.New("1.2", nil)
	reg.AddMarket("1.1", m1)
	reg.AddMarket("1.2", m2)
	require.NoError(t, m1.PlaceOrder(newOrder("1.1", "2", "5")))
	require.NoError(t, m2.PlaceOrder(newOrder("1.2", "2", "5")))

	v := &fakeVenue{place: placeAll(api.StatusSuccess)}
	task := Task(newExecutor(v))

	err := task(context.Background(), worker.NewState(), &fakeHost{markets: reg}, worker.Params{})
	require.NoError(t, err)

	require.Len(t, v.placeReqs, 2)
	assert.Equal(t, "1.1", v.placeReqs[0].MarketID)
	assert.Equal(t, "1.2", v.placeReqs[1].MarketID)
}

func TestTask_JoinsErrors(t *testing.T) {
	reg := market.NewRegistry()
	m := market.New("1.1", nil)
	reg.AddMarket("1.1", m)
	require.NoError(t, m.PlaceOrder(newOrder("1.1", "2", "5")))

	v := &fakeVenue{place: func(api.PlaceOrdersRequest) (*api.PlaceExecutionReport, error) {
		return nil, errTransport
	}}
	err := Task(newExecutor(v))(context.Background(), worker.NewState(), &fakeHost{markets: reg}, worker.Params{})
	assert.ErrorIs(t, err, errTransport)
}

// liveOrders returns the live limit orders in m other than skip.
func liveOrders(m *market.Market, skip *order.LimitOrder) []*order.LimitOrder {
	var out []*order.LimitOrder
	for _, o := range m.Orders() {
		if o.ID() == skip.ID() || !o.Live() {
			continue
		}
		if lo, ok := o.(*order.LimitOrder); ok {
			out = append(out, lo)
		}
	}
	return out
}

type fakeHost struct {
	markets *market.Registry
}

func (h *fakeHost) Client() worker.Venue            { return nil }
func (h *fakeHost) Markets() *market.Registry       { return h.markets }
func (h *fakeHost) HandlerQueue() worker.EventQueue { return nil }
func (h *fakeHost) LogControl(events.Event)         {}
func (h *fakeHost) Identifier() string              { return "host-1" }

package trader

import (
	"time"

	"github.com/rickgao/exchange-trader/internal/execution"
	"github.com/rickgao/exchange-trader/internal/worker"
)

// Worker names.
const (
	WorkerKeepAlive       = "keep_alive"
	WorkerMarketCatalogue = "poll_market_catalogue"
	WorkerAccountBalance  = "poll_account_balance"
	WorkerClearedOrders   = "poll_cleared_orders"
	WorkerProcessOrders   = "process_orders"
)

// Timing schedules one worker.
type Timing struct {
	Disabled   bool
	Interval   time.Duration
	StartDelay time.Duration
}

// Schedule holds the timing of every default worker.
type Schedule struct {
	KeepAlive       Timing
	MarketCatalogue Timing
	AccountBalance  Timing
	ClearedOrders   Timing
	ProcessOrders   Timing
}

// DefaultSchedule returns the standard worker timings.
func DefaultSchedule() Schedule {
	return Schedule{
		KeepAlive:       Timing{Interval: 1200 * time.Second},
		MarketCatalogue: Timing{Interval: 60 * time.Second, StartDelay: 10 * time.Second},
		AccountBalance:  Timing{Interval: 120 * time.Second, StartDelay: 10 * time.Second},
		ClearedOrders:   Timing{Interval: 60 * time.Second, StartDelay: 10 * time.Second},
		ProcessOrders:   Timing{Interval: 500 * time.Millisecond},
	}
}

type workerDef struct {
	name   string
	timing Timing
	fn     worker.Func
}

// AddDefaultWorkers registers the session, polling and execution workers.
// A nil executor skips process_orders.
func (t *Trader) AddDefaultWorkers(s Schedule, exec *execution.Executor) error {
	tasks := worker.NewTasks(t.logger)

	defs := []workerDef{
		{WorkerKeepAlive, s.KeepAlive, tasks.KeepAlive},
		{WorkerMarketCatalogue, s.MarketCatalogue, tasks.PollMarketCatalogue},
		{WorkerAccountBalance, s.AccountBalance, tasks.PollAccountBalance},
		{WorkerClearedOrders, s.ClearedOrders, tasks.PollClearedOrders},
	}
	if exec != nil {
		defs = append(defs, workerDef{WorkerProcessOrders, s.ProcessOrders, execution.Task(exec)})
	}

	for _, d := range defs {
		if d.timing.Disabled {
			t.logger.Info("worker disabled", "worker", d.name)
			continue
		}
		if _, err := t.AddWorker(worker.Config{
			Name:       d.name,
			Interval:   d.timing.Interval,
			StartDelay: d.timing.StartDelay,
			Func:       d.fn,
		}); err != nil {
			return err
		}
	}
	return nil
}

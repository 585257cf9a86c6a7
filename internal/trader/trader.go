package trader

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rickgao/exchange-trader/internal/api"
	"github.com/rickgao/exchange-trader/internal/controllog"
	"github.com/rickgao/exchange-trader/internal/events"
	"github.com/rickgao/exchange-trader/internal/execution"
	"github.com/rickgao/exchange-trader/internal/market"
	"github.com/rickgao/exchange-trader/internal/metrics"
	"github.com/rickgao/exchange-trader/internal/model"
	"github.com/rickgao/exchange-trader/internal/worker"
)

// Venue is everything the trader needs from the exchange client.
type Venue interface {
	worker.Venue
	execution.Venue
}

var _ Venue = (*api.Client)(nil)

// Runner is a long-lived component run alongside the workers, such as the
// market stream.
type Runner interface {
	Run(ctx context.Context) error
}

// Config holds trader configuration.
type Config struct {
	Identifier    string
	QueueCapacity int
	StopTimeout   time.Duration // Per-worker wait on shutdown
}

// Trader is the host every worker runs against.
type Trader struct {
	cfg     Config
	venue   Venue
	markets *market.Registry
	queue   *events.Queue
	handler *meteredQueue
	sink    controllog.Sink
	logger  *slog.Logger
	metrics *metrics.Metrics

	mu      sync.Mutex
	workers []*worker.BackgroundWorker
	runners []Runner
	running bool
}

// New creates a Trader. A nil sink discards control log entries.
func New(cfg Config, venue Venue, sink controllog.Sink, logger *slog.Logger, m *metrics.Metrics) *Trader {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.StopTimeout <= 0 {
		cfg.StopTimeout = 10 * time.Second
	}
	q := events.NewQueue(cfg.QueueCapacity)
	return &Trader{
		cfg:     cfg,
		venue:   venue,
		markets: market.NewRegistry(),
		queue:   q,
		handler: &meteredQueue{q: q, metrics: m},
		sink:    sink,
		logger:  logger,
		metrics: m,
	}
}

// Client implements worker.Host.
func (t *Trader) Client() worker.Venue { return t.venue }

// Markets implements worker.Host.
func (t *Trader) Markets() *market.Registry { return t.markets }

// HandlerQueue implements worker.Host.
func (t *Trader) HandlerQueue() worker.EventQueue { return t.handler }

// Identifier implements worker.Host.
func (t *Trader) Identifier() string { return t.cfg.Identifier }

// LogControl implements worker.Host.
func (t *Trader) LogControl(e events.Event) {
	if t.sink == nil {
		return
	}
	t.sink.Log(e)
}

// Queue returns the handler queue.
func (t *Trader) Queue() *events.Queue { return t.queue }

// AddWorker registers a worker. Workers start when Run is called.
func (t *Trader) AddWorker(cfg worker.Config) (*worker.BackgroundWorker, error) {
	w, err := worker.New(cfg, t, t.logger, t.metrics)
	if err != nil {
		return nil, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.running {
		return nil, errors.New("trader already running")
	}
	t.workers = append(t.workers, w)
	return w, nil
}

// AddRunner registers a component run for the lifetime of Run.
func (t *Trader) AddRunner(r Runner) {
	t.mu.Lock()
	t.runners = append(t.runners, r)
	t.mu.Unlock()
}

// Workers returns the registered workers.
func (t *Trader) Workers() []*worker.BackgroundWorker {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]*worker.BackgroundWorker, len(t.workers))
	copy(out, t.workers)
	return out
}

// Run starts every worker and runner and consumes the handler queue until
// ctx is done or a runner fails.
func (t *Trader) Run(ctx context.Context) error {
	t.mu.Lock()
	if t.running {
		t.mu.Unlock()
		return errors.New("trader already running")
	}
	t.running = true
	workers := append([]*worker.BackgroundWorker(nil), t.workers...)
	runners := append([]Runner(nil), t.runners...)
	t.mu.Unlock()

	g, gctx := errgroup.WithContext(ctx)

	for _, w := range workers {
		if err := w.Start(gctx); err != nil {
			t.stopWorkers(workers)
			return err
		}
	}

	g.Go(func() error {
		return t.consume(gctx)
	})

	for _, r := range runners {
		g.Go(func() error {
			return r.Run(gctx)
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		t.stopWorkers(workers)
		return nil
	})

	t.logger.Info("trader running",
		"identifier", t.cfg.Identifier,
		"workers", len(workers),
		"runners", len(runners),
	)

	err := g.Wait()
	t.queue.Close()
	t.logger.Info("trader stopped", "pending_events", t.queue.Len())
	return err
}

func (t *Trader) stopWorkers(workers []*worker.BackgroundWorker) {
	for _, w := range workers {
		ctx, cancel := context.WithTimeout(context.Background(), t.cfg.StopTimeout)
		if err := w.Stop(ctx); err != nil {
			t.logger.Warn("worker stop timed out", "worker", w.Name(), "error", err)
		}
		cancel()
	}
}

// consume drains the handler queue in order.
func (t *Trader) consume(ctx context.Context) error {
	for {
		e, err := t.queue.Get(ctx)
		if err != nil {
			if errors.Is(err, events.ErrQueueClosed) || ctx.Err() != nil {
				return nil
			}
			return err
		}
		t.metrics.SetQueueDepth(t.queue.Len())
		t.Handle(e)
	}
}

// Handle applies one handler queue event to the trader state.
func (t *Trader) Handle(e events.Event) {
	switch ev := e.(type) {
	case events.MarketBookEvent:
		t.handleMarketBook(ev.Book)

	case events.MarketCatalogueEvent:
		for i := range ev.Catalogues {
			cat := ev.Catalogues[i]
			if m, ok := t.markets.Get(cat.MarketID); ok {
				m.SetCatalogue(&cat)
			}
		}
		t.logger.Debug("market catalogues applied", "count", len(ev.Catalogues))

	case events.BalanceEvent:
		t.logger.Debug("account balance",
			"available_to_bet", ev.Funds.AvailableToBet.String(),
			"exposure", ev.Funds.Exposure.String(),
		)

	case events.ClearedOrdersEvent:
		t.logger.Info("cleared orders", "market_id", ev.MarketID, "orders", len(ev.Orders))

	case events.ClearedMarketsEvent:
		t.logger.Info("cleared market", "market_id", ev.MarketID, "orders", len(ev.Orders))

	default:
		t.logger.Warn("unhandled event", "kind", string(e.Kind()))
	}
}

func (t *Trader) handleMarketBook(book *model.MarketBook) {
	if book == nil {
		return
	}

	closed := book.Status() == model.MarketStatusClosed

	m, ok := t.markets.Get(book.MarketID)
	switch {
	case !ok:
		t.markets.AddMarket(book.MarketID, market.New(book.MarketID, book))
		t.logger.Info("market added", "market_id", book.MarketID)
	case m.Closed() && !closed:
		// Re-announced market: reopen in place, keeping its blotter.
		t.markets.AddMarket(book.MarketID, market.New(book.MarketID, book))
		m.UpdateSnapshot(book)
		t.logger.Info("market reopened", "market_id", book.MarketID)
	default:
		m.UpdateSnapshot(book)
	}

	if closed {
		t.markets.CloseMarket(book.MarketID)
		t.logger.Info("market closed", "market_id", book.MarketID)
	}
}

// meteredQueue counts every event put on the handler queue.
type meteredQueue struct {
	q       *events.Queue
	metrics *metrics.Metrics
}

func (m *meteredQueue) Put(e events.Event) bool {
	if !m.q.Put(e) {
		return false
	}
	m.metrics.EventPublished(string(e.Kind()), m.q.Len())
	return true
}

package worker

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/rickgao/exchange-trader/internal/api"
	"github.com/rickgao/exchange-trader/internal/events"
	"github.com/rickgao/exchange-trader/internal/model"
)

// ErrNoIdentifier is returned when the host has no identifier to filter
// cleared orders by.
var ErrNoIdentifier = errors.New("host identifier is empty")

// CatalogueProjection is requested on every catalogue poll.
var CatalogueProjection = []string{
	api.ProjectionCompetition,
	api.ProjectionEvent,
	api.ProjectionEventType,
	api.ProjectionRunnerDescription,
	api.ProjectionRunnerMetadata,
	api.ProjectionMarketStartTime,
	api.ProjectionMarketDescription,
}

// CatalogueMaxResults caps one catalogue poll. Larger registries are not
// paginated.
const CatalogueMaxResults = 100

// Outcome is the result of a settlement polling step.
type Outcome int

const (
	OutcomeSuccess    Outcome = iota
	OutcomeNotReady           // Settlement not yet available
	OutcomeVenueError         // Exchange call failed; retry next cycle
)

// OK reports whether the step succeeded.
func (o Outcome) OK() bool { return o == OutcomeSuccess }

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeNotReady:
		return "not_ready"
	case OutcomeVenueError:
		return "venue_error"
	}
	return "unknown"
}

// clearedProgress tracks which settlement steps succeeded for one market.
type clearedProgress struct {
	Market bool
	Orders bool
}

func (p *clearedProgress) done() bool { return p.Market && p.Orders }

var clearedProgressKey = NewKey[map[string]*clearedProgress]("cleared_progress")

// Tasks holds the scheduled jobs. Each method is a Func.
type Tasks struct {
	logger *slog.Logger
}

// NewTasks creates the task set.
func NewTasks(logger *slog.Logger) *Tasks {
	if logger == nil {
		logger = slog.Default()
	}
	return &Tasks{logger: logger}
}

// KeepAlive logs in when there is no session and extends an expired one,
// falling back to a fresh login if the keep-alive fails.
func (t *Tasks) KeepAlive(ctx context.Context, _ *State, host Host, _ Params) error {
	client := host.Client()

	if client.SessionToken() == "" {
		t.logger.Info("no session token, logging in")
		t.login(ctx, client)
		return nil
	}

	if !client.SessionExpired() {
		return nil
	}

	resp, err := client.KeepAlive(ctx)
	switch {
	case err != nil:
		t.logger.Warn("keep alive failed, logging in", "error", err)
		t.login(ctx, client)
	case resp == nil || resp.Status != api.StatusSuccess:
		status := ""
		if resp != nil {
			status = resp.Status
		}
		t.logger.Warn("keep alive rejected, logging in", "status", status)
		t.login(ctx, client)
	default:
		t.logger.Debug("session kept alive")
	}

	return nil
}

func (t *Tasks) login(ctx context.Context, client Venue) {
	if err := client.Login(ctx); err != nil {
		t.logger.Error("login failed", "error", err)
	}
}

// PollMarketCatalogue fetches catalogue data for every registered market
// and publishes it on the handler queue.
func (t *Tasks) PollMarketCatalogue(ctx context.Context, _ *State, host Host, _ Params) error {
	ids := host.Markets().MarketIDs()
	if len(ids) == 0 {
		t.logger.Debug("no markets to poll catalogue for")
		return nil
	}

	catalogues, err := host.Client().ListMarketCatalogue(ctx,
		api.MarketFilter{MarketIDs: ids},
		CatalogueProjection,
		CatalogueMaxResults,
	)
	if err != nil {
		t.logger.Warn("market catalogue poll failed", "markets", len(ids), "error", err)
		return nil
	}

	host.HandlerQueue().Put(events.MarketCatalogueEvent{
		Catalogues: catalogues,
		ReceivedAt: time.Now().UTC(),
	})

	t.logger.Debug("market catalogue polled", "markets", len(ids), "catalogues", len(catalogues))
	return nil
}

// PollAccountBalance refreshes account funds and writes them to the
// control log.
func (t *Tasks) PollAccountBalance(ctx context.Context, _ *State, host Host, _ Params) error {
	client := host.Client()

	if err := client.UpdateAccountDetails(ctx); err != nil {
		t.logger.Warn("account balance poll failed", "error", err)
		return nil
	}

	host.LogControl(events.BalanceEvent{Funds: client.AccountFunds()})
	return nil
}

// PollClearedOrders fetches settlement for closed markets. Progress is kept
// per market so a succeeded step is never repeated and each market's
// events are published once. Progress for markets no longer in the
// registry is dropped.
func (t *Tasks) PollClearedOrders(ctx context.Context, state *State, host Host, _ Params) error {
	if host.Identifier() == "" {
		return ErrNoIdentifier
	}

	progress := GetOrInit(state, clearedProgressKey, func() map[string]*clearedProgress {
		return make(map[string]*clearedProgress)
	})
	for id := range progress {
		if _, ok := host.Markets().Get(id); !ok {
			delete(progress, id)
		}
	}

	for m := range host.Markets().All() {
		if !m.Closed() {
			continue
		}
		if ctx.Err() != nil {
			return nil
		}

		p, ok := progress[m.ID()]
		if !ok {
			p = &clearedProgress{}
			progress[m.ID()] = p
		}
		if p.done() {
			continue
		}

		if !p.Market {
			outcome := t.getClearedMarket(ctx, host, m.ID())
			p.Market = outcome.OK()
			if !p.Market {
				t.logger.Debug("cleared market not ready", "market_id", m.ID(), "outcome", outcome)
			}
		}
		if p.Market && !p.Orders {
			outcome := t.getClearedOrders(ctx, host, m.ID())
			p.Orders = outcome.OK()
		}

		if p.done() {
			t.logger.Info("market settlement complete", "market_id", m.ID())
		}
	}

	return nil
}

// getClearedOrders pages through every settled order of one market.
func (t *Tasks) getClearedOrders(ctx context.Context, host Host, marketID string) Outcome {
	req := api.ClearedOrdersRequest{
		BetStatus:            api.BetStatusSettled,
		MarketIDs:            []string{marketID},
		CustomerStrategyRefs: []string{host.Identifier()},
	}

	var orders []model.ClearedOrder
	for {
		page, err := host.Client().ListClearedOrders(ctx, req)
		if err != nil {
			t.logger.Warn("cleared orders poll failed",
				"market_id", marketID,
				"from_record", req.FromRecord,
				"error", err,
			)
			return OutcomeVenueError
		}

		orders = append(orders, page.Orders...)
		req.FromRecord += len(page.Orders)

		if !page.MoreAvailable || len(page.Orders) == 0 {
			break
		}
	}

	ev := events.ClearedOrdersEvent{MarketID: marketID, Orders: orders}
	host.HandlerQueue().Put(ev)
	host.LogControl(ev)

	t.logger.Info("cleared orders", "market_id", marketID, "orders", len(orders))
	return OutcomeSuccess
}

// getClearedMarket fetches the market-level settlement summary.
func (t *Tasks) getClearedMarket(ctx context.Context, host Host, marketID string) Outcome {
	page, err := host.Client().ListClearedOrders(ctx, api.ClearedOrdersRequest{
		BetStatus:            api.BetStatusSettled,
		MarketIDs:            []string{marketID},
		CustomerStrategyRefs: []string{host.Identifier()},
		GroupBy:              api.GroupByMarket,
	})
	if err != nil {
		t.logger.Warn("cleared market poll failed", "market_id", marketID, "error", err)
		return OutcomeVenueError
	}

	if len(page.Orders) == 0 {
		return OutcomeNotReady
	}

	ev := events.ClearedMarketsEvent{MarketID: marketID, Orders: page.Orders}
	host.HandlerQueue().Put(ev)
	host.LogControl(ev)

	t.logger.Info("cleared market", "market_id", marketID)
	return OutcomeSuccess
}

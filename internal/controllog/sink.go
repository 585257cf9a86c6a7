package controllog

import (
	"log/slog"

	"github.com/rickgao/exchange-trader/internal/events"
)

// Sink accepts control log entries. Log must not block the caller.
type Sink interface {
	Log(e events.Event)
}

// LogSink writes entries to a slog.Logger.
type LogSink struct {
	logger *slog.Logger
}

// NewLogSink creates a LogSink.
func NewLogSink(logger *slog.Logger) *LogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSink{logger: logger}
}

// Log implements Sink.
func (s *LogSink) Log(e events.Event) {
	s.logger.Info("control log", summarize(e)...)
}

// summarize returns the attributes logged for an event.
func summarize(e events.Event) []any {
	attrs := []any{"kind", string(e.Kind())}
	switch ev := e.(type) {
	case events.MarketCatalogueEvent:
		attrs = append(attrs, "markets", len(ev.Catalogues))
	case events.BalanceEvent:
		attrs = append(attrs,
			"available_to_bet", ev.Funds.AvailableToBet.String(),
			"exposure", ev.Funds.Exposure.String(),
		)
	case events.ClearedOrdersEvent:
		attrs = append(attrs, "market_id", ev.MarketID, "orders", len(ev.Orders))
	case events.ClearedMarketsEvent:
		attrs = append(attrs, "market_id", ev.MarketID, "orders", len(ev.Orders))
	case events.MarketBookEvent:
		if ev.Book != nil {
			attrs = append(attrs, "market_id", ev.Book.MarketID, "status", ev.Book.Status())
		}
	}
	return attrs
}

// marketID returns the market an event belongs to, or "".
func marketID(e events.Event) string {
	switch ev := e.(type) {
	case events.ClearedOrdersEvent:
		return ev.MarketID
	case events.ClearedMarketsEvent:
		return ev.MarketID
	case events.MarketBookEvent:
		if ev.Book != nil {
			return ev.Book.MarketID
		}
	}
	return ""
}

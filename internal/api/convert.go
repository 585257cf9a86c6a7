package api

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rickgao/exchange-trader/internal/model"
)

// ParseTimestamp parses an ISO 8601 timestamp as returned by the exchange.
// Returns the zero time for empty or invalid input.
func ParseTimestamp(iso string) time.Time {
	iso = strings.TrimSpace(iso)
	if iso == "" {
		return time.Time{}
	}

	t, err := time.Parse(time.RFC3339Nano, iso)
	if err != nil {
		// Try without timezone
		t, err = time.Parse("2006-01-02T15:04:05", iso)
		if err != nil {
			return time.Time{}
		}
	}

	return t.UTC()
}

// ToDecimal converts a wire float to a decimal, rounded to the exchange's
// two-decimal money precision when money is true.
func ToDecimal(f float64, money bool) decimal.Decimal {
	d := decimal.NewFromFloat(f)
	if money {
		return d.Round(2)
	}
	return d
}

// ToModel converts an APIMarketCatalogue to model.MarketCatalogue.
func (m *APIMarketCatalogue) ToModel() model.MarketCatalogue {
	c := model.MarketCatalogue{
		MarketID:        m.MarketID,
		MarketName:      m.MarketName,
		MarketStartTime: ParseTimestamp(m.MarketStartTime),
		TotalMatched:    ToDecimal(m.TotalMatched, true),
	}

	if m.EventType != nil {
		c.EventTypeID = m.EventType.ID
		c.EventTypeName = m.EventType.Name
	}
	if m.Competition != nil {
		c.CompetitionID = m.Competition.ID
		c.CompetitionName = m.Competition.Name
	}
	if m.Event != nil {
		c.EventID = m.Event.ID
		c.EventName = m.Event.Name
		c.CountryCode = m.Event.CountryCode
		c.Venue = m.Event.Venue
	}
	if m.Description != nil {
		c.MarketType = m.Description.MarketType
		c.BettingType = m.Description.BettingType
	}

	c.Runners = make([]model.RunnerCatalogue, 0, len(m.Runners))
	for _, r := range m.Runners {
		c.Runners = append(c.Runners, model.RunnerCatalogue{
			SelectionID:  r.SelectionID,
			RunnerName:   r.RunnerName,
			Handicap:     ToDecimal(r.Handicap, false),
			SortPriority: r.SortPriority,
			Metadata:     r.Metadata,
		})
	}

	return c
}

// ToModel converts an APIClearedOrder to model.ClearedOrder.
func (o *APIClearedOrder) ToModel() model.ClearedOrder {
	return model.ClearedOrder{
		MarketID:            o.MarketID,
		EventID:             o.EventID,
		EventTypeID:         o.EventTypeID,
		SelectionID:         o.SelectionID,
		Handicap:            ToDecimal(o.Handicap, false),
		BetID:               o.BetID,
		Side:                o.Side,
		BetOutcome:          o.BetOutcome,
		PriceRequested:      ToDecimal(o.PriceRequested, false),
		PriceMatched:        ToDecimal(o.PriceMatched, false),
		SizeSettled:         ToDecimal(o.SizeSettled, true),
		Profit:              ToDecimal(o.Profit, true),
		Commission:          ToDecimal(o.Commission, true),
		BetCount:            o.BetCount,
		CustomerOrderRef:    o.CustomerOrderRef,
		CustomerStrategyRef: o.CustomerStrategyRef,
		PlacedDate:          ParseTimestamp(o.PlacedDate),
		SettledDate:         ParseTimestamp(o.SettledDate),
	}
}

// ToModel converts an AccountFundsResponse to model.AccountFunds.
func (f *AccountFundsResponse) ToModel(updatedAt time.Time) model.AccountFunds {
	return model.AccountFunds{
		AvailableToBet:     ToDecimal(f.AvailableToBetBalance, true),
		Exposure:           ToDecimal(f.Exposure, true),
		RetainedCommission: ToDecimal(f.RetainedCommission, true),
		ExposureLimit:      ToDecimal(f.ExposureLimit, true),
		DiscountRate:       ToDecimal(f.DiscountRate, false),
		PointsBalance:      f.PointsBalance,
		Wallet:             f.Wallet,
		UpdatedAt:          updatedAt.UTC(),
	}
}

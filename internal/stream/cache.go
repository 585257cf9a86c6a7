package stream

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rickgao/exchange-trader/internal/api"
	"github.com/rickgao/exchange-trader/internal/model"
)

// marketCache folds market changes into the current state of one market.
// Only the client's read goroutine touches it.
type marketCache struct {
	id           string
	definition   *model.MarketDefinition
	totalMatched float64
	runners      map[runnerKey]*runnerCache
	order        []runnerKey // First-seen order
	publishTime  time.Time
}

type runnerKey struct {
	selectionID int64
	handicap    float64
}

type runnerCache struct {
	ltp          float64
	totalMatched float64
	back         map[float64]float64 // price -> size
	lay          map[float64]float64
}

func newMarketCache(id string) *marketCache {
	return &marketCache{
		id:      id,
		runners: make(map[runnerKey]*runnerCache),
	}
}

// apply merges mc into the cache.
func (c *marketCache) apply(mc MarketChange, publishTime time.Time) {
	if mc.Img {
		c.runners = make(map[runnerKey]*runnerCache)
		c.order = nil
		c.totalMatched = 0
	}
	c.publishTime = publishTime

	if mc.MarketDefinition != nil {
		c.definition = convertDefinition(mc.MarketDefinition)
	}
	if mc.Tv != nil {
		c.totalMatched = *mc.Tv
	}

	for _, rc := range mc.Rc {
		r := c.runner(runnerKey{selectionID: rc.ID, handicap: rc.Hc})
		if rc.Ltp != nil {
			r.ltp = *rc.Ltp
		}
		if rc.Tv != nil {
			r.totalMatched = *rc.Tv
		}
		applyLadder(r.back, rc.Atb)
		applyLadder(r.lay, rc.Atl)
	}
}

func (c *marketCache) runner(k runnerKey) *runnerCache {
	r, ok := c.runners[k]
	if !ok {
		r = &runnerCache{
			back: make(map[float64]float64),
			lay:  make(map[float64]float64),
		}
		c.runners[k] = r
		c.order = append(c.order, k)
	}
	return r
}

func applyLadder(ladder map[float64]float64, levels [][2]float64) {
	for _, l := range levels {
		price, size := l[0], l[1]
		if size == 0 {
			delete(ladder, price)
			continue
		}
		ladder[price] = size
	}
}

// snapshot builds a MarketBook from the cached state. Backs are sorted best
// (highest) first, lays best (lowest) first.
func (c *marketCache) snapshot(receivedAt time.Time) *model.MarketBook {
	book := &model.MarketBook{
		MarketID:     c.id,
		PublishTime:  c.publishTime,
		ReceivedAt:   receivedAt,
		TotalMatched: api.ToDecimal(c.totalMatched, true),
		Runners:      make([]model.RunnerBook, 0, len(c.order)),
	}
	if c.definition != nil {
		def := *c.definition
		def.Runners = append([]model.RunnerDefinition(nil), c.definition.Runners...)
		book.MarketDefinition = &def
	}

	for _, k := range c.order {
		r := c.runners[k]
		book.Runners = append(book.Runners, model.RunnerBook{
			SelectionID:     k.selectionID,
			Handicap:        decimal.NewFromFloat(k.handicap),
			LastPriceTraded: decimal.NewFromFloat(r.ltp),
			TotalMatched:    api.ToDecimal(r.totalMatched, true),
			AvailableToBack: ladderLevels(r.back, true),
			AvailableToLay:  ladderLevels(r.lay, false),
		})
	}
	return book
}

func ladderLevels(ladder map[float64]float64, descending bool) []model.PriceSize {
	prices := make([]float64, 0, len(ladder))
	for p := range ladder {
		prices = append(prices, p)
	}
	if descending {
		sort.Sort(sort.Reverse(sort.Float64Slice(prices)))
	} else {
		sort.Float64s(prices)
	}

	out := make([]model.PriceSize, 0, len(prices))
	for _, p := range prices {
		out = append(out, model.PriceSize{
			Price: decimal.NewFromFloat(p),
			Size:  api.ToDecimal(ladder[p], true),
		})
	}
	return out
}

func convertDefinition(d *MarketDefinition) *model.MarketDefinition {
	def := &model.MarketDefinition{
		Status:          d.Status,
		MarketTime:      api.ParseTimestamp(d.MarketTime),
		SuspendTime:     api.ParseTimestamp(d.SuspendTime),
		InPlay:          d.InPlay,
		BetDelay:        d.BetDelay,
		Version:         d.Version,
		NumberOfWinners: d.NumberOfWinners,
		MarketType:      d.MarketType,
		EventID:         d.EventID,
		EventTypeID:     d.EventTypeID,
		Runners:         make([]model.RunnerDefinition, 0, len(d.Runners)),
	}
	for _, r := range d.Runners {
		def.Runners = append(def.Runners, model.RunnerDefinition{
			SelectionID:  r.ID,
			Handicap:     decimal.NewFromFloat(r.Hc),
			Status:       r.Status,
			SortPriority: r.SortPriority,
		})
	}
	return def
}

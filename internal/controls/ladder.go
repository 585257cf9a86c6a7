package controls

import "github.com/shopspring/decimal"

// tick is one band of the exchange price ladder: prices in [from, to) move
// in steps of increment.
type tick struct {
	from, to, increment decimal.Decimal
}

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

var (
	MinPrice = d("1.01")
	MaxPrice = d("1000")

	ladder = []tick{
		{d("1.01"), d("2"), d("0.01")},
		{d("2"), d("3"), d("0.02")},
		{d("3"), d("4"), d("0.05")},
		{d("4"), d("6"), d("0.1")},
		{d("6"), d("10"), d("0.2")},
		{d("10"), d("20"), d("0.5")},
		{d("20"), d("30"), d("1")},
		{d("30"), d("50"), d("2")},
		{d("50"), d("100"), d("5")},
		{d("100"), d("1000"), d("10")},
	}
)

// ValidPrice reports whether p is a price the exchange accepts.
func ValidPrice(p decimal.Decimal) bool {
	if p.LessThan(MinPrice) || p.GreaterThan(MaxPrice) {
		return false
	}
	if p.Equal(MaxPrice) {
		return true
	}
	for _, t := range ladder {
		if p.GreaterThanOrEqual(t.from) && p.LessThan(t.to) {
			return p.Sub(t.from).Mod(t.increment).IsZero()
		}
	}
	return false
}

// Prices returns every ladder price in ascending order.
func Prices() []decimal.Decimal {
	out := make([]decimal.Decimal, 0, 350)
	for _, t := range ladder {
		for p := t.from; p.LessThan(t.to); p = p.Add(t.increment) {
			out = append(out, p)
		}
	}
	return append(out, MaxPrice)
}

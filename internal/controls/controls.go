// Package controls holds the pre-transmission checks run on orders before
// the execution layer sends them to the exchange.
package controls

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/rickgao/exchange-trader/internal/order"
)

// Control inspects one order. A non-nil error rejects it.
type Control interface {
	Name() string
	Validate(o *order.LimitOrder) error
}

// Violation describes why a control rejected an order.
type Violation struct {
	Control string
	OrderID string
	Reason  string
}

func (v *Violation) Error() string {
	return fmt.Sprintf("%s rejected order %s: %s", v.Control, v.OrderID, v.Reason)
}

// OrderValidation checks price and size are valid for the exchange.
type OrderValidation struct{}

// Name implements Control.
func (OrderValidation) Name() string { return "ORDER_VALIDATION" }

// Validate implements Control.
func (c OrderValidation) Validate(o *order.LimitOrder) error {
	if reason := checkSize(o.Size()); reason != "" {
		return &Violation{Control: c.Name(), OrderID: o.ID(), Reason: reason}
	}
	if !ValidPrice(o.Price()) {
		return &Violation{Control: c.Name(), OrderID: o.ID(), Reason: "price " + o.Price().String() + " not on ladder"}
	}
	return nil
}

func checkSize(size decimal.Decimal) string {
	switch {
	case !size.IsPositive():
		return "size must be positive"
	case !size.Equal(size.Round(2)):
		return "size " + size.String() + " has more than two decimal places"
	}
	return ""
}

// Run applies every control in order and returns the first rejection.
func Run(o *order.LimitOrder, controls ...Control) error {
	for _, c := range controls {
		if err := c.Validate(o); err != nil {
			return err
		}
	}
	return nil
}

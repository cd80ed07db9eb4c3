package ledger

import (
	"paper_trading/internal/models"

	"github.com/shopspring/decimal"
)

// Triggered reports whether a pending order fires at price. All boundaries
// are inclusive.
//
//	limit      buy  price <= Price          sell price >= Price
//	stop       buy  price >= Price          sell price <= Price
//	stop-limit buy  StopPrice <= price <= Price
//	           sell Price <= price <= StopPrice
func Triggered(o models.Order, price decimal.Decimal) bool {
	buy := o.Action == models.ActionBuy
	switch o.Type {
	case models.OrderLimit:
		if buy {
			return price.LessThanOrEqual(o.Price)
		}
		return price.GreaterThanOrEqual(o.Price)
	case models.OrderStop:
		if buy {
			return price.GreaterThanOrEqual(o.Price)
		}
		return price.LessThanOrEqual(o.Price)
	case models.OrderStopLimit:
		if buy {
			return price.GreaterThanOrEqual(o.StopPrice) && price.LessThanOrEqual(o.Price)
		}
		return price.LessThanOrEqual(o.StopPrice) && price.GreaterThanOrEqual(o.Price)
	}
	return false
}

// Rejection is a triggered order whose fill was refused by the execution guard.
// The order stays pending and is retried on the next evaluation.
type Rejection struct {
	Order models.Order
	Err   error
}

// Evaluation is the outcome of one Evaluate pass.
type Evaluation struct {
	Fills      []models.Transaction
	Rejections []Rejection
}

// Evaluate scans pending orders in insertion order and fills every one whose
// trigger condition holds at the current price. Each fill runs the full
// execution guard, so later orders see the cash and holdings left by earlier
// ones in the same pass.
func (l *Ledger) Evaluate(q Quotes) Evaluation {
	var ev Evaluation
	for i := 0; i < len(l.portfolio.Orders); i++ {
		o := l.portfolio.Orders[i]
		if o.Status != models.StatusPending {
			continue
		}
		price, ok := q.Price(o.Asset)
		if !ok || !Triggered(o, price) {
			continue
		}
		tx, err := l.ExecuteOrder(q, o)
		if err != nil {
			ev.Rejections = append(ev.Rejections, Rejection{Order: o, Err: err})
			continue
		}
		ev.Fills = append(ev.Fills, tx)
	}
	return ev
}

package ledger

import (
	"sort"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// PositionValue is one holding marked to market.
type PositionValue struct {
	Symbol        string
	Quantity      int64
	AveragePrice  decimal.Decimal
	Price         decimal.Decimal
	CostBasis     decimal.Decimal
	MarketValue   decimal.Decimal
	ProfitLoss    decimal.Decimal
	ProfitLossPct decimal.Decimal
}

// Valuation is the portfolio marked to market.
type Valuation struct {
	Cash          decimal.Decimal
	HoldingsValue decimal.Decimal
	TotalValue    decimal.Decimal
	ProfitLoss    decimal.Decimal
	Positions     []PositionValue
}

// Valuate marks every holding to the current price. Holdings without a quote
// are valued at zero. Positions are sorted by symbol.
func (l *Ledger) Valuate(q Quotes) Valuation {
	v := Valuation{
		Cash:          l.portfolio.Cash,
		HoldingsValue: decimal.Zero,
		ProfitLoss:    decimal.Zero,
	}
	for sym, h := range l.portfolio.Holdings {
		qty := decimal.NewFromInt(h.Quantity)
		price, _ := q.Price(sym)
		pv := PositionValue{
			Symbol:        sym,
			Quantity:      h.Quantity,
			AveragePrice:  h.AveragePrice,
			Price:         price,
			CostBasis:     h.AveragePrice.Mul(qty).Round(2),
			MarketValue:   price.Mul(qty).Round(2),
			ProfitLossPct: decimal.Zero,
		}
		pv.ProfitLoss = pv.MarketValue.Sub(pv.CostBasis)
		if pv.CostBasis.IsPositive() {
			pv.ProfitLossPct = pv.ProfitLoss.Div(pv.CostBasis).Mul(hundred).Round(2)
		}
		v.HoldingsValue = v.HoldingsValue.Add(pv.MarketValue)
		v.ProfitLoss = v.ProfitLoss.Add(pv.ProfitLoss)
		v.Positions = append(v.Positions, pv)
	}
	sort.Slice(v.Positions, func(i, j int) bool { return v.Positions[i].Symbol < v.Positions[j].Symbol })
	v.TotalValue = v.Cash.Add(v.HoldingsValue)
	return v
}

package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// OrderType selects how an order's price fields are interpreted.
type OrderType string

const (
	OrderMarket    OrderType = "market"
	OrderLimit     OrderType = "limit"
	OrderStop      OrderType = "stop"
	OrderStopLimit OrderType = "stop-limit"
)

// Action is the side of an order.
type Action string

const (
	ActionBuy  Action = "buy"
	ActionSell Action = "sell"
)

// OrderStatus is the lifecycle state of an order. Pending is the only
// non-terminal state.
type OrderStatus string

const (
	StatusPending   OrderStatus = "pending"
	StatusExecuted  OrderStatus = "executed"
	StatusCancelled OrderStatus = "cancelled"
)

// ParseOrderType accepts the wire names plus a couple of common spellings.
func ParseOrderType(s string) (OrderType, error) {
	switch strings.ToLower(s) {
	case "market", "mkt":
		return OrderMarket, nil
	case "limit", "lmt":
		return OrderLimit, nil
	case "stop", "stp":
		return OrderStop, nil
	case "stop-limit", "stoplimit", "stop_limit":
		return OrderStopLimit, nil
	}
	return "", fmt.Errorf("unknown order type %q", s)
}

// ParseAction parses "buy" or "sell", case-insensitively.
func ParseAction(s string) (Action, error) {
	switch strings.ToLower(s) {
	case "buy":
		return ActionBuy, nil
	case "sell":
		return ActionSell, nil
	}
	return "", fmt.Errorf("unknown action %q", s)
}

// Order is a user instruction against a single asset.
//
// Price is the limit price for limit orders and the trigger price for stop
// orders. StopPrice is only meaningful for stop-limit orders.
type Order struct {
	ID        string          `json:"id"`
	Asset     string          `json:"asset"`
	Type      OrderType       `json:"type"`
	Action    Action          `json:"action"`
	Quantity  int64           `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
	StopPrice decimal.Decimal `json:"stop_price"`
	Status    OrderStatus     `json:"status"`
	Timestamp time.Time       `json:"timestamp"`
}

// Holding is the per-symbol position. Entries with zero quantity are removed.
//
// CostBasis is the unrounded total paid for the shares still held;
// AveragePrice is always derived from it so the result does not depend on
// the order of the buys.
type Holding struct {
	Quantity     int64           `json:"quantity"`
	AveragePrice decimal.Decimal `json:"average_price"`
	CostBasis    decimal.Decimal `json:"cost_basis"`
}

// WithCostBasis backfills CostBasis from AveragePrice for holdings saved
// before it was tracked.
func (h Holding) WithCostBasis() Holding {
	if h.CostBasis.IsZero() && h.Quantity > 0 {
		h.CostBasis = h.AveragePrice.Mul(decimal.NewFromInt(h.Quantity))
	}
	return h
}

// Transaction is an immutable record of a fill.
type Transaction struct {
	OrderID   string          `json:"order_id"`
	Asset     string          `json:"asset"`
	Action    Action          `json:"type"`
	Quantity  int64           `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
	Timestamp time.Time       `json:"timestamp"`
}

// WatchlistItem is a watched symbol. Duplicates are allowed.
type WatchlistItem struct {
	Symbol  string    `json:"symbol"`
	AddedAt time.Time `json:"added_at"`
}

// Portfolio is the complete ledger state of the single user.
// Transactions are kept newest-first; Orders in insertion order.
type Portfolio struct {
	Cash         decimal.Decimal    `json:"cash"`
	Holdings     map[string]Holding `json:"holdings"`
	Orders       []Order            `json:"orders"`
	Transactions []Transaction      `json:"transactions"`
	Watchlist    []WatchlistItem    `json:"watchlist"`
}

// NewPortfolio returns an empty portfolio funded with cash.
func NewPortfolio(cash decimal.Decimal) Portfolio {
	return Portfolio{
		Cash:         cash,
		Holdings:     map[string]Holding{},
		Orders:       []Order{},
		Transactions: []Transaction{},
		Watchlist:    []WatchlistItem{},
	}
}

// Clone returns a deep copy, safe to hand to readers.
func (p Portfolio) Clone() Portfolio {
	c := Portfolio{
		Cash:         p.Cash,
		Holdings:     make(map[string]Holding, len(p.Holdings)),
		Orders:       append([]Order{}, p.Orders...),
		Transactions: append([]Transaction{}, p.Transactions...),
		Watchlist:    append([]WatchlistItem{}, p.Watchlist...),
	}
	for k, v := range p.Holdings {
		c.Holdings[k] = v
	}
	return c
}

// PendingOrders returns the pending orders in insertion order.
func (p Portfolio) PendingOrders() []Order {
	var out []Order
	for _, o := range p.Orders {
		if o.Status == StatusPending {
			out = append(out, o)
		}
	}
	return out
}

// PortfolioState is the persisted portfolio snapshot.
type PortfolioState struct {
	Version   string    `json:"version"`
	SavedAt   time.Time `json:"saved_at"`
	Portfolio Portfolio `json:"portfolio"`
}

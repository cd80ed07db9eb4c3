// Package ledger keeps the single user's cash, holdings, orders, transaction
// log and watchlist, and fills orders against prices published by the
// market simulator.
package ledger

import (
	"errors"
	"fmt"
	"time"

	"paper_trading/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Rejections returned by the ledger. The portfolio is never modified when
// one of them is returned.
var (
	ErrInsufficientCash     = errors.New("insufficient cash")
	ErrInsufficientHoldings = errors.New("insufficient holdings")
	ErrUnknownAsset         = errors.New("unknown asset")
	ErrInvalidQuantity      = errors.New("quantity must be positive")
	ErrInvalidAction        = errors.New("invalid order action")
	ErrOrderNotFound        = errors.New("no pending order with that id")
)

// Quotes is the read side of the market: the latest price of a symbol.
type Quotes interface {
	Price(symbol string) (decimal.Decimal, bool)
}

// OrderRequest carries the parameters of PlaceOrder. Price and StopPrice are
// optional and default to zero.
type OrderRequest struct {
	Symbol    string
	Type      models.OrderType
	Action    models.Action
	Quantity  int64
	Price     decimal.Decimal
	StopPrice decimal.Decimal
}

// Ledger owns a Portfolio. It is not safe for concurrent use; callers
// serialize access.
type Ledger struct {
	initialCash decimal.Decimal
	portfolio   models.Portfolio
	now         func() time.Time
	newID       func() string
}

// Option customises a Ledger.
type Option func(*Ledger)

// WithClock overrides the timestamp source for orders, fills and watchlist entries.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

// WithIDGenerator overrides order ID generation.
func WithIDGenerator(gen func() string) Option {
	return func(l *Ledger) { l.newID = gen }
}

// New returns a ledger holding initialCash and nothing else.
func New(initialCash decimal.Decimal, opts ...Option) *Ledger {
	l := &Ledger{
		initialCash: initialCash.Round(2),
		now:         time.Now,
		newID:       uuid.NewString,
	}
	for _, opt := range opts {
		opt(l)
	}
	l.portfolio = models.NewPortfolio(l.initialCash)
	return l
}

// InitialCash is the amount Reset restores.
func (l *Ledger) InitialCash() decimal.Decimal {
	return l.initialCash
}

// Portfolio returns a deep copy of the current portfolio.
func (l *Ledger) Portfolio() models.Portfolio {
	return l.portfolio.Clone()
}

// Restore replaces the portfolio with a saved one.
func (l *Ledger) Restore(p models.Portfolio) {
	c := p.Clone()
	if c.Holdings == nil {
		c.Holdings = map[string]models.Holding{}
	}
	for sym, h := range c.Holdings {
		c.Holdings[sym] = h.WithCostBasis()
	}
	l.portfolio = c
}

// Reset restores the starting cash and clears holdings, orders and
// transactions. The watchlist is kept.
func (l *Ledger) Reset() {
	watchlist := l.portfolio.Watchlist
	l.portfolio = models.NewPortfolio(l.initialCash)
	if watchlist != nil {
		l.portfolio.Watchlist = watchlist
	}
}

// PlaceOrder records a new order. Market orders are marked executed and
// filled immediately; everything else is left pending for Evaluate.
//
// The returned error is the rejection of the immediate market fill, if any.
// The order is recorded either way and keeps its assigned status.
func (l *Ledger) PlaceOrder(q Quotes, req OrderRequest) (models.Order, error) {
	order := models.Order{
		ID:        l.newID(),
		Asset:     req.Symbol,
		Type:      req.Type,
		Action:    req.Action,
		Quantity:  req.Quantity,
		Price:     req.Price,
		Status:    models.StatusPending,
		Timestamp: l.now(),
	}
	// Only stop-limit orders have a secondary trigger; a plain stop triggers
	// on Price.
	if req.Type == models.OrderStopLimit {
		order.StopPrice = req.StopPrice
	}
	if req.Type == models.OrderMarket {
		order.Status = models.StatusExecuted
	}

	l.portfolio.Orders = append(l.portfolio.Orders, order)

	if req.Type != models.OrderMarket {
		return order, nil
	}
	if _, err := l.ExecuteOrder(q, order); err != nil {
		return order, err
	}
	return order, nil
}

// ExecuteOrder fills order. Market orders fill at the live price; every other
// type fills at the order's own Price. On rejection nothing changes, and in
// particular the order's status is left as it was.
func (l *Ledger) ExecuteOrder(q Quotes, order models.Order) (models.Transaction, error) {
	if order.Quantity <= 0 {
		return models.Transaction{}, fmt.Errorf("order %s: %w", order.ID, ErrInvalidQuantity)
	}
	live, ok := q.Price(order.Asset)
	if !ok {
		return models.Transaction{}, fmt.Errorf("order %s: %w %q", order.ID, ErrUnknownAsset, order.Asset)
	}

	fill := order.Price
	if order.Type == models.OrderMarket {
		fill = live
	}
	qty := decimal.NewFromInt(order.Quantity)
	total := fill.Mul(qty)
	holding, held := l.portfolio.Holdings[order.Asset]

	switch order.Action {
	case models.ActionBuy:
		if l.portfolio.Cash.LessThan(total) {
			return models.Transaction{}, fmt.Errorf("order %s: %w: need $%s, have $%s",
				order.ID, ErrInsufficientCash, total.StringFixed(2), l.portfolio.Cash.StringFixed(2))
		}
		newQty := holding.Quantity + order.Quantity
		cost := holding.WithCostBasis().CostBasis.Add(total)
		l.portfolio.Cash = l.portfolio.Cash.Sub(total).Round(2)
		l.portfolio.Holdings[order.Asset] = models.Holding{
			Quantity:     newQty,
			AveragePrice: cost.Div(decimal.NewFromInt(newQty)),
			CostBasis:    cost,
		}
	case models.ActionSell:
		if !held || holding.Quantity < order.Quantity {
			return models.Transaction{}, fmt.Errorf("order %s: %w: want %d %s, hold %d",
				order.ID, ErrInsufficientHoldings, order.Quantity, order.Asset, holding.Quantity)
		}
		l.portfolio.Cash = l.portfolio.Cash.Add(total).Round(2)
		holding = holding.WithCostBasis()
		holding.CostBasis = holding.CostBasis.Sub(holding.AveragePrice.Mul(qty))
		holding.Quantity -= order.Quantity
		if holding.Quantity == 0 {
			delete(l.portfolio.Holdings, order.Asset)
		} else {
			l.portfolio.Holdings[order.Asset] = holding
		}
	default:
		return models.Transaction{}, fmt.Errorf("order %s: %w %q", order.ID, ErrInvalidAction, order.Action)
	}

	tx := models.Transaction{
		OrderID:   order.ID,
		Asset:     order.Asset,
		Action:    order.Action,
		Quantity:  order.Quantity,
		Price:     fill,
		Timestamp: l.now(),
	}
	l.portfolio.Transactions = append([]models.Transaction{tx}, l.portfolio.Transactions...)
	l.setStatus(order.ID, models.StatusExecuted)
	return tx, nil
}

func (l *Ledger) setStatus(id string, status models.OrderStatus) {
	for i := range l.portfolio.Orders {
		if l.portfolio.Orders[i].ID == id {
			l.portfolio.Orders[i].Status = status
			return
		}
	}
}

// CancelOrder cancels a pending order. It reports whether anything changed;
// executed and already-cancelled orders are left alone.
func (l *Ledger) CancelOrder(id string) bool {
	for i := range l.portfolio.Orders {
		o := &l.portfolio.Orders[i]
		if o.ID != id {
			continue
		}
		if o.Status != models.StatusPending {
			return false
		}
		o.Status = models.StatusCancelled
		return true
	}
	return false
}

// AddToWatchlist appends symbol. Duplicates are kept.
func (l *Ledger) AddToWatchlist(symbol string) {
	l.portfolio.Watchlist = append(l.portfolio.Watchlist, models.WatchlistItem{
		Symbol:  symbol,
		AddedAt: l.now(),
	})
}

// RemoveFromWatchlist drops every entry for symbol and returns how many went.
func (l *Ledger) RemoveFromWatchlist(symbol string) int {
	kept := l.portfolio.Watchlist[:0:0]
	for _, item := range l.portfolio.Watchlist {
		if item.Symbol != symbol {
			kept = append(kept, item)
		}
	}
	removed := len(l.portfolio.Watchlist) - len(kept)
	l.portfolio.Watchlist = kept
	return removed
}

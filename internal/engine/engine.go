// Package engine runs the market simulator and the portfolio ledger behind a
// single writer lock, persists both after every change and reports what
// happened to the operator.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"paper_trading/internal/ledger"
	"paper_trading/internal/market"
	"paper_trading/internal/models"
	"paper_trading/internal/notifications"
	"paper_trading/internal/storage"
	"paper_trading/internal/ticker"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Persistence saves and restores the two snapshots.
type Persistence interface {
	LoadMarket(ctx context.Context) (*models.MarketState, error)
	SaveMarket(ctx context.Context, s models.MarketState) error
	ClearMarket(ctx context.Context) error
	LoadPortfolio(ctx context.Context) (*models.PortfolioState, error)
	SavePortfolio(ctx context.Context, s models.PortfolioState) error
	ClearPortfolio(ctx context.Context) error
}

var _ Persistence = (*storage.Repository)(nil)

// flushTimeout bounds the final save on shutdown.
const flushTimeout = 5 * time.Second

// ErrStopped is returned by mutations once Run has written its final snapshot.
var ErrStopped = errors.New("engine stopped")

// TickResult is what one tick did.
type TickResult struct {
	Events     []models.MarketEvent
	Fills      []models.Transaction
	Rejections []ledger.Rejection
}

type Engine struct {
	mu        sync.RWMutex
	sim       *market.Simulator
	ledger    *ledger.Ledger
	repo      Persistence
	notifier  notifications.Notifier
	logger    *zap.Logger
	ticks     int64
	stopped   bool
	startedAt time.Time
	commands  []CommandDoc
}

// New wires the components together and restores any saved snapshots.
// A snapshot that cannot be read is logged and replaced by fresh state.
func New(ctx context.Context, sim *market.Simulator, led *ledger.Ledger, repo Persistence, notifier notifications.Notifier, logger *zap.Logger) *Engine {
	if notifier == nil {
		notifier = notifications.Nop{}
	}
	e := &Engine{
		sim:       sim,
		ledger:    led,
		repo:      repo,
		notifier:  notifier,
		logger:    logger,
		startedAt: time.Now(),
		commands:  defaultCommands(),
	}
	e.restore(ctx)
	return e
}

func (e *Engine) restore(ctx context.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()

	ms, err := e.repo.LoadMarket(ctx)
	switch {
	case err != nil:
		e.logger.Error("could not load market snapshot, starting from seed prices", zap.Error(err))
	case ms != nil:
		e.sim.Restore(market.State{Assets: ms.Assets, Events: ms.Events})
		e.logger.Info("market snapshot restored",
			zap.Int("assets", len(ms.Assets)), zap.Int("events", len(ms.Events)), zap.Time("saved_at", ms.SavedAt))
	}

	ps, err := e.repo.LoadPortfolio(ctx)
	switch {
	case err != nil:
		e.logger.Error("could not load portfolio snapshot, starting from initial cash", zap.Error(err))
	case ps != nil:
		e.ledger.Restore(ps.Portfolio)
		e.logger.Info("portfolio snapshot restored",
			zap.String("cash", ps.Portfolio.Cash.StringFixed(2)),
			zap.Int("holdings", len(ps.Portfolio.Holdings)),
			zap.Int("orders", len(ps.Portfolio.Orders)))
	}
}

// Run ticks on every event from src until ctx is cancelled, then stops src
// and writes a final snapshot of both states. After Run returns the engine
// still serves reads but refuses every mutation with ErrStopped, so nothing
// is persisted past the final snapshot.
func (e *Engine) Run(ctx context.Context, src ticker.Source) error {
	defer src.Stop()
	e.logger.Info("engine started")

	for {
		select {
		case <-ctx.Done():
			e.logger.Info("engine stopping, flushing state")
			flushCtx, cancel := context.WithTimeout(context.Background(), flushTimeout)
			defer cancel()
			return e.stop(flushCtx)
		case <-src.C():
			e.Tick(ctx)
		}
	}
}

// Tick advances the market one step and then fills whatever pending orders
// the new prices trigger.
func (e *Engine) Tick(ctx context.Context) TickResult {
	var msgs []string

	e.mu.Lock()
	if e.stopped {
		e.mu.Unlock()
		return TickResult{}
	}
	events := e.sim.Tick()
	ev := e.ledger.Evaluate(e.sim.Prices())
	e.ticks++
	tick := e.ticks

	e.saveMarketLocked(ctx)
	if len(ev.Fills) > 0 {
		e.savePortfolioLocked(ctx)
	}
	e.mu.Unlock()

	for _, event := range events {
		msgs = append(msgs, formatEventAlert(event))
	}
	for _, tx := range ev.Fills {
		e.logger.Info("pending order filled",
			zap.String("order_id", tx.OrderID), zap.String("asset", tx.Asset),
			zap.String("action", string(tx.Action)), zap.Int64("quantity", tx.Quantity),
			zap.String("price", tx.Price.StringFixed(2)))
		msgs = append(msgs, formatFillAlert(tx))
	}
	for _, r := range ev.Rejections {
		e.logger.Debug("triggered order rejected, will retry",
			zap.String("order_id", r.Order.ID), zap.Error(r.Err))
	}
	e.logger.Debug("tick",
		zap.Int64("tick", tick), zap.Int("events", len(events)),
		zap.Int("fills", len(ev.Fills)), zap.Int("rejections", len(ev.Rejections)))

	// Notify outside the lock so a slow notifier never stalls readers.
	for _, m := range msgs {
		e.notifier.Notify(m)
	}

	return TickResult{Events: events, Fills: ev.Fills, Rejections: ev.Rejections}
}

// PlaceOrder records an order; market orders fill immediately. See
// ledger.PlaceOrder for the meaning of the returned error.
func (e *Engine) PlaceOrder(ctx context.Context, req ledger.OrderRequest) (models.Order, error) {
	e.mu.Lock()
	if e.stopped {
		e.mu.Unlock()
		return models.Order{}, ErrStopped
	}
	order, err := e.ledger.PlaceOrder(e.sim.Prices(), req)
	var fill *models.Transaction
	if err == nil && order.Type == models.OrderMarket {
		p := e.ledger.Portfolio()
		if len(p.Transactions) > 0 {
			fill = &p.Transactions[0]
		}
	}
	e.savePortfolioLocked(ctx)
	e.mu.Unlock()

	fields := []zap.Field{
		zap.String("order_id", order.ID), zap.String("asset", order.Asset),
		zap.String("type", string(order.Type)), zap.String("action", string(order.Action)),
		zap.Int64("quantity", order.Quantity),
	}
	if err != nil {
		e.logger.Warn("order rejected", append(fields, zap.Error(err))...)
		return order, err
	}
	e.logger.Info("order placed", append(fields, zap.String("status", string(order.Status)))...)
	if fill != nil {
		e.notifier.Notify(formatFillAlert(*fill))
	}
	return order, nil
}

// CancelOrder cancels a pending order.
func (e *Engine) CancelOrder(ctx context.Context, id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.stopped {
		return ErrStopped
	}
	if !e.ledger.CancelOrder(id) {
		return fmt.Errorf("cancel %s: %w", id, ledger.ErrOrderNotFound)
	}
	e.savePortfolioLocked(ctx)
	e.logger.Info("order cancelled", zap.String("order_id", id))
	return nil
}

func (e *Engine) AddToWatchlist(ctx context.Context, symbol string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.stopped {
		return ErrStopped
	}
	e.ledger.AddToWatchlist(symbol)
	e.savePortfolioLocked(ctx)
	return nil
}

// RemoveFromWatchlist returns how many entries were dropped.
func (e *Engine) RemoveFromWatchlist(ctx context.Context, symbol string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.stopped {
		return 0
	}
	n := e.ledger.RemoveFromWatchlist(symbol)
	if n > 0 {
		e.savePortfolioLocked(ctx)
	}
	return n
}

// ResetPortfolio restores the starting cash, drops holdings, orders and
// transactions, and replaces the stored snapshot with the baseline.
func (e *Engine) ResetPortfolio(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.stopped {
		return ErrStopped
	}
	e.ledger.Reset()
	if err := e.repo.ClearPortfolio(ctx); err != nil {
		e.logger.Error("could not clear portfolio snapshot", zap.Error(err))
	}
	if err := e.repo.SavePortfolio(ctx, models.PortfolioState{Portfolio: e.ledger.Portfolio()}); err != nil {
		e.logger.Error("could not save portfolio snapshot", zap.Error(err))
		return fmt.Errorf("save portfolio: %w", err)
	}
	e.logger.Info("portfolio reset", zap.String("cash", e.ledger.InitialCash().StringFixed(2)))
	return nil
}

// ResetMarketData restores seed prices and clears the event log.
func (e *Engine) ResetMarketData(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.stopped {
		return ErrStopped
	}
	e.sim.Reset()
	if err := e.repo.ClearMarket(ctx); err != nil {
		e.logger.Error("could not clear market snapshot", zap.Error(err))
	}
	if err := e.repo.SaveMarket(ctx, e.marketStateLocked()); err != nil {
		e.logger.Error("could not save market snapshot", zap.Error(err))
		return fmt.Errorf("save market: %w", err)
	}
	e.logger.Info("market data reset")
	return nil
}

// Flush writes both snapshots.
func (e *Engine) Flush(ctx context.Context) error {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.flushLocked(ctx)
}

// stop writes the final snapshots and marks the engine stopped in one
// critical section, so no mutation can land between the two.
func (e *Engine) stop(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stopped = true
	return e.flushLocked(ctx)
}

// Stopped reports whether Run has finished.
func (e *Engine) Stopped() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.stopped
}

func (e *Engine) flushLocked(ctx context.Context) error {
	var errs []error
	if err := e.repo.SaveMarket(ctx, e.marketStateLocked()); err != nil {
		errs = append(errs, fmt.Errorf("save market: %w", err))
	}
	if err := e.repo.SavePortfolio(ctx, models.PortfolioState{Portfolio: e.ledger.Portfolio()}); err != nil {
		errs = append(errs, fmt.Errorf("save portfolio: %w", err))
	}
	return errors.Join(errs...)
}

func (e *Engine) Assets() []models.Asset {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.sim.Assets()
}

func (e *Engine) Asset(symbol string) (models.Asset, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.sim.Asset(symbol)
}

// Events returns the event log, newest first.
func (e *Engine) Events() []models.MarketEvent {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.sim.Events()
}

func (e *Engine) Portfolio() models.Portfolio {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.ledger.Portfolio()
}

// Valuation marks the portfolio to the current prices.
func (e *Engine) Valuation() ledger.Valuation {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.ledger.Valuate(e.sim.Prices())
}

// Ticks is the number of ticks processed since start.
func (e *Engine) Ticks() int64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.ticks
}

func (e *Engine) marketStateLocked() models.MarketState {
	snap := e.sim.Snapshot()
	return models.MarketState{Assets: snap.Assets, Events: snap.Events}
}

// Persistence is best effort: a failed save is logged and the in-memory
// state stays authoritative.
func (e *Engine) saveMarketLocked(ctx context.Context) {
	if err := e.repo.SaveMarket(ctx, e.marketStateLocked()); err != nil {
		e.logger.Error("could not save market snapshot", zap.Error(err))
	}
}

func (e *Engine) savePortfolioLocked(ctx context.Context) {
	if err := e.repo.SavePortfolio(ctx, models.PortfolioState{Portfolio: e.ledger.Portfolio()}); err != nil {
		e.logger.Error("could not save portfolio snapshot", zap.Error(err))
	}
}

func (e *Engine) prices() market.Prices {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.sim.Prices()
}

func (e *Engine) universe() market.Universe {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.sim.Universe()
}

func (e *Engine) initialCash() decimal.Decimal {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.ledger.InitialCash()
}

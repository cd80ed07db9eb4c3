package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"paper_trading/internal/models"

	"go.uber.org/zap"
)

const (
	// MarketKey and PortfolioKey are the two independent snapshots.
	MarketKey    = "market_state"
	PortfolioKey = "portfolio_state"

	// SchemaVersion is stamped on every snapshot written.
	SchemaVersion = "1.2"
)

// Repository reads and writes the market and portfolio snapshots.
type Repository struct {
	store  Store
	logger *zap.Logger
	now    func() time.Time
}

func NewRepository(store Store, logger *zap.Logger) *Repository {
	return &Repository{store: store, logger: logger, now: time.Now}
}

// LoadMarket returns the saved market snapshot, or nil when none exists.
func (r *Repository) LoadMarket(ctx context.Context) (*models.MarketState, error) {
	var s models.MarketState
	found, err := r.load(ctx, MarketKey, &s)
	if err != nil || !found {
		return nil, err
	}
	if migrateMarket(&s) {
		r.logger.Info("market snapshot migrated", zap.String("version", s.Version))
	}
	return &s, nil
}

// SaveMarket writes the market snapshot.
func (r *Repository) SaveMarket(ctx context.Context, s models.MarketState) error {
	s.Version = SchemaVersion
	s.SavedAt = r.now()
	return r.save(ctx, MarketKey, s)
}

// ClearMarket removes the market snapshot.
func (r *Repository) ClearMarket(ctx context.Context) error {
	return r.store.Delete(ctx, MarketKey)
}

// LoadPortfolio returns the saved portfolio snapshot, or nil when none exists.
func (r *Repository) LoadPortfolio(ctx context.Context) (*models.PortfolioState, error) {
	var s models.PortfolioState
	found, err := r.load(ctx, PortfolioKey, &s)
	if err != nil || !found {
		return nil, err
	}
	if migratePortfolio(&s) {
		r.logger.Info("portfolio snapshot migrated", zap.String("version", s.Version))
	}
	return &s, nil
}

// SavePortfolio writes the portfolio snapshot.
func (r *Repository) SavePortfolio(ctx context.Context, s models.PortfolioState) error {
	s.Version = SchemaVersion
	s.SavedAt = r.now()
	return r.save(ctx, PortfolioKey, s)
}

// ClearPortfolio removes the portfolio snapshot.
func (r *Repository) ClearPortfolio(ctx context.Context) error {
	return r.store.Delete(ctx, PortfolioKey)
}

func (r *Repository) load(ctx context.Context, key string, v any) (bool, error) {
	b, err := r.store.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("load %s: %w", key, err)
	}
	if err := json.Unmarshal(b, v); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

func (r *Repository) save(ctx context.Context, key string, v any) error {
	// Pretty-printed so the file backend stays human-readable.
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := r.store.Set(ctx, key, b); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}

// migrateMarket handles schema evolution of the market snapshot.
// Returns true if changes were made.
func migrateMarket(s *models.MarketState) bool {
	updated := false

	// 1.0 -> 1.1: company names and the session anchor were added.
	if s.Version < "1.1" {
		for i := range s.Assets {
			a := &s.Assets[i]
			if a.Name == "" {
				a.Name = models.StockName(a.Symbol)
			}
			if a.PreviousPrice.IsZero() {
				a.PreviousPrice = a.Price
			}
		}
		s.Version = "1.1"
		updated = true
	}
	if s.Events == nil {
		s.Events = []models.MarketEvent{}
	}
	return updated
}

// migratePortfolio handles schema evolution of the portfolio snapshot.
func migratePortfolio(s *models.PortfolioState) bool {
	updated := false

	// 1.0 -> 1.1: watchlist was added; pre-1.1 snapshots may also carry
	// null collections.
	if s.Version < "1.1" {
		s.Version = "1.1"
		updated = true
	}
	p := &s.Portfolio
	if p.Holdings == nil {
		p.Holdings = map[string]models.Holding{}
	}

	// 1.1 -> 1.2: holdings carry their total cost basis.
	if s.Version < "1.2" {
		for sym, h := range p.Holdings {
			p.Holdings[sym] = h.WithCostBasis()
		}
		s.Version = "1.2"
		updated = true
	}
	if p.Orders == nil {
		p.Orders = []models.Order{}
	}
	if p.Transactions == nil {
		p.Transactions = []models.Transaction{}
	}
	if p.Watchlist == nil {
		p.Watchlist = []models.WatchlistItem{}
	}
	return updated
}

package storage

import (
	"context"
	"testing"
	"time"

	"paper_trading/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRepository_MissingSnapshots(t *testing.T) {
	repo := NewRepository(NewMemoryStore(), zap.NewNop())

	m, err := repo.LoadMarket(context.Background())
	require.NoError(t, err)
	assert.Nil(t, m)

	p, err := repo.LoadPortfolio(context.Background())
	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestRepository_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	repo := NewRepository(store, zap.NewNop())
	at := time.Date(2024, 3, 1, 15, 30, 0, 0, time.UTC)
	repo.now = func() time.Time { return at }

	portfolio := models.NewPortfolio(decimal.RequireFromString("985000"))
	portfolio.Holdings["AAPL"] = models.Holding{Quantity: 100, AveragePrice: decimal.RequireFromString("150")}
	portfolio.Orders = append(portfolio.Orders, models.Order{ID: "o1", Asset: "AAPL", Type: models.OrderStopLimit, Action: models.ActionSell, Quantity: 5,
		Price: decimal.RequireFromString("140"), StopPrice: decimal.RequireFromString("145"), Status: models.StatusPending, Timestamp: at})
	portfolio.Watchlist = append(portfolio.Watchlist, models.WatchlistItem{Symbol: "KO", AddedAt: at})

	require.NoError(t, repo.SavePortfolio(ctx, models.PortfolioState{Portfolio: portfolio}))

	got, err := repo.LoadPortfolio(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, SchemaVersion, got.Version)
	assert.True(t, got.SavedAt.Equal(at))
	assert.True(t, got.Portfolio.Cash.Equal(portfolio.Cash))
	assert.Equal(t, int64(100), got.Portfolio.Holdings["AAPL"].Quantity)
	require.Len(t, got.Portfolio.Orders, 1)
	assert.True(t, got.Portfolio.Orders[0].StopPrice.Equal(decimal.RequireFromString("145")))
	assert.Equal(t, models.OrderStopLimit, got.Portfolio.Orders[0].Type)
	assert.Equal(t, "KO", got.Portfolio.Watchlist[0].Symbol)

	require.NoError(t, repo.ClearPortfolio(ctx))
	assert.False(t, store.Has(PortfolioKey))
}

func TestMigrateMarket(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	// Legacy (1.0) snapshot: no names, no anchor, null events.
	legacyJSON := `{
		"version": "1.0",
		"assets": [
			{"symbol": "AAPL", "sector": "TECH", "price": "152.25"}
		],
		"events": null
	}`
	require.NoError(t, store.Set(ctx, MarketKey, []byte(legacyJSON)))

	repo := NewRepository(store, zap.NewNop())
	s, err := repo.LoadMarket(ctx)
	require.NoError(t, err)
	require.NotNil(t, s)

	assert.Equal(t, "1.1", s.Version)
	require.Len(t, s.Assets, 1)
	a := s.Assets[0]
	assert.Equal(t, "Advanced Advanced Precision Lunar Inc.", a.Name)
	assert.True(t, a.PreviousPrice.Equal(decimal.RequireFromString("152.25")), "anchor backfilled from price, got %s", a.PreviousPrice)
	assert.NotNil(t, s.Events)
}

func TestMigratePortfolio(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	legacyJSON := `{"version": "1.0", "portfolio": {"cash": "1000", "holdings": null, "orders": null}}`
	require.NoError(t, store.Set(ctx, PortfolioKey, []byte(legacyJSON)))

	s, err := NewRepository(store, zap.NewNop()).LoadPortfolio(ctx)
	require.NoError(t, err)
	assert.Equal(t, "1.2", s.Version)
	assert.NotNil(t, s.Portfolio.Holdings)
	assert.NotNil(t, s.Portfolio.Orders)
	assert.NotNil(t, s.Portfolio.Transactions)
	assert.NotNil(t, s.Portfolio.Watchlist)
}

func TestRepository_CorruptSnapshot(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.Set(ctx, MarketKey, []byte("{not json")))

	_, err := NewRepository(store, zap.NewNop()).LoadMarket(ctx)
	assert.ErrorContains(t, err, "decode market_state")
}

func TestMigratePortfolio_BackfillsCostBasis(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	legacyJSON := `{"version": "1.1", "portfolio": {"cash": "1000", "holdings": {"AAPL": {"quantity": 3, "average_price": "120.5"}}}}`
	require.NoError(t, store.Set(ctx, PortfolioKey, []byte(legacyJSON)))

	s, err := NewRepository(store, zap.NewNop()).LoadPortfolio(ctx)
	require.NoError(t, err)
	assert.Equal(t, "1.2", s.Version)
	assert.Equal(t, "361.5", s.Portfolio.Holdings["AAPL"].CostBasis.String())
}

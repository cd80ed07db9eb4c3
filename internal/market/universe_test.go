package market_test

import (
	"os"
	"path/filepath"
	"testing"

	"paper_trading/internal/market"
	"paper_trading/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultUniverse(t *testing.T) {
	u := market.DefaultUniverse()
	require.NoError(t, u.Validate())

	assets := u.SeedAssets()
	assert.Len(t, assets, 25)
	assert.Equal(t, "AAPL", assets[0].Symbol)
	assert.Equal(t, models.SectorTech, assets[0].Sector)
	assert.Equal(t, "Advanced Advanced Precision Lunar Inc.", assets[0].Name)

	assert.Equal(t, 0.03, u.Volatility(models.SectorTech))
	assert.Equal(t, 0.01, u.Volatility(models.SectorConsumer))
	assert.Equal(t, market.FallbackVolatility, u.Volatility(models.Sector("CRYPTO")))
	assert.Len(t, u.Categories(models.SectorHealthcare), 5)
	assert.Equal(t, []string{"XOM", "CVX", "COP", "SLB", "EOG"}, u.Symbols(models.SectorEnergy))
}

func TestStockName(t *testing.T) {
	assert.Equal(t, "Kinetic Omni Inc.", models.StockName("KO"))
	assert.Equal(t, "Velocity Inc.", models.StockName("V"))
	assert.Equal(t, "Blue Rapid Kinetic . Blue Inc.", models.StockName("BRK.B"))
}

func TestValidate_Rejects(t *testing.T) {
	dup := market.Universe{Sectors: []market.SectorSpec{
		{Sector: "A", Categories: []string{"x"}, Stocks: []market.Stock{{Symbol: "S", Price: 1}}},
		{Sector: "B", Categories: []string{"x"}, Stocks: []market.Stock{{Symbol: "S", Price: 2}}},
	}}
	assert.ErrorContains(t, dup.Validate(), "listed in both")

	noCategories := market.Universe{Sectors: []market.SectorSpec{
		{Sector: "A", Stocks: []market.Stock{{Symbol: "S", Price: 1}}},
	}}
	assert.ErrorContains(t, noCategories.Validate(), "no event categories")

	badPrice := market.Universe{Sectors: []market.SectorSpec{
		{Sector: "A", Categories: []string{"x"}, Stocks: []market.Stock{{Symbol: "S", Price: 0}}},
	}}
	assert.ErrorContains(t, badPrice.Validate(), "non-positive")

	assert.Error(t, market.Universe{}.Validate())
}

func TestLoadUniverse(t *testing.T) {
	path := filepath.Join(t.TempDir(), "universe.yaml")
	body := `
sectors:
  - sector: METALS
    volatility: 0.04
    categories: ["Mine strikes", "Tariffs"]
    stocks:
      - symbol: GLD
        price: 180.5
      - symbol: SLV
        price: 22
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))

	u, err := market.LoadUniverse(path)
	require.NoError(t, err)
	assert.Equal(t, 0.04, u.Volatility("METALS"))
	assert.Equal(t, []string{"GLD", "SLV"}, u.Symbols("METALS"))

	assets := u.SeedAssets()
	require.Len(t, assets, 2)
	assert.Equal(t, "180.5", assets[0].Price.String())

	_, err = market.LoadUniverse(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

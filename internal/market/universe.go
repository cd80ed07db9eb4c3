package market

import (
	"fmt"
	"os"

	"paper_trading/internal/models"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// FallbackVolatility is used for sectors without a configured volatility.
const FallbackVolatility = 0.02

// Stock is a symbol and its seed price.
type Stock struct {
	Symbol string  `yaml:"symbol"`
	Price  float64 `yaml:"price"`
}

// SectorSpec describes one sector of the universe.
type SectorSpec struct {
	Sector     models.Sector `yaml:"sector"`
	Volatility float64       `yaml:"volatility"`
	Categories []string      `yaml:"categories"`
	Stocks     []Stock       `yaml:"stocks"`
}

// Universe is the fixed set of sectors and stocks the simulator trades.
type Universe struct {
	Sectors []SectorSpec `yaml:"sectors"`
}

// DefaultUniverse is the built-in five-sector, 25-stock market.
func DefaultUniverse() Universe {
	return Universe{Sectors: []SectorSpec{
		{
			Sector:     models.SectorTech,
			Volatility: 0.03,
			Categories: []string{"Product launches", "Cybersecurity incidents", "Regulatory changes", "Innovation breakthroughs", "Market disruptions"},
			Stocks:     []Stock{{"AAPL", 150}, {"GOOGL", 100}, {"MSFT", 100}, {"AMZN", 100}, {"NVDA", 70}},
		},
		{
			Sector:     models.SectorFinance,
			Volatility: 0.02,
			Categories: []string{"Interest rate changes", "Regulatory reforms", "Merger and acquisitions", "Economic indicators", "Geopolitical events"},
			Stocks:     []Stock{{"JPM", 50}, {"BAC", 40}, {"GS", 50}, {"V", 30}, {"MA", 50}},
		},
		{
			Sector:     models.SectorHealthcare,
			Volatility: 0.015,
			Categories: []string{"Drug trials", "FDA approvals", "Healthcare policy changes", "Medical breakthroughs", "Public health crises"},
			Stocks:     []Stock{{"JNJ", 70}, {"PFE", 40}, {"UNH", 50}, {"ABBV", 110}, {"MRK", 80}},
		},
		{
			Sector:     models.SectorEnergy,
			Volatility: 0.025,
			Categories: []string{"Oil price fluctuations", "Renewable energy advancements", "Geopolitical tensions", "Environmental regulations", "Natural disasters"},
			Stocks:     []Stock{{"XOM", 60}, {"CVX", 10}, {"COP", 60}, {"SLB", 35}, {"EOG", 85}},
		},
		{
			Sector:     models.SectorConsumer,
			Volatility: 0.01,
			Categories: []string{"Consumer spending trends", "Supply chain disruptions", "Brand reputation changes", "Product recalls", "Shifts in consumer preferences"},
			Stocks:     []Stock{{"PG", 40}, {"KO", 55}, {"PEP", 50}, {"WMT", 40}, {"COST", 50}},
		},
	}}
}

// LoadUniverse reads a YAML universe definition from path.
func LoadUniverse(path string) (Universe, error) {
	var u Universe
	b, err := os.ReadFile(path)
	if err != nil {
		return u, fmt.Errorf("read universe file: %w", err)
	}
	if err := yaml.Unmarshal(b, &u); err != nil {
		return u, fmt.Errorf("parse universe file %s: %w", path, err)
	}
	if err := u.Validate(); err != nil {
		return u, err
	}
	return u, nil
}

// Validate checks that symbols are unique, seed prices positive and every
// sector has at least one event category.
func (u Universe) Validate() error {
	if len(u.Sectors) == 0 {
		return fmt.Errorf("universe has no sectors")
	}
	seen := make(map[string]models.Sector)
	for _, s := range u.Sectors {
		if s.Sector == "" {
			return fmt.Errorf("sector without a name")
		}
		if len(s.Categories) == 0 {
			return fmt.Errorf("sector %s has no event categories", s.Sector)
		}
		for _, st := range s.Stocks {
			if st.Symbol == "" {
				return fmt.Errorf("sector %s has a stock without a symbol", s.Sector)
			}
			if st.Price <= 0 {
				return fmt.Errorf("stock %s has non-positive seed price %v", st.Symbol, st.Price)
			}
			if other, dup := seen[st.Symbol]; dup {
				return fmt.Errorf("symbol %s listed in both %s and %s", st.Symbol, other, s.Sector)
			}
			seen[st.Symbol] = s.Sector
		}
	}
	return nil
}

func (u Universe) spec(sector models.Sector) (SectorSpec, bool) {
	for _, s := range u.Sectors {
		if s.Sector == sector {
			return s, true
		}
	}
	return SectorSpec{}, false
}

// Volatility returns the sector's fluctuation bound, or FallbackVolatility.
func (u Universe) Volatility(sector models.Sector) float64 {
	if s, ok := u.spec(sector); ok && s.Volatility > 0 {
		return s.Volatility
	}
	return FallbackVolatility
}

// Categories returns the event categories of a sector.
func (u Universe) Categories(sector models.Sector) []string {
	s, _ := u.spec(sector)
	return s.Categories
}

// Symbols returns every symbol in a sector, in declaration order.
func (u Universe) Symbols(sector models.Sector) []string {
	s, _ := u.spec(sector)
	out := make([]string, 0, len(s.Stocks))
	for _, st := range s.Stocks {
		out = append(out, st.Symbol)
	}
	return out
}

// SeedAssets builds the baseline asset list: price = anchor = seed price,
// day change zero.
func (u Universe) SeedAssets() []models.Asset {
	var assets []models.Asset
	for _, s := range u.Sectors {
		for _, st := range s.Stocks {
			p := decimal.NewFromFloat(st.Price).Round(2)
			assets = append(assets, models.Asset{
				Symbol:              st.Symbol,
				Name:                models.StockName(st.Symbol),
				Sector:              s.Sector,
				Price:               p,
				PreviousPrice:       p,
				DayChange:           decimal.Zero,
				DayChangePercentage: decimal.Zero,
			})
		}
	}
	return assets
}

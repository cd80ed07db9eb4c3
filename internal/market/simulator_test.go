package market_test

import (
	"testing"
	"time"

	"paper_trading/internal/market"
	"paper_trading/internal/market/markettest"
	"paper_trading/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, 3, 1, 15, 30, 0, 0, time.UTC)

func newSim(rnd market.Rand) *market.Simulator {
	return market.NewSimulator(market.DefaultUniverse(), rnd, market.WithClock(func() time.Time { return fixedNow }))
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal, msg string) {
	t.Helper()
	assert.Truef(t, dec(want).Equal(got), "%s: expected %s, got %s", msg, want, got)
}

func TestTick_BaseFluctuation(t *testing.T) {
	// AAPL draws 0.0 -> fluctuation = -volatility (-3%), no event.
	rnd := &markettest.ScriptedRand{Floats: []float64{0.0, 0.5}}
	sim := newSim(rnd)

	events := sim.Tick()
	assert.Empty(t, events)

	aapl, ok := sim.Asset("AAPL")
	require.True(t, ok)
	assertDecimal(t, "145.50", aapl.Price, "price")
	assertDecimal(t, "150", aapl.PreviousPrice, "anchor must not move")
	assertDecimal(t, "-4.50", aapl.DayChange, "day change")
	assertDecimal(t, "-3.00", aapl.DayChangePercentage, "day change %")

	googl, _ := sim.Asset("GOOGL")
	assertDecimal(t, "100", googl.Price, "neutral draw keeps price")
}

func TestTick_DayChangeMeasuredAgainstAnchor(t *testing.T) {
	// Two ticks of +3%: the second day change is relative to the anchor,
	// not to the first tick's price.
	rnd := &markettest.ScriptedRand{Floats: []float64{1.0, 0.5}}
	sim := newSim(rnd)
	sim.Tick()
	rnd.Push(1.0, 0.5)
	sim.Tick()

	aapl, _ := sim.Asset("AAPL")
	// 150 * 1.03 = 154.50, 154.50 * 1.03 = 159.135 -> 159.14
	assertDecimal(t, "159.14", aapl.Price, "price")
	assertDecimal(t, "9.14", aapl.DayChange, "day change")
	assertDecimal(t, "6.09", aapl.DayChangePercentage, "day change %")
}

func TestTick_SectorEvent(t *testing.T) {
	// AAPL: no fluctuation, event roll hits, magnitude +5%, category index 2.
	rnd := &markettest.ScriptedRand{Floats: []float64{0.5, 0.05, 1.0}, Ints: []int{2}}
	sim := newSim(rnd)

	events := sim.Tick()
	require.Len(t, events, 1)

	ev := events[0]
	assert.Equal(t, models.SectorTech, ev.Sector)
	assert.Equal(t, "Regulatory changes", ev.Category)
	assert.Equal(t, models.ImpactMajor, ev.Impact)
	assert.Equal(t, "Major regulatory changes event in the TECH sector", ev.Description)
	assert.Equal(t, []string{"AAPL", "GOOGL", "MSFT", "AMZN", "NVDA"}, ev.AffectedStocks)
	assert.Equal(t, fixedNow, ev.Timestamp)

	aapl, _ := sim.Asset("AAPL")
	assertDecimal(t, "157.50", aapl.Price, "event shock applies to the triggering asset")

	// The rest of the sector is only named, not repriced.
	googl, _ := sim.Asset("GOOGL")
	assertDecimal(t, "100", googl.Price, "sector peer")

	assert.Len(t, sim.Events(), 1)
}

func TestClassifyImpact(t *testing.T) {
	tests := []struct {
		magnitude float64
		want      models.Impact
	}{
		{0, models.ImpactMinor},
		{0.0199, models.ImpactMinor},
		{-0.0199, models.ImpactMinor},
		{0.02, models.ImpactModerate},
		{-0.03, models.ImpactModerate},
		{0.0349, models.ImpactModerate},
		{0.035, models.ImpactMajor},
		{-0.05, models.ImpactMajor},
	}
	for _, tt := range tests {
		assert.Equalf(t, tt.want, market.ClassifyImpact(tt.magnitude), "magnitude %v", tt.magnitude)
	}
}

func TestTick_EventLogBoundedNewestFirst(t *testing.T) {
	// Every asset emits a zero-magnitude event: 25 events in one tick.
	rnd := &markettest.ScriptedRand{}
	for i := 0; i < 25; i++ {
		rnd.Push(0.5, 0.0, 0.5)
	}
	sim := newSim(rnd)

	emitted := sim.Tick()
	assert.Len(t, emitted, 25)

	log := sim.Events()
	require.Len(t, log, market.MaxEvents)
	for i := 0; i < 5; i++ {
		assert.Equal(t, models.SectorConsumer, log[i].Sector, "newest events first")
	}
	for i := 5; i < 10; i++ {
		assert.Equal(t, models.SectorEnergy, log[i].Sector)
	}

	// A following tick with one event pushes the oldest one out.
	rnd.Push(0.5, 0.0, 0.5)
	sim.Tick()
	log = sim.Events()
	require.Len(t, log, market.MaxEvents)
	assert.Equal(t, models.SectorTech, log[0].Sector)
	assert.Equal(t, models.SectorConsumer, log[1].Sector)

	for _, a := range sim.Assets() {
		assert.True(t, a.Price.Equal(a.PreviousPrice), "zero-magnitude events keep %s unchanged", a.Symbol)
	}
}

func TestStep_DoesNotMutateInput(t *testing.T) {
	u := market.DefaultUniverse()
	prev := market.Seed(u)
	before := prev.Clone()

	rnd := &markettest.ScriptedRand{Floats: []float64{1.0, 0.0, 1.0}}
	next, emitted := market.Step(u, prev, rnd, market.NewPicker(rnd), fixedNow)

	assert.Equal(t, before, prev)
	assert.Len(t, emitted, 1)
	assert.Len(t, next.Events, 1)
	assert.Empty(t, prev.Events)
	assert.False(t, next.Assets[0].Price.Equal(prev.Assets[0].Price))
}

func TestTick_PriceStaysPositive(t *testing.T) {
	u := market.Universe{Sectors: []market.SectorSpec{{
		Sector:     models.SectorEnergy,
		Volatility: 0.5,
		Categories: []string{"Natural disasters"},
		Stocks:     []market.Stock{{Symbol: "PENNY", Price: 0.01}},
	}}}
	require.NoError(t, u.Validate())

	rnd := &markettest.ScriptedRand{Floats: []float64{0.0, 0.0, 0.0}}
	sim := market.NewSimulator(u, rnd)
	sim.Tick()

	a, _ := sim.Asset("PENNY")
	assert.True(t, a.Price.IsPositive(), "got %s", a.Price)
}

func TestResetMarketData_RestoresBaseline(t *testing.T) {
	sim := newSim(market.NewRand(7))
	for i := 0; i < 50; i++ {
		sim.Tick()
	}
	sim.Reset()

	assert.Equal(t, market.Seed(market.DefaultUniverse()), sim.Snapshot())
	assert.Empty(t, sim.Events())
	for _, a := range sim.Assets() {
		assert.True(t, a.Price.Equal(a.PreviousPrice))
		assert.True(t, a.DayChange.IsZero())
		assert.True(t, a.DayChangePercentage.IsZero())
	}
}

func TestTick_SeededRunsAreReplayable(t *testing.T) {
	a := newSim(market.NewRand(42))
	b := newSim(market.NewRand(42))
	for i := 0; i < 30; i++ {
		assert.Equal(t, len(a.Tick()), len(b.Tick()))
	}

	pa, pb := a.Prices(), b.Prices()
	require.Len(t, pa, 25)
	for sym, p := range pa {
		assert.Truef(t, p.Equal(pb[sym]), "%s diverged: %s vs %s", sym, p, pb[sym])
	}
}

func TestRestore(t *testing.T) {
	sim := newSim(markettest.Neutral())

	saved := market.Seed(market.DefaultUniverse())
	saved.Assets[0].Price = dec("139")
	saved.Assets = append(saved.Assets, models.Asset{Symbol: "GONE", Price: dec("1")})
	for i := 0; i < 12; i++ {
		saved.Events = append(saved.Events, models.MarketEvent{Category: string(rune('a' + i))})
	}

	sim.Restore(saved)

	aapl, _ := sim.Asset("AAPL")
	assertDecimal(t, "139", aapl.Price, "restored price")
	assertDecimal(t, "150", aapl.PreviousPrice, "restored anchor")
	_, ok := sim.Asset("GONE")
	assert.False(t, ok, "symbols outside the universe are dropped")

	events := sim.Events()
	require.Len(t, events, market.MaxEvents)
	assert.Equal(t, "a", events[0].Category)
	assert.Equal(t, "j", events[9].Category)
}

func TestPicker(t *testing.T) {
	rnd := &markettest.ScriptedRand{Ints: []int{3}}
	p := market.NewPicker(rnd)
	assert.Equal(t, "d", p.Pick([]string{"a", "b", "c", "d", "e"}))
	assert.Equal(t, "", p.Pick(nil))
}

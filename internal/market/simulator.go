package market

import (
	"fmt"
	"math"
	"strings"
	"time"

	"paper_trading/internal/models"

	"github.com/shopspring/decimal"
)

const (
	// EventProbability is the chance, per asset per tick, of a sector event.
	EventProbability = 0.10
	// EventMagnitude bounds the event shock to [-EventMagnitude, EventMagnitude].
	EventMagnitude = 0.05
	// MaxEvents is the capacity of the newest-first event log.
	MaxEvents = 10

	minorThreshold    = 0.02
	moderateThreshold = 0.035
)

var (
	minPrice = decimal.New(1, -2)
	hundred  = decimal.NewFromInt(100)
)

// State is everything the simulator owns. Step treats it as immutable.
type State struct {
	Assets []models.Asset
	Events []models.MarketEvent
}

// Clone returns a copy that shares nothing mutable with s.
func (s State) Clone() State {
	c := State{
		Assets: append([]models.Asset{}, s.Assets...),
		Events: make([]models.MarketEvent, len(s.Events)),
	}
	for i, e := range s.Events {
		e.AffectedStocks = append([]string{}, e.AffectedStocks...)
		c.Events[i] = e
	}
	return c
}

// Seed returns the baseline state of a universe: seed prices, empty event log.
func Seed(u Universe) State {
	return State{Assets: u.SeedAssets(), Events: []models.MarketEvent{}}
}

// ClassifyImpact maps an event magnitude onto its impact class.
func ClassifyImpact(magnitude float64) models.Impact {
	m := math.Abs(magnitude)
	switch {
	case m < minorThreshold:
		return models.ImpactMinor
	case m < moderateThreshold:
		return models.ImpactModerate
	default:
		return models.ImpactMajor
	}
}

// Step advances prev by one tick and returns the new state together with the
// events emitted during the tick, in emission order. prev is not modified.
//
// Per asset the draws are: base fluctuation, event roll, and when the roll
// hits, event magnitude followed by the category pick.
func Step(u Universe, prev State, rnd Rand, pick Picker, now time.Time) (State, []models.MarketEvent) {
	next := State{Assets: make([]models.Asset, len(prev.Assets))}
	var emitted []models.MarketEvent

	for i, a := range prev.Assets {
		v := u.Volatility(a.Sector)
		fluctuation := rnd.Float64()*v*2 - v
		price := a.Price.Mul(decimal.NewFromFloat(1 + fluctuation))

		if rnd.Float64() < EventProbability {
			magnitude := rnd.Float64()*EventMagnitude*2 - EventMagnitude
			ev := newEvent(u, a.Sector, magnitude, pick, now)
			emitted = append(emitted, ev)

			if contains(ev.AffectedStocks, a.Symbol) {
				price = price.Mul(decimal.NewFromFloat(1 + magnitude))
			}
		}

		price = price.Round(2)
		if price.LessThan(minPrice) {
			price = minPrice
		}

		a.Price = price
		a.DayChange = price.Sub(a.PreviousPrice).Round(2)
		a.DayChangePercentage = decimal.Zero
		if a.PreviousPrice.IsPositive() {
			a.DayChangePercentage = a.DayChange.Div(a.PreviousPrice).Mul(hundred).Round(2)
		}
		next.Assets[i] = a
	}

	next.Events = prependEvents(prev.Events, emitted)
	return next, emitted
}

func newEvent(u Universe, sector models.Sector, magnitude float64, pick Picker, now time.Time) models.MarketEvent {
	impact := ClassifyImpact(magnitude)
	category := pick.Pick(u.Categories(sector))
	return models.MarketEvent{
		Sector:         sector,
		Category:       category,
		Description:    fmt.Sprintf("%s %s event in the %s sector", capitalize(string(impact)), strings.ToLower(category), sector),
		Impact:         impact,
		AffectedStocks: u.Symbols(sector),
		Timestamp:      now,
	}
}

// prependEvents puts emitted (oldest to newest) in front of log, newest
// first, and evicts whatever falls past MaxEvents.
func prependEvents(log, emitted []models.MarketEvent) []models.MarketEvent {
	out := make([]models.MarketEvent, 0, MaxEvents)
	for i := len(emitted) - 1; i >= 0 && len(out) < MaxEvents; i-- {
		out = append(out, emitted[i])
	}
	for _, e := range log {
		if len(out) == MaxEvents {
			break
		}
		out = append(out, e)
	}
	return out
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// Prices is a read-only price vector keyed by symbol.
type Prices map[string]decimal.Decimal

// Price implements the ledger's quote lookup.
func (p Prices) Price(symbol string) (decimal.Decimal, bool) {
	v, ok := p[symbol]
	return v, ok
}

// Simulator owns the market state and advances it with Step.
//
// It is not safe for concurrent use; the engine is its single writer.
type Simulator struct {
	universe Universe
	state    State
	rnd      Rand
	picker   Picker
	now      func() time.Time
}

// Option customises a Simulator.
type Option func(*Simulator)

// WithPicker overrides the category picker (defaults to one backed by the Rand).
func WithPicker(p Picker) Option {
	return func(s *Simulator) { s.picker = p }
}

// WithClock overrides the event timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Simulator) { s.now = now }
}

// NewSimulator returns a simulator seeded from u.
func NewSimulator(u Universe, rnd Rand, opts ...Option) *Simulator {
	s := &Simulator{
		universe: u,
		state:    Seed(u),
		rnd:      rnd,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.picker == nil {
		s.picker = NewPicker(rnd)
	}
	return s
}

// Tick advances every asset one step and returns the events it emitted.
func (s *Simulator) Tick() []models.MarketEvent {
	next, emitted := Step(s.universe, s.state, s.rnd, s.picker, s.now())
	s.state = next
	return emitted
}

// Reset restores seed prices, re-anchors them and clears the event log.
func (s *Simulator) Reset() {
	s.state = Seed(s.universe)
}

// Restore replaces the state with a previously saved one. Assets missing
// from the snapshot keep their seed values; unknown symbols are dropped.
func (s *Simulator) Restore(st State) {
	saved := make(map[string]models.Asset, len(st.Assets))
	for _, a := range st.Assets {
		saved[a.Symbol] = a
	}
	base := Seed(s.universe)
	for i, a := range base.Assets {
		if prev, ok := saved[a.Symbol]; ok && prev.Price.IsPositive() {
			prev.Sector = a.Sector
			if prev.Name == "" {
				prev.Name = a.Name
			}
			base.Assets[i] = prev
		}
	}
	base.Events = prependEvents(nil, reverse(st.Events))
	s.state = base.Clone()
}

func reverse(events []models.MarketEvent) []models.MarketEvent {
	out := make([]models.MarketEvent, len(events))
	for i, e := range events {
		out[len(events)-1-i] = e
	}
	return out
}

// Snapshot returns a copy of the current state.
func (s *Simulator) Snapshot() State {
	return s.state.Clone()
}

// Assets returns a copy of the asset list.
func (s *Simulator) Assets() []models.Asset {
	return append([]models.Asset{}, s.state.Assets...)
}

// Events returns a copy of the event log, newest first.
func (s *Simulator) Events() []models.MarketEvent {
	return s.state.Clone().Events
}

// Asset looks up one asset by symbol.
func (s *Simulator) Asset(symbol string) (models.Asset, bool) {
	for _, a := range s.state.Assets {
		if a.Symbol == symbol {
			return a, true
		}
	}
	return models.Asset{}, false
}

// Prices publishes the current price vector.
func (s *Simulator) Prices() Prices {
	p := make(Prices, len(s.state.Assets))
	for _, a := range s.state.Assets {
		p[a.Symbol] = a.Price
	}
	return p
}

// Universe returns the universe the simulator was built with.
func (s *Simulator) Universe() Universe {
	return s.universe
}

package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Sector groups symbols that share a volatility and an event-category list.
type Sector string

const (
	SectorTech       Sector = "TECH"
	SectorFinance    Sector = "FINANCE"
	SectorHealthcare Sector = "HEALTHCARE"
	SectorEnergy     Sector = "ENERGY"
	SectorConsumer   Sector = "CONSUMER"
)

// Impact is the severity class of a market event.
type Impact string

const (
	ImpactMinor    Impact = "minor"
	ImpactModerate Impact = "moderate"
	ImpactMajor    Impact = "major"
)

// Asset represents a tradable instrument of the simulated market.
//
// PreviousPrice is the session-open anchor. It is set when the market is
// seeded or reset and is NOT moved by ticks, so DayChange reports the drift
// since the last reset.
type Asset struct {
	Symbol              string          `json:"symbol"`
	Name                string          `json:"name"`
	Sector              Sector          `json:"sector"`
	Price               decimal.Decimal `json:"price"`
	PreviousPrice       decimal.Decimal `json:"previous_price"`
	DayChange           decimal.Decimal `json:"day_change"`
	DayChangePercentage decimal.Decimal `json:"day_change_percentage"`
}

// MarketEvent is a sector-wide news item emitted by the simulator.
type MarketEvent struct {
	Sector         Sector    `json:"sector"`
	Category       string    `json:"category"`
	Description    string    `json:"description"`
	Impact         Impact    `json:"impact"`
	AffectedStocks []string  `json:"affected_stocks"`
	Timestamp      time.Time `json:"timestamp"`
}

// MarketState is the persisted market snapshot.
type MarketState struct {
	Version string        `json:"version"`
	SavedAt time.Time     `json:"saved_at"`
	Assets  []Asset       `json:"assets"`
	Events  []MarketEvent `json:"events"`
}

var letterWords = map[rune]string{
	'A': "Advanced", 'B': "Blue", 'C': "Cyber", 'D': "Data", 'E': "Eco",
	'F': "Future", 'G': "Global", 'H': "Hyper", 'I': "Innovative", 'J': "Jumbo",
	'K': "Kinetic", 'L': "Lunar", 'M': "Mega", 'N': "Nano", 'O': "Omni",
	'P': "Precision", 'Q': "Quantum", 'R': "Rapid", 'S': "Smart", 'T': "Tech",
	'U': "Ultra", 'V': "Velocity", 'W': "World", 'X': "X-treme", 'Y': "Yield",
	'Z': "Zenith",
}

// StockName builds the synthetic company name for a ticker, one word per letter.
// "KO" -> "Kinetic Omni Inc."
func StockName(symbol string) string {
	words := make([]string, 0, len(symbol))
	for _, r := range symbol {
		if w, ok := letterWords[r]; ok {
			words = append(words, w)
			continue
		}
		words = append(words, string(r))
	}
	return strings.Join(words, " ") + " Inc."
}

package market

import (
	"math/rand"
	"time"
)

// Rand is the randomness the simulator consumes. *rand.Rand satisfies it.
type Rand interface {
	Float64() float64
	Intn(n int) int
}

// NewRand returns a seeded generator. A zero seed is replaced by the wall clock.
func NewRand(seed int64) *rand.Rand {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return rand.New(rand.NewSource(seed))
}

// Picker chooses one of several options.
type Picker interface {
	Pick(options []string) string
}

type randPicker struct {
	rnd Rand
}

// NewPicker returns a Picker drawing uniformly from rnd.
func NewPicker(rnd Rand) Picker {
	return randPicker{rnd: rnd}
}

func (p randPicker) Pick(options []string) string {
	if len(options) == 0 {
		return ""
	}
	return options[p.rnd.Intn(len(options))]
}

// Package markettest provides deterministic randomness for simulator tests.
package markettest

import "sync"

// ScriptedRand replays queued values. When a queue runs dry Float64 returns
// 0.5 (zero fluctuation, no event) and Intn returns 0.
type ScriptedRand struct {
	mu     sync.Mutex
	Floats []float64
	Ints   []int
}

// Neutral returns a ScriptedRand that never moves prices and never emits events.
func Neutral() *ScriptedRand {
	return &ScriptedRand{}
}

func (r *ScriptedRand) Float64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.Floats) == 0 {
		return 0.5
	}
	v := r.Floats[0]
	r.Floats = r.Floats[1:]
	return v
}

func (r *ScriptedRand) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.Ints) == 0 {
		return 0
	}
	v := r.Ints[0]
	r.Ints = r.Ints[1:]
	if n <= 0 {
		return 0
	}
	return v % n
}

// Push queues more float draws.
func (r *ScriptedRand) Push(floats ...float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Floats = append(r.Floats, floats...)
}

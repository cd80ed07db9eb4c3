// Package ticker turns wall-clock time, or a test, into discrete tick events.
package ticker

import (
	"sync"
	"time"
)

// Source delivers tick events on a channel until stopped.
type Source interface {
	C() <-chan time.Time
	Stop()
}

// Wall ticks at a fixed interval.
type Wall struct {
	t *time.Ticker
}

// NewWall panics if interval is not positive, like time.NewTicker.
func NewWall(interval time.Duration) *Wall {
	return &Wall{t: time.NewTicker(interval)}
}

func (w *Wall) C() <-chan time.Time { return w.t.C }
func (w *Wall) Stop()               { w.t.Stop() }

// Manual ticks only when told to. Fire blocks until the consumer receives
// the tick or the source is stopped.
type Manual struct {
	ch   chan time.Time
	done chan struct{}
	once sync.Once
}

func NewManual() *Manual {
	return &Manual{
		ch:   make(chan time.Time),
		done: make(chan struct{}),
	}
}

func (m *Manual) C() <-chan time.Time { return m.ch }

// Fire delivers one tick. It reports false if the source was stopped first.
func (m *Manual) Fire(at time.Time) bool {
	select {
	case m.ch <- at:
		return true
	case <-m.done:
		return false
	}
}

func (m *Manual) Stop() {
	m.once.Do(func() { close(m.done) })
}

package ticker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestManual_DeliversTicks(t *testing.T) {
	m := NewManual()
	at := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	got := make(chan time.Time, 1)
	go func() { got <- <-m.C() }()

	assert.True(t, m.Fire(at))
	assert.Equal(t, at, <-got)
}

func TestManual_FireAfterStop(t *testing.T) {
	m := NewManual()
	m.Stop()
	m.Stop()
	assert.False(t, m.Fire(time.Now()), "nobody is listening and the source is stopped")
}

func TestWall_Ticks(t *testing.T) {
	w := NewWall(5 * time.Millisecond)
	defer w.Stop()

	select {
	case <-w.C():
	case <-time.After(time.Second):
		t.Fatal("wall ticker never fired")
	}
}

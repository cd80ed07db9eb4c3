// Package notifications pushes short human-readable messages about market
// events and order fills to the operator.
package notifications

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// Notifier delivers one message. Delivery failures are the notifier's
// problem; callers never block on or react to them.
type Notifier interface {
	Notify(text string)
}

// Writer prints every message as its own block on an io.Writer.
type Writer struct {
	mu     sync.Mutex
	out    io.Writer
	logger *zap.Logger
}

func NewWriter(out io.Writer, logger *zap.Logger) *Writer {
	return &Writer{out: out, logger: logger}
}

func (w *Writer) Notify(text string) {
	text = strings.TrimRight(text, "\n")
	if text == "" {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if _, err := fmt.Fprintf(w.out, "%s\n", text); err != nil {
		w.logger.Warn("notification failed", zap.Error(err))
	}
}

// Nop drops every message.
type Nop struct{}

func (Nop) Notify(string) {}

// Recorder keeps messages in memory.
type Recorder struct {
	mu       sync.Mutex
	messages []string
}

func (r *Recorder) Notify(text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, text)
}

// Messages returns a copy of everything recorded so far.
func (r *Recorder) Messages() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.messages...)
}

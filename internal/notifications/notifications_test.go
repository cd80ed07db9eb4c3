package notifications

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("closed") }

func TestWriter_Notify(t *testing.T) {
	var buf bytes.Buffer
	n := NewWriter(&buf, zap.NewNop())

	n.Notify("first\n")
	n.Notify("")
	n.Notify("second")

	assert.Equal(t, "first\nsecond\n", buf.String())
}

func TestWriter_LogsFailures(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	n := NewWriter(failingWriter{}, zap.New(core))

	n.Notify("lost")

	assert.Equal(t, 1, logs.FilterMessage("notification failed").Len())
}

func TestRecorder(t *testing.T) {
	var r Recorder
	r.Notify("a")
	r.Notify("b")

	msgs := r.Messages()
	assert.Equal(t, []string{"a", "b"}, msgs)

	msgs[0] = "changed"
	assert.Equal(t, "a", r.Messages()[0])
}

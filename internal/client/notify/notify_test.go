package notify

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConsole(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(&buf)
	c.Info("Logged out")
	c.Error("bad credentials")
	assert.Equal(t, "✓ Logged out\n✗ bad credentials\n", buf.String())
}

func TestRecorder(t *testing.T) {
	var r Recorder
	assert.Empty(t, r.LastError())
	r.Error("one")
	r.Error("two")
	r.Info("hi")
	assert.Equal(t, "two", r.LastError())
	assert.Equal(t, []string{"hi"}, r.Infos)
}

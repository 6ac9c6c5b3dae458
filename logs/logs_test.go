package logs

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStd_FiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, LevelWarn)
	l.Debug("d %d", 1)
	l.Info("i %d", 2)
	l.Warn("w %d", 3)
	l.Error("e %d", 4)

	out := buf.String()
	assert.NotContains(t, out, "d 1")
	assert.NotContains(t, out, "i 2")
	assert.Contains(t, out, "[WARN]")
	assert.Contains(t, out, "w 3")
	assert.Contains(t, out, "[ERROR]")
	assert.Contains(t, out, "e 4")
}

func TestParseLevel(t *testing.T) {
	for in, want := range map[string]Level{
		"debug": LevelDebug, "INFO": LevelInfo, "": LevelInfo, "warning": LevelWarn, "error": LevelError,
	} {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseLevel("loud")
	assert.Error(t, err)
}

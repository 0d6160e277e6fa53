package monitoring

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func capture(t *testing.T) *[]string {
	t.Helper()
	original := Logf
	t.Cleanup(func() { Logf = original })

	var lines []string
	SetLogger(func(format string, v ...interface{}) {
		lines = append(lines, fmt.Sprintf(format, v...))
	})
	return &lines
}

func TestSetLogger(t *testing.T) {
	lines := capture(t)

	Logf("recording %s started", "abc")
	assert.Equal(t, []string{"recording abc started"}, *lines)

	SetLogger(nil)
	assert.NotPanics(t, func() { Logf("muted") })
	assert.Len(t, *lines, 1)
}

func TestComponentPrefixesLines(t *testing.T) {
	lines := capture(t)

	logf := Component("recorder")
	logf("pushed %d frames", 3)
	assert.Equal(t, []string{"[recorder] pushed 3 frames"}, *lines)
}

func TestComponentFollowsSetLogger(t *testing.T) {
	original := Logf
	t.Cleanup(func() { Logf = original })

	logf := Component("store")
	var got string
	SetLogger(func(format string, v ...interface{}) { got = fmt.Sprintf(format, v...) })
	logf("opened %s", "nocap.db")
	assert.Equal(t, "[store] opened nocap.db", got)
}

package progress

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRenderThrottlesUnforced(t *testing.T) {
	var buf bytes.Buffer
	ind := New(&buf)

	ind.Render("first", true)
	ind.Render("second", false)

	out := buf.String()
	assert.Contains(t, out, "first")
	assert.NotContains(t, out, "second")
}

func TestRenderAfterIntervalUpdates(t *testing.T) {
	var buf bytes.Buffer
	ind := New(&buf)
	ind.Render("first", true)
	ind.last = time.Now().Add(-2 * time.Second)
	ind.Render("second", false)

	assert.Contains(t, buf.String(), "second")
}

func TestRenderForceAlwaysUpdates(t *testing.T) {
	var buf bytes.Buffer
	ind := New(&buf)
	ind.Render("one", true)
	ind.Render("two", true)
	ind.Render("three", true)

	out := buf.String()
	assert.Contains(t, out, "one")
	assert.Contains(t, out, "two")
	assert.Contains(t, out, "three")
}

func TestFinishEndsWithNewline(t *testing.T) {
	var buf bytes.Buffer
	ind := New(&buf)
	ind.Render("working", true)
	ind.Finish()
	assert.Contains(t, buf.String(), "\n")
}

func TestRenderPadsShorterLine(t *testing.T) {
	var buf bytes.Buffer
	ind := New(&buf)
	ind.Render("a long status line", true)
	ind.last = time.Now().Add(-2 * time.Second)
	ind.Render("short", false)
	assert.Contains(t, buf.String(), "\rshort             ")
}

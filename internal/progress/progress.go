// Package progress renders the single-line, carriage-return-driven
// progress indicator printed during a sync session, throttled so a
// fast-moving worker pool doesn't flood the terminal.
package progress

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// minInterval is the shortest gap allowed between unforced renders: at
// most one unforced render per second.
const minInterval = time.Second

// Indicator renders status lines to w, overwriting the previous line
// with a carriage return. Callers share one Indicator across workers
// and are expected to hold the reconciler's shared lock around Render,
// the same lock guarding log writes and backup naming.
type Indicator struct {
	mu       sync.Mutex
	w        io.Writer
	last     time.Time
	lastLine string
}

// New returns an Indicator writing to w.
func New(w io.Writer) *Indicator {
	return &Indicator{w: w}
}

// Render prints line, overwriting the previous one, unless less than
// minInterval has passed since the last render and force is false.
func (ind *Indicator) Render(line string, force bool) {
	ind.mu.Lock()
	defer ind.mu.Unlock()
	now := time.Now()
	if !force && now.Sub(ind.last) < minInterval {
		return
	}
	ind.last = now
	pad := ""
	if len(ind.lastLine) > len(line) {
		pad = spaces(len(ind.lastLine) - len(line))
	}
	fmt.Fprintf(ind.w, "\r%s%s", line, pad)
	ind.lastLine = line
}

// Finish moves to a fresh line and resets the throttle, used once a
// session completes so the closing summary doesn't overwrite progress.
// It does not render a line of its own.
func (ind *Indicator) Finish() {
	ind.mu.Lock()
	defer ind.mu.Unlock()
	fmt.Fprintln(ind.w)
	ind.lastLine = ""
	ind.last = time.Time{}
}

func spaces(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = ' '
	}
	return string(b)
}

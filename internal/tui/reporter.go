package tui

import (
	"fmt"
	"io"
	"math"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
)

// Reporter receives compose pipeline events.
type Reporter interface {
	// Clip updates a clip row, keyed by the clip's plan index.
	Clip(key string, fields map[string]string)
	// Progress reports export progress in [0, 1].
	Progress(fraction float64)
}

// TeaReporter forwards events to a running bubbletea program.
type TeaReporter struct {
	send func(tea.Msg)
}

// NewTeaReporter wraps send, usually the callback given by RunWithWork.
func NewTeaReporter(send func(tea.Msg)) *TeaReporter {
	return &TeaReporter{send: send}
}

// Clip implements Reporter.
func (r *TeaReporter) Clip(key string, fields map[string]string) {
	r.send(RowUpdateMsg{Key: key, Fields: fields})
}

// Progress implements Reporter.
func (r *TeaReporter) Progress(fraction float64) {
	r.send(FractionMsg(fraction))
}

// PlainReporter writes status lines and whole-percent steps of progress.
type PlainReporter struct {
	w    io.Writer
	step int

	mu   sync.Mutex
	last int
}

// NewPlainReporter prints progress every step percent (10 when step <= 0).
func NewPlainReporter(w io.Writer, step int) *PlainReporter {
	if step <= 0 {
		step = 10
	}
	return &PlainReporter{w: w, step: step, last: -1}
}

// Clip implements Reporter.
func (r *PlainReporter) Clip(key string, fields map[string]string) {
	status := NonEmptyOrDash(fields["STATUS"])
	detail := fields["DETAIL"]
	r.mu.Lock()
	defer r.mu.Unlock()
	if detail != "" {
		fmt.Fprintf(r.w, "clip %s: %s (%s)\n", key, status, detail)
		return
	}
	fmt.Fprintf(r.w, "clip %s: %s\n", key, status)
}

// Progress implements Reporter.
func (r *PlainReporter) Progress(fraction float64) {
	pct := int(math.Floor(fraction * 100))
	r.mu.Lock()
	defer r.mu.Unlock()
	if pct < 100 && r.last >= 0 && pct < r.last+r.step {
		return
	}
	if pct <= r.last {
		return
	}
	r.last = pct
	fmt.Fprintf(r.w, "export %d%%\n", pct)
}

// NopReporter discards events.
type NopReporter struct{}

// Clip implements Reporter.
func (NopReporter) Clip(string, map[string]string) {}

// Progress implements Reporter.
func (NopReporter) Progress(float64) {}

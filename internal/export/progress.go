package export

import (
	"bytes"
	"strconv"
	"strings"
	"sync"
)

// maxRunningFraction keeps reported progress below 1 until the output file
// has been finalized.
const maxRunningFraction = 0.999

// ProgressFunc receives export progress in [0, 1].
type ProgressFunc func(fraction float64)

// progressWriter parses ffmpeg `-progress` key=value output and reports a
// non-decreasing fraction of total.
type progressWriter struct {
	totalUS  int64
	report   ProgressFunc
	mu       sync.Mutex
	buf      []byte
	last     float64
	finished bool
}

func newProgressWriter(totalUS int64, report ProgressFunc) *progressWriter {
	return &progressWriter{totalUS: totalUS, report: report, last: -1}
}

func (w *progressWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.buf = append(w.buf, p...)
	for {
		i := bytes.IndexByte(w.buf, '\n')
		if i < 0 {
			break
		}
		line := strings.TrimSpace(string(w.buf[:i]))
		w.buf = w.buf[i+1:]
		w.handle(line)
	}
	return len(p), nil
}

func (w *progressWriter) handle(line string) {
	key, value, ok := strings.Cut(line, "=")
	if !ok {
		return
	}
	switch key {
	case "out_time_us", "out_time_ms":
		// out_time_ms is also microseconds in ffmpeg's progress output.
		us, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
		if err != nil || w.totalUS <= 0 {
			return
		}
		w.emit(float64(us) / float64(w.totalUS))
	case "progress":
		if strings.TrimSpace(value) == "end" {
			w.finished = true
			w.emit(maxRunningFraction)
		}
	}
}

// emit clamps fraction and forwards it when it advances.
func (w *progressWriter) emit(fraction float64) {
	if fraction < 0 {
		fraction = 0
	}
	if fraction > maxRunningFraction {
		fraction = maxRunningFraction
	}
	if fraction <= w.last {
		return
	}
	w.last = fraction
	if w.report != nil {
		w.report(fraction)
	}
}

// start reports zero once so callers can draw an empty bar.
func (w *progressWriter) start() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.emit(0)
}

// Finished reports whether ffmpeg announced progress=end.
func (w *progressWriter) Finished() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.finished
}

package tui

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// Stage is a step of reading a media file before any composing happens.
type Stage int

const (
	// StageInspect reads container and stream headers.
	StageInspect Stage = iota
	// StageKeyframes reads packet flags of one video stream.
	StageKeyframes
)

func (s Stage) String() string {
	if s == StageKeyframes {
		return "keyframes"
	}
	return "inspect"
}

// ScanStatus reports inspect and keyframe-scan stages on a status line.
// A live status redraws a spinner line in place; otherwise each stage
// prints one summary line when the next begins or the status stops.
type ScanStatus struct {
	w    io.Writer
	live bool

	mu      sync.Mutex
	stage   Stage
	subject string
	streams int
	stream  int
	packets int
	started time.Time
	active  bool
	stopped bool
	done    chan struct{}
}

// NewScanStatus returns a status for w. When live is true a background
// spinner redraws the line every 100ms until Stop.
func NewScanStatus(w io.Writer, live bool) *ScanStatus {
	s := &ScanStatus{w: w, live: live, done: make(chan struct{})}
	if live {
		go s.loop()
	}
	return s
}

// Inspecting starts the inspect stage for locator.
func (s *ScanStatus) Inspecting(locator string) {
	s.begin(StageInspect, locator, 0)
}

// Streams records how many usable streams the inspected file has.
func (s *ScanStatus) Streams(n int) {
	s.mu.Lock()
	s.streams = n
	s.mu.Unlock()
}

// Scanning starts the keyframe stage for one stream of locator.
func (s *ScanStatus) Scanning(locator string, stream int) {
	s.begin(StageKeyframes, locator, stream)
}

// Packets records the running packet count of the keyframe stage. It fits
// keyframe.Options.Progress.
func (s *ScanStatus) Packets(n int) {
	s.mu.Lock()
	s.packets = n
	s.mu.Unlock()
}

// Stop ends the current stage and, for a live status, clears the line.
func (s *ScanStatus) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	summary := s.finishLocked()
	s.mu.Unlock()

	if s.live {
		close(s.done)
		fmt.Fprint(s.w, "\r\033[K")
		return
	}
	if summary != "" {
		fmt.Fprintln(s.w, summary)
	}
}

func (s *ScanStatus) begin(stage Stage, subject string, stream int) {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	summary := s.finishLocked()
	s.stage, s.subject, s.stream = stage, subject, stream
	s.packets = 0
	if stage == StageInspect {
		s.streams = 0
	}
	s.started = time.Now()
	s.active = true
	s.mu.Unlock()

	if !s.live && summary != "" {
		fmt.Fprintln(s.w, summary)
	}
}

// finishLocked closes the active stage and returns its summary line.
func (s *ScanStatus) finishLocked() string {
	if !s.active {
		return ""
	}
	s.active = false
	return s.describeLocked() + " (" + formatElapsed(time.Since(s.started)) + ")"
}

func (s *ScanStatus) describeLocked() string {
	switch s.stage {
	case StageKeyframes:
		return fmt.Sprintf("%s %s stream %d: %s scanned", s.stage, s.subject, s.stream, plural(s.packets, "packet"))
	default:
		if s.streams == 0 {
			return fmt.Sprintf("%s %s", s.stage, s.subject)
		}
		return fmt.Sprintf("%s %s: %s", s.stage, s.subject, plural(s.streams, "stream"))
	}
}

func (s *ScanStatus) loop() {
	tick := 0
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.mu.Lock()
			if s.active && !s.stopped {
				spinner := spinnerFrames[tick%len(spinnerFrames)]
				tick++
				fmt.Fprintf(s.w, "\r\033[K%s %s (%s)", spinner, s.describeLocked(), formatElapsed(time.Since(s.started)))
			}
			s.mu.Unlock()
		}
	}
}

func plural(n int, noun string) string {
	if n == 1 {
		return "1 " + noun
	}
	return fmt.Sprintf("%d %ss", n, noun)
}

// formatElapsed formats a duration for display in the status line.
func formatElapsed(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < 10*time.Second {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	return fmt.Sprintf("%dm%02ds", int(d.Minutes()), int(d.Seconds())%60)
}

package tui

import (
	"bytes"
	"io"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
)

func TestPlainReporterSteps(t *testing.T) {
	var buf bytes.Buffer
	r := NewPlainReporter(&buf, 25)
	for _, f := range []float64{0, 0.1, 0.26, 0.3, 0.51, 0.999, 1} {
		r.Progress(f)
	}
	want := "export 0%\nexport 26%\nexport 51%\nexport 99%\nexport 100%\n"
	if got := buf.String(); got != want {
		t.Errorf("progress output = %q, want %q", got, want)
	}
}

func TestPlainReporterClip(t *testing.T) {
	var buf bytes.Buffer
	r := NewPlainReporter(&buf, 0)
	r.Clip("001", map[string]string{"STATUS": "aligned", "DETAIL": "snapped to 2.002s"})
	r.Clip("002", map[string]string{})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %q", buf.String())
	}
	if lines[0] != "clip 001: aligned (snapped to 2.002s)" {
		t.Errorf("line 1 = %q", lines[0])
	}
	if lines[1] != "clip 002: -" {
		t.Errorf("line 2 = %q", lines[1])
	}
}

func TestTeaReporterSendsMessages(t *testing.T) {
	var got []tea.Msg
	r := NewTeaReporter(func(msg tea.Msg) { got = append(got, msg) })
	r.Clip("001", map[string]string{"STATUS": "extracted"})
	r.Progress(0.25)

	if len(got) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(got))
	}
	if row, ok := got[0].(RowUpdateMsg); !ok || row.Key != "001" || row.Fields["STATUS"] != "extracted" {
		t.Errorf("first message = %#v", got[0])
	}
	if frac, ok := got[1].(FractionMsg); !ok || float64(frac) != 0.25 {
		t.Errorf("second message = %#v", got[1])
	}
}

func TestDetectModeNonTerminal(t *testing.T) {
	var buf bytes.Buffer
	if mode := DetectMode(&buf, false, false); mode != ModePlain {
		t.Errorf("buffer mode = %v, want plain", mode)
	}
	if mode := DetectMode(&buf, false, true); mode != ModeJSON {
		t.Errorf("json flag mode = %v, want json", mode)
	}
	if mode := DetectMode(&buf, true, false); mode != ModePlain {
		t.Errorf("no-progress mode = %v, want plain", mode)
	}
}

func TestDetectModeInteractive(t *testing.T) {
	prev := Interactive
	Interactive = func(io.Writer) bool { return true }
	t.Cleanup(func() { Interactive = prev })

	var buf bytes.Buffer
	if mode := DetectMode(&buf, false, false); mode != ModeTUI {
		t.Errorf("interactive mode = %v, want tui", mode)
	}
	if mode := DetectMode(&buf, true, false); mode != ModePlain {
		t.Errorf("no-progress overrides terminal, got %v", mode)
	}
	if mode := DetectMode(&buf, true, true); mode != ModeJSON {
		t.Errorf("json overrides everything, got %v", mode)
	}
}

func TestOutputModeString(t *testing.T) {
	for mode, want := range map[OutputMode]string{ModeTUI: "tui", ModePlain: "plain", ModeJSON: "json"} {
		if got := mode.String(); got != want {
			t.Errorf("%d.String() = %q, want %q", int(mode), got, want)
		}
	}
}

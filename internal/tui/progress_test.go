package tui

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
)

func TestRowUpdateMsg(t *testing.T) {
	m := NewProgressModel("test", []Column{
		{Header: "INDEX", Width: 5},
		{Header: "STATUS", Width: 10},
		{Header: "RANGE", Width: 10},
	})
	m.AddRow("clip:001", []string{"001", "pending", "first"})
	m.AddRow("clip:002", []string{"002", "pending", "second"})

	updated, _ := m.Update(RowUpdateMsg{
		Key:    "clip:001",
		Fields: map[string]string{"STATUS": "extracted", "RANGE": "updated"},
	})
	m = updated.(ProgressModel)

	if m.rows[0].Fields[1] != "extracted" {
		t.Errorf("expected STATUS=extracted, got %q", m.rows[0].Fields[1])
	}
	if m.rows[0].Fields[2] != "updated" {
		t.Errorf("expected RANGE=updated, got %q", m.rows[0].Fields[2])
	}
	// Second row unchanged.
	if m.rows[1].Fields[1] != "pending" {
		t.Errorf("expected row 2 STATUS=pending, got %q", m.rows[1].Fields[1])
	}
}

func TestRowUpdateMsg_UnknownKey(t *testing.T) {
	m := NewProgressModel("test", []Column{
		{Header: "STATUS", Width: 10},
	})
	m.AddRow("clip:001", []string{"pending"})

	updated, _ := m.Update(RowUpdateMsg{
		Key:    "clip:999",
		Fields: map[string]string{"STATUS": "done"},
	})
	m = updated.(ProgressModel)

	if m.rows[0].Fields[0] != "pending" {
		t.Errorf("expected STATUS unchanged, got %q", m.rows[0].Fields[0])
	}
}

func TestWorkDoneMsg(t *testing.T) {
	m := NewProgressModel("test", []Column{
		{Header: "STATUS", Width: 10},
	})

	updated, cmd := m.Update(WorkDoneMsg{})
	m = updated.(ProgressModel)

	if !m.Done() {
		t.Error("expected Done() to be true after WorkDoneMsg")
	}
	if cmd == nil {
		t.Error("expected tea.Quit command")
	}
}

func TestErrorMsg(t *testing.T) {
	m := NewProgressModel("test", []Column{
		{Header: "STATUS", Width: 10},
	})

	updated, cmd := m.Update(ErrorMsg{Err: tea.ErrProgramKilled})
	m = updated.(ProgressModel)

	if !m.Done() {
		t.Error("expected Done() to be true after ErrorMsg")
	}
	if m.Err() == nil {
		t.Error("expected Err() to be non-nil")
	}
	if cmd == nil {
		t.Error("expected tea.Quit command")
	}
}

func TestView(t *testing.T) {
	m := NewProgressModel("test", []Column{
		{Header: "INDEX", Width: 5},
		{Header: "STATUS", Width: 10},
		{Header: "SOURCE", Width: 10},
	})
	m.AddRow("clip:001", []string{"001", "pending", "intro.mp4"})
	m.AddRow("clip:002", []string{"002", "extracted", "talk.mov"})

	view := m.View()

	if !strings.Contains(view, "INDEX") {
		t.Error("expected view to contain INDEX header")
	}
	if !strings.Contains(view, "STATUS") {
		t.Error("expected view to contain STATUS header")
	}
	if !strings.Contains(view, "SOURCE") {
		t.Error("expected view to contain SOURCE header")
	}
	if !strings.Contains(view, "001") {
		t.Error("expected view to contain row data 001")
	}
	if !strings.Contains(view, "intro.mp4") {
		t.Error("expected view to contain intro.mp4")
	}
	if !strings.Contains(view, "pending") {
		t.Error("expected view to contain pending status")
	}
	if !strings.Contains(view, "extracted") {
		t.Error("expected view to contain extracted status")
	}
}

func TestNonEmptyOrDash(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"", "-"},
		{"  ", "-"},
		{"hello", "hello"},
		{" hello ", "hello"},
	}
	for _, tt := range tests {
		got := NonEmptyOrDash(tt.input)
		if got != tt.want {
			t.Errorf("NonEmptyOrDash(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestTruncateWithEllipsis(t *testing.T) {
	tests := []struct {
		input string
		max   int
		want  string
	}{
		{"short", 10, "short"},
		{"a longer string here", 10, "a longe..."},
		{"abc", 3, "abc"},
		{"abcd", 3, "abc"},
		{"", 5, ""},
		{"hello", 0, ""},
	}
	for _, tt := range tests {
		got := TruncateWithEllipsis(tt.input, tt.max)
		if got != tt.want {
			t.Errorf("TruncateWithEllipsis(%q, %d) = %q, want %q", tt.input, tt.max, got, tt.want)
		}
	}
}

func TestTickMsg(t *testing.T) {
	m := NewProgressModel("test", []Column{
		{Header: "STATUS", Width: 10},
	})
	m.AddRow("clip:001", []string{"pending"})

	updated, cmd := m.Update(tickMsg{})
	m = updated.(ProgressModel)

	if m.tick != 1 {
		t.Errorf("expected tick=1 after tickMsg, got %d", m.tick)
	}
	if cmd == nil {
		t.Error("expected next tick command")
	}
}

func TestTickStopsAfterDone(t *testing.T) {
	m := NewProgressModel("test", []Column{
		{Header: "STATUS", Width: 10},
	})
	// Mark done first
	updated, _ := m.Update(WorkDoneMsg{})
	m = updated.(ProgressModel)

	// Tick after done should not schedule another
	updated, cmd := m.Update(tickMsg{})
	m = updated.(ProgressModel)

	if cmd != nil {
		t.Error("expected no tick command after done")
	}
}

func TestProgressCounts(t *testing.T) {
	m := NewProgressModel("test", []Column{
		{Header: "INDEX", Width: 5},
		{Header: "STATUS", Width: 10},
	})
	m.AddRow("clip:001", []string{"001", "pending"})
	m.AddRow("clip:002", []string{"002", "pending"})
	m.AddRow("clip:003", []string{"003", "aligned"})

	processed, total := m.progressCounts()
	if total != 3 {
		t.Errorf("expected total=3, got %d", total)
	}
	if processed != 1 {
		t.Errorf("expected processed=1, got %d", processed)
	}
}

func TestViewShowsSpinnerWhenNotDone(t *testing.T) {
	m := NewProgressModel("test", []Column{
		{Header: "STATUS", Width: 10},
	})
	m.AddRow("clip:001", []string{"pending"})

	view := m.View()
	if !strings.Contains(view, "Preparing") {
		t.Error("expected view to contain Preparing footer when not done")
	}
}

func TestViewHidesSpinnerWhenDone(t *testing.T) {
	m := NewProgressModel("test", []Column{
		{Header: "STATUS", Width: 10},
	})
	m.AddRow("clip:001", []string{"aligned"})
	updated, _ := m.Update(WorkDoneMsg{})
	m = updated.(ProgressModel)

	view := m.View()
	if strings.Contains(view, "Preparing") {
		t.Error("expected view to NOT contain Preparing footer when done")
	}
}

func TestCtrlC(t *testing.T) {
	m := NewProgressModel("test", []Column{
		{Header: "STATUS", Width: 10},
	})

	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	m = updated.(ProgressModel)

	if !m.Done() {
		t.Error("expected Done() to be true after ctrl+c")
	}
	if cmd == nil {
		t.Error("expected tea.Quit command")
	}
}

func TestFractionMsgShowsBar(t *testing.T) {
	m := NewProgressModel("export", []Column{
		{Header: "STATUS", Width: 10},
	})
	m.AddRow("clip:001", []string{"extracted"})

	updated, _ := m.Update(FractionMsg(0.5))
	m = updated.(ProgressModel)
	if m.Fraction() != 0.5 {
		t.Fatalf("expected fraction 0.5, got %v", m.Fraction())
	}

	view := m.View()
	if !strings.Contains(view, "50%") {
		t.Errorf("expected view to contain 50%%, got %q", view)
	}
	if strings.Contains(view, "Preparing") {
		t.Error("expected bar to replace the Preparing footer")
	}
}

func TestFractionMsgNeverMovesBackwards(t *testing.T) {
	m := NewProgressModel("export", nil)
	for _, f := range []float64{0.4, 0.2, 1.5} {
		updated, _ := m.Update(FractionMsg(f))
		m = updated.(ProgressModel)
	}
	if m.Fraction() != 1 {
		t.Errorf("expected fraction clamped to 1, got %v", m.Fraction())
	}
}

package tui

import (
	"io"
	"os"
	"runtime"
	"strings"

	"github.com/mattn/go-isatty"
)

// OutputMode describes how progress output should be rendered.
type OutputMode int

const (
	// ModeTUI redraws a clip table and export bar in place.
	ModeTUI OutputMode = iota
	// ModePlain writes one line per clip state and percentage step.
	ModePlain
	// ModeJSON suppresses progress; the command prints one JSON document.
	ModeJSON
)

func (m OutputMode) String() string {
	switch m {
	case ModeTUI:
		return "tui"
	case ModeJSON:
		return "json"
	default:
		return "plain"
	}
}

// DetectMode picks how a command renders progress to out. JSON output wins
// over everything; --no-progress and non-interactive writers get plain lines.
func DetectMode(out io.Writer, noProgress, jsonOutput bool) OutputMode {
	switch {
	case jsonOutput:
		return ModeJSON
	case noProgress, !Interactive(out):
		return ModePlain
	}
	return ModeTUI
}

// Interactive reports whether w is a terminal that can redraw a line in
// place. CI runners and dumb terminals are treated as non-interactive even
// when they allocate a tty.
var Interactive = func(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	if !isatty.IsTerminal(fd) && !isatty.IsCygwinTerminal(fd) {
		return false
	}
	if os.Getenv("CI") != "" {
		return false
	}
	if runtime.GOOS != "windows" {
		term := os.Getenv("TERM")
		if term == "" || strings.EqualFold(term, "dumb") {
			return false
		}
	}
	return true
}

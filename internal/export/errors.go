package export

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrExportSessionCreationFailed means the composition and preset cannot
	// be rendered together.
	ErrExportSessionCreationFailed = errors.New("export session creation failed")
	// ErrExportFailed means the encoder reported an error.
	ErrExportFailed = errors.New("export failed")
	// ErrExportCancelled means the caller stopped the export.
	ErrExportCancelled = errors.New("export cancelled")
)

// SessionError explains why an export could not start.
type SessionError struct {
	Preset string
	Reason string
}

func (e *SessionError) Error() string {
	if e.Preset != "" {
		return fmt.Sprintf("%s: preset %q: %s", ErrExportSessionCreationFailed, e.Preset, e.Reason)
	}
	return fmt.Sprintf("%s: %s", ErrExportSessionCreationFailed, e.Reason)
}

func (e *SessionError) Is(target error) bool { return target == ErrExportSessionCreationFailed }

// Error carries the encoder's diagnostic output unchanged in Reason.
type Error struct {
	Output string
	Reason string
	Err    error
}

func (e *Error) Error() string {
	reason := lastLines(e.Reason, 5)
	if reason == "" && e.Err != nil {
		reason = e.Err.Error()
	}
	return fmt.Sprintf("%s: %s: %s", ErrExportFailed, e.Output, reason)
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool { return target == ErrExportFailed }

// lastLines keeps the tail of a long ffmpeg log for the error string. The
// full text stays available in Error.Reason.
func lastLines(text string, n int) string {
	lines := strings.Split(strings.TrimSpace(text), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

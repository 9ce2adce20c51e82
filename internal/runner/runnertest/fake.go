// Package runnertest provides a scripted runner.Runner for tests.
package runnertest

import (
	"context"
	"path/filepath"
	"strings"
	"sync"

	"splicer/internal/runner"
)

// Call records one invocation.
type Call struct {
	Command string
	Args    []string
}

// HasArg reports whether the call contains arg.
func (c Call) HasArg(arg string) bool {
	for _, a := range c.Args {
		if a == arg {
			return true
		}
	}
	return false
}

// HasPair reports whether key is immediately followed by value.
func (c Call) HasPair(key, value string) bool {
	for i := 0; i < len(c.Args)-1; i++ {
		if c.Args[i] == key && c.Args[i+1] == value {
			return true
		}
	}
	return false
}

// Value returns the argument following key.
func (c Call) Value(key string) (string, bool) {
	for i := 0; i < len(c.Args)-1; i++ {
		if c.Args[i] == key {
			return c.Args[i+1], true
		}
	}
	return "", false
}

// HandlerFunc produces the outcome of a call. Anything it writes to
// opts.Stdout/opts.Stderr is seen by the caller as streamed output.
type HandlerFunc func(ctx context.Context, call Call, opts runner.Options) (runner.Result, error)

// Fake dispatches calls to Handler and records them.
type Fake struct {
	Handler HandlerFunc

	mu    sync.Mutex
	calls []Call
}

// Run implements runner.Runner.
func (f *Fake) Run(ctx context.Context, command string, args []string, opts runner.Options) (runner.Result, error) {
	call := Call{Command: command, Args: append([]string(nil), args...)}
	f.mu.Lock()
	f.calls = append(f.calls, call)
	f.mu.Unlock()

	if f.Handler == nil {
		return runner.Result{}, nil
	}
	res, err := f.Handler(ctx, call, opts)
	if opts.Stdout != nil && len(res.Stdout) > 0 {
		_, _ = opts.Stdout.Write(res.Stdout)
	}
	if opts.Stderr != nil && len(res.Stderr) > 0 {
		_, _ = opts.Stderr.Write(res.Stderr)
	}
	return res, err
}

// Calls returns a copy of the recorded calls.
func (f *Fake) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Call(nil), f.calls...)
}

// CallsTo returns the calls whose command base name is tool.
func (f *Fake) CallsTo(tool string) []Call {
	var out []Call
	for _, c := range f.Calls() {
		base := strings.TrimSuffix(filepath.Base(c.Command), ".exe")
		if base == tool {
			out = append(out, c)
		}
	}
	return out
}

var _ runner.Runner = (*Fake)(nil)

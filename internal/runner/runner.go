// Package runner executes external media tools (ffmpeg, ffprobe) behind an
// interface so callers can substitute recorded output in tests.
package runner

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"runtime"
	"time"
)

// DefaultGrace is how long a cancelled process gets to exit after an
// interrupt before it is killed.
const DefaultGrace = 2 * time.Second

// Options controls a single command invocation.
type Options struct {
	Dir    string
	Env    []string
	Stdout io.Writer
	Stderr io.Writer

	// Grace overrides DefaultGrace. Negative kills immediately.
	Grace time.Duration
}

// Result holds everything the command wrote. Output is also teed to the
// writers in Options as it arrives.
type Result struct {
	Stdout []byte
	Stderr []byte
}

// Runner starts a command and waits for it to exit. Implementations must
// stop the process when ctx is cancelled.
type Runner interface {
	Run(ctx context.Context, command string, args []string, opts Options) (Result, error)
}

// Exec runs real processes via os/exec.
type Exec struct{}

// Run starts command and blocks until it exits or ctx is done. When ctx is
// cancelled the returned error wraps ctx.Err().
func (Exec) Run(ctx context.Context, command string, args []string, opts Options) (Result, error) {
	cmd := exec.CommandContext(ctx, command, args...)
	grace := opts.Grace
	if grace == 0 {
		grace = DefaultGrace
	}
	// ffmpeg finalizes (or abandons) its output cleanly on SIGINT; escalate
	// to SIGKILL once the grace period runs out.
	if grace > 0 && runtime.GOOS != "windows" {
		cmd.Cancel = func() error { return cmd.Process.Signal(os.Interrupt) }
		cmd.WaitDelay = grace
	}
	if opts.Dir != "" {
		cmd.Dir = opts.Dir
	}
	if len(opts.Env) > 0 {
		cmd.Env = append(os.Environ(), opts.Env...)
	}

	var stdoutBuf, stderrBuf bytes.Buffer

	stdoutWriter := io.Writer(&stdoutBuf)
	if opts.Stdout != nil {
		stdoutWriter = io.MultiWriter(&stdoutBuf, opts.Stdout)
	}
	stderrWriter := io.Writer(&stderrBuf)
	if opts.Stderr != nil {
		stderrWriter = io.MultiWriter(&stderrBuf, opts.Stderr)
	}

	cmd.Stdout = stdoutWriter
	cmd.Stderr = stderrWriter

	err := cmd.Run()
	if err != nil && ctx.Err() != nil {
		err = errors.Join(ctx.Err(), err)
	}
	return Result{Stdout: stdoutBuf.Bytes(), Stderr: stderrBuf.Bytes()}, err
}

var _ Runner = Exec{}

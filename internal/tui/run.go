package tui

import (
	"context"
	"errors"
	"io"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// RunWithWork creates a bubbletea program, launches work in a goroutine,
// and blocks until both the program and the work have finished. Quitting
// the program (ctrl+c or q) cancels the context handed to work. A work
// error is shown by the model and returned.
func RunWithWork(ctx context.Context, out io.Writer, model ProgressModel, work func(ctx context.Context, r Reporter) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(model, tea.WithOutput(out), tea.WithContext(ctx))
	workErr := make(chan error, 1)

	go func() {
		// Let bubbletea start its event loop and render the initial frame.
		time.Sleep(50 * time.Millisecond)

		err := work(ctx, NewTeaReporter(func(msg tea.Msg) {
			p.Send(msg)
			// Yield so the renderer can draw between row updates.
			time.Sleep(2 * time.Millisecond)
		}))
		if err != nil {
			p.Send(ErrorMsg{Err: err})
		} else {
			p.Send(WorkDoneMsg{})
		}
		workErr <- err
	}()

	_, runErr := p.Run()
	// Quitting early stops the work; wait for it so callers see its result.
	cancel()
	err := <-workErr
	if err != nil {
		return err
	}
	if runErr != nil && !errors.Is(runErr, tea.ErrProgramKilled) {
		return runErr
	}
	return nil
}

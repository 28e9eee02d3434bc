package tui

import (
	"context"
	"errors"
	"io"

	tea "github.com/charmbracelet/bubbletea"
)

// ErrCanceled is returned by Run when the user quits the view before the
// work finishes.
var ErrCanceled = errors.New("canceled")

// Run renders model on out while work executes, and returns work's error.
// work reports progress through send; the view closes once work returns.
func Run(ctx context.Context, out io.Writer, model ProgressModel, work func(send func(tea.Msg)) error) error {
	p := tea.NewProgram(model, tea.WithOutput(out), tea.WithContext(ctx))

	workErr := make(chan error, 1)
	go func() {
		workErr <- work(p.Send)
		p.Send(WorkDoneMsg{})
	}()

	final, err := p.Run()
	if err != nil {
		return err
	}
	if m, ok := final.(ProgressModel); ok && m.Err() != nil {
		return m.Err()
	}
	return <-workErr
}

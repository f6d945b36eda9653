package survey

import (
	"context"
	"errors"

	"prefsurvey/internal/logging"
	"prefsurvey/internal/submit"

	tea "github.com/charmbracelet/bubbletea"
)

var errNoPoolSource = errors.New("no question source configured")

// loadCmd builds the pool off the UI goroutine.
func loadCmd(ctx context.Context, load PoolFunc, form string) tea.Cmd {
	return func() tea.Msg {
		if load == nil {
			return poolLoadedMsg{err: errNoPoolSource}
		}
		timer := logging.StartTimer(logging.CategoryUI, "load pool")
		defer timer.Stop()
		items, err := load(ctx, form)
		return poolLoadedMsg{items: items, err: err}
	}
}

// sendCmd delivers one payload. The result is reported whatever happened;
// the session decides whether a failure blocks the respondent.
func sendCmd(ctx context.Context, d submit.Dispatcher, p submit.Payload) tea.Cmd {
	return func() tea.Msg {
		return dispatchDoneMsg{err: d.Send(ctx, p)}
	}
}

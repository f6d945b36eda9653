package survey

import (
	"errors"

	"prefsurvey/internal/pool"
	"prefsurvey/internal/session"
	"prefsurvey/internal/submit"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

// Update routes messages to the handler for the session's current screen.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case poolLoadedMsg:
		return m.handlePoolLoaded(msg)

	case dispatchDoneMsg:
		return m.handleDispatchDone(msg)

	case tea.KeyMsg:
		if key.Matches(msg, m.keys.ForceQ) {
			m.Shutdown()
			return m, tea.Quit
		}
		if key.Matches(msg, m.keys.Help) && m.sess.Screen() != session.ScreenIdentify {
			m.help.ShowAll = !m.help.ShowAll
			return m, nil
		}

		switch m.sess.Screen() {
		case session.ScreenEntry:
			return m.handleEntryKey(msg)
		case session.ScreenIdentify:
			return m.handleIdentifyKey(msg)
		case session.ScreenSelectForm:
			return m.handleSelectFormKey(msg)
		case session.ScreenLoading:
			return m.handleLoadingKey(msg)
		case session.ScreenReview:
			return m.handleReviewKey(msg)
		case session.ScreenConfirm:
			return m.handleConfirmKey(msg)
		case session.ScreenComplete:
			if key.Matches(msg, m.keys.Quit, m.keys.Start) {
				m.Shutdown()
				return m, tea.Quit
			}
		}
		return m, nil
	}

	// Cursor blink and other component messages.
	if m.sess.Screen() == session.ScreenIdentify {
		var cmd tea.Cmd
		m.email, cmd = m.email.Update(msg)
		return m, cmd
	}
	return m, nil
}

// =============================================================================
// KEY HANDLERS
// =============================================================================

func (m Model) handleEntryKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.Shutdown()
		return m, tea.Quit
	case key.Matches(msg, m.keys.Start):
		if err := m.sess.Start(); err != nil {
			m.notice = err.Error()
			return m, nil
		}
		return m, m.email.Focus()
	}
	return m, nil
}

func (m Model) handleIdentifyKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type != tea.KeyEnter {
		m.notice = ""
		var cmd tea.Cmd
		m.email, cmd = m.email.Update(msg)
		return m, cmd
	}

	if err := m.sess.Identify(m.email.Value()); err != nil {
		var ve *session.ValidationError
		if errors.As(err, &ve) {
			m.notice = ve.Message
		} else {
			m.notice = err.Error()
		}
		return m, nil
	}
	m.notice = ""
	m.email.Blur()
	m.log.Info("respondent identified; next screen %s", m.sess.Screen())

	if m.sess.Screen() == session.ScreenLoading {
		return m, m.startLoad()
	}
	return m, nil
}

func (m Model) handleSelectFormKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.Shutdown()
		return m, tea.Quit
	case msg.Type == tea.KeyEnter:
		selected, ok := m.forms.SelectedItem().(formItem)
		if !ok {
			return m, nil
		}
		if err := m.sess.ChooseForm(selected.key); err != nil {
			m.notice = err.Error()
			return m, nil
		}
		m.notice = ""
		return m, m.startLoad()
	}
	var cmd tea.Cmd
	m.forms, cmd = m.forms.Update(msg)
	return m, cmd
}

func (m Model) handleLoadingKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.Shutdown()
		return m, tea.Quit
	case key.Matches(msg, m.keys.Retry) && m.sess.LoadErr() != nil:
		m.log.Info("retrying pool load for form %q", m.sess.Form())
		return m, m.startLoad()
	}
	return m, nil
}

func (m Model) handleReviewKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Every control is disabled while a delivery is in flight.
	if m.sess.Pending() {
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.PickA):
		m.record(pool.SlotA)
	case key.Matches(msg, m.keys.PickB):
		m.record(pool.SlotB)
	case key.Matches(msg, m.keys.Left, m.keys.Right):
		m.focus = m.focus.Other()
	case key.Matches(msg, m.keys.Select):
		m.record(m.focus)
	case key.Matches(msg, m.keys.Next):
		return m.advance()
	case key.Matches(msg, m.keys.Back):
		if !m.sess.CanBack() {
			return m, nil
		}
		if err := m.sess.Back(); err != nil {
			m.notice = err.Error()
			return m, nil
		}
		m.afterMove()
	case key.Matches(msg, m.keys.Force):
		if m.sess.SubmitErr() != nil {
			m.forceComplete()
		}
	case key.Matches(msg, m.keys.Up, m.keys.Down):
		for i := range m.panels {
			m.panels[i], _ = m.panels[i].Update(msg)
		}
	}
	return m, nil
}

func (m Model) handleConfirmKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.sess.Pending() {
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Confirm):
		d, err := m.sess.Submit()
		if err != nil {
			m.notice = err.Error()
			return m, nil
		}
		if d == nil {
			m.notice = ""
			return m, nil
		}
		return m, m.dispatch(d)
	case key.Matches(msg, m.keys.Revise):
		if err := m.sess.Revise(); err != nil {
			m.notice = err.Error()
			return m, nil
		}
		m.afterMove()
	case key.Matches(msg, m.keys.Force):
		if m.sess.SubmitErr() != nil {
			m.forceComplete()
		}
	}
	return m, nil
}

// =============================================================================
// ASYNC RESULTS
// =============================================================================

func (m Model) handlePoolLoaded(msg poolLoadedMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		m.sess.LoadFailed(msg.err)
		return m, nil
	}
	if err := m.sess.PoolLoaded(msg.items); err != nil {
		return m, nil
	}
	m.log.Info("pool ready: %d items", len(msg.items))
	m.afterMove()
	return m, nil
}

func (m Model) handleDispatchDone(msg dispatchDoneMsg) (tea.Model, tea.Cmd) {
	if err := m.sess.Settle(msg.err); err != nil {
		m.log.Warn("unexpected dispatch result: %v", err)
		return m, nil
	}
	if err := m.sess.SubmitErr(); err != nil {
		m.notice = "Submission failed: " + submit.Describe(err)
		return m, nil
	}
	m.afterMove()
	return m, nil
}

// =============================================================================
// HELPERS
// =============================================================================

func (m *Model) record(slot pool.Slot) {
	if err := m.sess.RecordCurrent(slot); err != nil {
		m.notice = err.Error()
		return
	}
	m.focus = slot
	m.notice = ""
}

func (m Model) advance() (tea.Model, tea.Cmd) {
	if !m.sess.CanAdvance() {
		m.notice = "Please choose a response before continuing."
		return m, nil
	}
	d, err := m.sess.Advance()
	if err != nil {
		m.notice = err.Error()
		return m, nil
	}
	if d == nil {
		m.afterMove()
		return m, nil
	}
	return m, m.dispatch(d)
}

// dispatch hands d to the dispatcher, or aborts it when no endpoint is
// configured so the respondent sees why nothing was sent.
func (m *Model) dispatch(d *session.Dispatch) tea.Cmd {
	var err error
	if m.cfg.Dispatcher == nil {
		err = submit.ErrNotConfigured
	} else {
		err = m.cfg.Dispatcher.Ready()
	}
	if err != nil {
		m.sess.Abort(err)
		m.notice = "Submission blocked: " + submit.Describe(err)
		return nil
	}
	m.notice = ""
	return sendCmd(m.ctx, m.cfg.Dispatcher, submit.NewPayload(d))
}

func (m *Model) forceComplete() {
	if err := m.sess.ForceComplete(); err != nil {
		m.notice = err.Error()
		return
	}
	m.notice = ""
}

func (m *Model) startLoad() tea.Cmd {
	if err := m.sess.BeginLoad(); err != nil {
		m.notice = err.Error()
		return nil
	}
	return loadCmd(m.ctx, m.cfg.LoadPool, m.sess.Form())
}

// afterMove resets per-item UI state after the cursor or screen changed.
func (m *Model) afterMove() {
	m.notice = ""
	if m.sess.Screen() != session.ScreenReview {
		return
	}
	m.focus = pool.SlotA
	if it, ok := m.sess.Current(); ok {
		if r, ok := m.sess.Response(it.ID); ok {
			m.focus = r.Slot
		}
	}
	m.renderPanels()
}

package survey

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"prefsurvey/cmd/prefsurvey/ui"
	"prefsurvey/internal/pool"
	"prefsurvey/internal/session"
	"prefsurvey/internal/submit"

	"github.com/charmbracelet/bubbles/cursor"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/ansi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// TEST HARNESS
// =============================================================================

type fakeDispatcher struct {
	readyErr error
	errs     []error
	sent     []submit.Payload
}

func (f *fakeDispatcher) Ready() error { return f.readyErr }

func (f *fakeDispatcher) Send(_ context.Context, p submit.Payload) error {
	f.sent = append(f.sent, p)
	if len(f.errs) == 0 {
		return nil
	}
	err := f.errs[0]
	f.errs = f.errs[1:]
	return err
}

type testOption func(*Config)

func withFlow(flow session.Flow) testOption {
	return func(c *Config) { c.Session.Flow = flow }
}

func withLoader(fn PoolFunc) testOption {
	return func(c *Config) { c.LoadPool = fn }
}

func withDispatcher(d submit.Dispatcher) testOption {
	return func(c *Config) { c.Dispatcher = d }
}

func makeItems(n int) []pool.Item {
	items := make([]pool.Item, n)
	for i := range items {
		items[i] = pool.Item{
			ID:       pool.ItemID("before", i),
			Question: fmt.Sprintf("Question text %d", i+1),
			Slots: map[pool.Slot]pool.Candidate{
				pool.SlotA: {Model: "GPT-4o", Text: "**Answer** from the first model"},
				pool.SlotB: {Model: "Claude-4.5-Haiku", Text: "Answer from the second model"},
			},
			Group: "before",
		}
	}
	return items
}

// newTestModel builds a sized model with a static cursor so no blink
// commands are produced.
func newTestModel(t *testing.T, opts ...testOption) (Model, *fakeDispatcher) {
	t.Helper()
	disp := &fakeDispatcher{}
	cfg := Config{
		Session: session.Options{
			Flow:        session.Flow{AllowBack: true, Delivery: session.DeliveryPerItem},
			EmailDomain: "graas.ai",
			Forms: []session.Form{
				{Key: "entire", Label: "Entire Workflow Response Form"},
				{Key: "final", Label: "Final Response Form"},
			},
		},
		LoadPool: func(context.Context, string) ([]pool.Item, error) {
			return makeItems(3), nil
		},
		Dispatcher: disp,
		Styles:     ui.NewStyles(ui.LightTheme()),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	m := New(cfg)
	m.email.Cursor.SetMode(cursor.CursorStatic)
	t.Cleanup(m.Shutdown)
	return drive(t, m, tea.WindowSizeMsg{Width: 120, Height: 40}), disp
}

// drive applies msg and then runs the load/dispatch commands it produces
// until the model settles.
func drive(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, cmd := m.Update(msg)
	m = next.(Model)
	for i := 0; cmd != nil && i < 10; i++ {
		out := cmd()
		switch out.(type) {
		case poolLoadedMsg, dispatchDoneMsg:
			next, cmd = m.Update(out)
			m = next.(Model)
		default:
			cmd = nil
		}
	}
	return m
}

func keyRunes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

var enter = tea.KeyMsg{Type: tea.KeyEnter}

// view renders m without styling escapes.
func view(m Model) string {
	return ansi.Strip(m.View())
}

// toReview walks the entry and identify screens with a valid address.
func toReview(t *testing.T, m Model) Model {
	t.Helper()
	m = drive(t, m, enter)
	m = drive(t, m, keyRunes("ana@graas.ai"))
	m = drive(t, m, enter)
	require.Equal(t, session.ScreenReview, m.Session().Screen())
	return m
}

// =============================================================================
// ENTRY / IDENTIFY / SELECT-FORM / LOADING
// =============================================================================

func TestIdentify_RejectsThenAccepts(t *testing.T) {
	m, _ := newTestModel(t)
	assert.Contains(t, view(m), "Press enter to begin")

	m = drive(t, m, enter)
	require.Equal(t, session.ScreenIdentify, m.Session().Screen())

	m = drive(t, m, keyRunes("not-an-email"))
	m = drive(t, m, enter)
	assert.Equal(t, session.ScreenIdentify, m.Session().Screen())
	assert.Contains(t, view(m), "Please enter a valid email address")

	m.email.SetValue("ana@example.com")
	m = drive(t, m, enter)
	assert.Equal(t, session.ScreenIdentify, m.Session().Screen())
	assert.Contains(t, view(m), "You are not part of our organization")

	m.email.SetValue("ana@graas.ai")
	m = drive(t, m, enter)
	assert.Equal(t, session.ScreenReview, m.Session().Screen())
	assert.Empty(t, m.notice)
	assert.Contains(t, view(m), "ana@graas.ai")
}

func TestSelectForm_ChoosesHighlightedForm(t *testing.T) {
	var loaded string
	m, _ := newTestModel(t,
		withFlow(session.Flow{ChooseForm: true, Delivery: session.DeliveryPerItem}),
		withLoader(func(_ context.Context, form string) ([]pool.Item, error) {
			loaded = form
			return makeItems(2), nil
		}),
	)
	m = drive(t, m, enter)
	m = drive(t, m, keyRunes("ana@graas.ai"))
	m = drive(t, m, enter)
	require.Equal(t, session.ScreenSelectForm, m.Session().Screen())
	assert.Contains(t, view(m), "Final Response Form")

	m = drive(t, m, tea.KeyMsg{Type: tea.KeyDown})
	m = drive(t, m, enter)
	assert.Equal(t, "final", loaded)
	assert.Equal(t, "final", m.Session().Form())
	assert.Equal(t, session.ScreenReview, m.Session().Screen())
}

func TestLoading_FailureThenRetry(t *testing.T) {
	calls := 0
	m, _ := newTestModel(t, withLoader(func(context.Context, string) ([]pool.Item, error) {
		calls++
		if calls == 1 {
			return nil, &pool.LoadError{Group: "before", Source: "before.xlsx", Err: errors.New("connection refused")}
		}
		return makeItems(2), nil
	}))
	m = drive(t, m, enter)
	m = drive(t, m, keyRunes("ana@graas.ai"))
	m = drive(t, m, enter)

	require.Equal(t, session.ScreenLoading, m.Session().Screen())
	require.Error(t, m.Session().LoadErr())
	assert.Contains(t, view(m), "Unable to load questions")

	m = drive(t, m, keyRunes("r"))
	assert.Equal(t, 2, calls)
	assert.Equal(t, session.ScreenReview, m.Session().Screen())
	assert.Contains(t, view(m), "Question 1 of 2 · 50% Complete")
}

func TestLoading_EmptyPoolStaysOnLoading(t *testing.T) {
	m, _ := newTestModel(t, withLoader(func(context.Context, string) ([]pool.Item, error) {
		return nil, nil
	}))
	m = drive(t, m, enter)
	m = drive(t, m, keyRunes("ana@graas.ai"))
	m = drive(t, m, enter)

	assert.Equal(t, session.ScreenLoading, m.Session().Screen())
	assert.ErrorIs(t, m.Session().LoadErr(), pool.ErrEmptyPool)
}

// =============================================================================
// REVIEW
// =============================================================================

func TestReview_PerItemWalkthrough(t *testing.T) {
	m, disp := newTestModel(t)
	m = toReview(t, m)
	assert.Contains(t, view(m), "Question 1 of 3 · 33% Complete")
	assert.Contains(t, view(m), "Question text 1")

	for i, choice := range []string{"a", "b", "a"} {
		m = drive(t, m, keyRunes(choice))
		m = drive(t, m, enter)
		require.Len(t, disp.sent, i+1)
	}

	assert.Equal(t, session.ScreenComplete, m.Session().Screen())
	models := make([]string, 0, len(disp.sent))
	for _, p := range disp.sent {
		require.Len(t, p.Responses, 1)
		assert.Equal(t, "ana@graas.ai", p.Email)
		assert.Equal(t, "before", p.Responses[0].Sheet)
		models = append(models, p.Responses[0].PreferredModel)
	}
	assert.Equal(t, []string{"GPT-4o", "Claude-4.5-Haiku", "GPT-4o"}, models)
	assert.Contains(t, view(m), "Thank you! Your responses have been recorded.")
	assert.NotContains(t, view(m), "could not be delivered")
}

func TestReview_TransportFailuresDoNotBlock(t *testing.T) {
	fail := &submit.TransportError{Op: "post responses", Err: errors.New("network unreachable")}
	disp := &fakeDispatcher{errs: []error{fail, fail, fail}}
	m, _ := newTestModel(t, withDispatcher(disp))
	m = toReview(t, m)

	for range 3 {
		m = drive(t, m, keyRunes("b"))
		m = drive(t, m, enter)
		assert.Empty(t, m.notice, "per-item failures stay out of the respondent's way")
	}

	assert.Len(t, disp.sent, 3)
	assert.Equal(t, session.ScreenComplete, m.Session().Screen())
	assert.Contains(t, view(m), "3 responses could not be delivered")
	assert.Contains(t, view(m), "Some responses were not recorded.")
	assert.NotContains(t, view(m), "Your responses have been recorded.")
}

func TestReview_AdvanceRequiresChoice(t *testing.T) {
	m, disp := newTestModel(t)
	m = toReview(t, m)

	m = drive(t, m, enter)
	assert.Equal(t, 0, m.Session().Cursor())
	assert.Empty(t, disp.sent)
	assert.Contains(t, view(m), "Please choose a response before continuing.")

	m = drive(t, m, keyRunes("a"))
	assert.Empty(t, m.notice)
}

func TestReview_FocusAndSpaceSelect(t *testing.T) {
	m, _ := newTestModel(t)
	m = toReview(t, m)

	m = drive(t, m, tea.KeyMsg{Type: tea.KeyRight})
	assert.Equal(t, pool.SlotB, m.focus)
	m = drive(t, m, tea.KeyMsg{Type: tea.KeySpace})

	it, _ := m.Session().Current()
	r, ok := m.Session().Response(it.ID)
	require.True(t, ok)
	assert.Equal(t, pool.SlotB, r.Slot)
	assert.Contains(t, view(m), "preferred")

	// Changing the choice replaces it.
	m = drive(t, m, keyRunes("a"))
	r, _ = m.Session().Response(it.ID)
	assert.Equal(t, pool.SlotA, r.Slot)
}

func TestReview_PendingDisablesControls(t *testing.T) {
	m, disp := newTestModel(t)
	m = toReview(t, m)
	m = drive(t, m, keyRunes("a"))

	next, cmd := m.Update(enter)
	m = next.(Model)
	require.NotNil(t, cmd)
	require.True(t, m.Session().Pending())
	assert.Contains(t, view(m), "Saving…")

	next, extra := m.Update(keyRunes("b"))
	m = next.(Model)
	assert.Nil(t, extra)
	next, extra = m.Update(enter)
	m = next.(Model)
	assert.Nil(t, extra, "no second dispatch while one is in flight")

	it, _ := m.Session().Current()
	r, _ := m.Session().Response(it.ID)
	assert.Equal(t, pool.SlotA, r.Slot)

	next, _ = m.Update(cmd())
	m = next.(Model)
	assert.False(t, m.Session().Pending())
	assert.Equal(t, 1, m.Session().Cursor())
	assert.Len(t, disp.sent, 1)
}

func TestReview_NotConfiguredBlocksSubmission(t *testing.T) {
	disp := &fakeDispatcher{readyErr: submit.CheckEndpoint(submit.Placeholder)}
	m, _ := newTestModel(t, withDispatcher(disp))
	m = toReview(t, m)

	m = drive(t, m, keyRunes("a"))
	m = drive(t, m, enter)

	assert.Empty(t, disp.sent, "nothing is sent to a placeholder endpoint")
	assert.Equal(t, 0, m.Session().Cursor())
	assert.False(t, m.Session().Pending())
	assert.ErrorIs(t, m.Session().SubmitErr(), submit.ErrNotConfigured)
	assert.Contains(t, view(m), "Submission blocked")
}

func TestReview_ForceAfterBlockedSubmissionEndsEarly(t *testing.T) {
	disp := &fakeDispatcher{readyErr: submit.CheckEndpoint(submit.Placeholder)}
	m, _ := newTestModel(t, withDispatcher(disp))
	m = toReview(t, m)

	m = drive(t, m, keyRunes("a"))
	m = drive(t, m, enter)
	require.ErrorIs(t, m.Session().SubmitErr(), submit.ErrNotConfigured)

	m = drive(t, m, keyRunes("f"))
	require.Equal(t, session.ScreenComplete, m.Session().Screen())
	assert.Empty(t, disp.sent)

	out := view(m)
	assert.Contains(t, out, "Survey ended early.")
	assert.Contains(t, out, "1 of 3 questions answered.")
	assert.Contains(t, out, "1 responses could not be delivered.")
	assert.NotContains(t, out, "Your responses have been recorded.")
}

func TestReview_BackDoesNotResendUnchanged(t *testing.T) {
	m, disp := newTestModel(t)
	m = toReview(t, m)

	m = drive(t, m, keyRunes("b"))
	m = drive(t, m, enter)
	require.Equal(t, 1, m.Session().Cursor())

	m = drive(t, m, keyRunes("p"))
	assert.Equal(t, 0, m.Session().Cursor())
	assert.Equal(t, pool.SlotB, m.focus, "focus follows the recorded choice")

	m = drive(t, m, enter)
	assert.Equal(t, 1, m.Session().Cursor())
	assert.Len(t, disp.sent, 1)
}

// =============================================================================
// CONFIRM / COMPLETE
// =============================================================================

func TestConfirm_BatchRetryAfterFailure(t *testing.T) {
	disp := &fakeDispatcher{errs: []error{
		&submit.TransportError{Op: "post responses", Err: errors.New("timeout")},
	}}
	m, _ := newTestModel(t,
		withFlow(session.Flow{Confirm: true, AllowBack: true, Delivery: session.DeliveryBatch}),
		withDispatcher(disp),
	)
	m = toReview(t, m)
	for range 3 {
		m = drive(t, m, keyRunes("a"))
		m = drive(t, m, enter)
	}
	require.Equal(t, session.ScreenConfirm, m.Session().Screen())
	assert.Empty(t, disp.sent, "batch mode sends nothing before the final submit")
	assert.Contains(t, view(m), "Review your choices")

	m = drive(t, m, enter)
	assert.Equal(t, session.ScreenConfirm, m.Session().Screen())
	assert.Contains(t, view(m), "Submission failed: could not reach the endpoint: timeout")
	assert.Contains(t, view(m), "finish anyway")

	m = drive(t, m, enter)
	assert.Equal(t, session.ScreenComplete, m.Session().Screen())
	require.Len(t, disp.sent, 2)
	assert.Len(t, disp.sent[1].Responses, 3)
}

func TestConfirm_ReviseAndForce(t *testing.T) {
	fail := &submit.TransportError{Op: "post responses", Err: errors.New("offline")}
	disp := &fakeDispatcher{errs: []error{fail}}
	m, _ := newTestModel(t,
		withFlow(session.Flow{Confirm: true, AllowBack: true, Delivery: session.DeliveryBatch}),
		withDispatcher(disp),
	)
	m = toReview(t, m)
	for range 3 {
		m = drive(t, m, keyRunes("b"))
		m = drive(t, m, enter)
	}

	m = drive(t, m, keyRunes("p"))
	require.Equal(t, session.ScreenReview, m.Session().Screen())
	assert.Equal(t, 2, m.Session().Cursor())

	m = drive(t, m, enter)
	require.Equal(t, session.ScreenConfirm, m.Session().Screen())

	// f only works after a failed submit.
	m = drive(t, m, keyRunes("f"))
	assert.Equal(t, session.ScreenConfirm, m.Session().Screen())

	m = drive(t, m, enter)
	require.Error(t, m.Session().SubmitErr())
	m = drive(t, m, keyRunes("f"))
	assert.Equal(t, session.ScreenComplete, m.Session().Screen())
	assert.Contains(t, view(m), "3 responses could not be delivered")
}

func TestComplete_QuitKeys(t *testing.T) {
	m, _ := newTestModel(t)
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	require.NotNil(t, cmd)
	assert.Equal(t, tea.QuitMsg{}, cmd())

	m = toReview(t, m)
	for range 3 {
		m = drive(t, m, keyRunes("a"))
		m = drive(t, m, enter)
	}
	require.Equal(t, session.ScreenComplete, m.Session().Screen())
	_, cmd = m.Update(keyRunes("q"))
	require.NotNil(t, cmd)
	assert.Equal(t, tea.QuitMsg{}, cmd())
}

func TestView_NarrowTerminalStacksPanels(t *testing.T) {
	m, _ := newTestModel(t)
	m = toReview(t, m)
	m = drive(t, m, tea.WindowSizeMsg{Width: 80, Height: 40})

	assert.False(t, m.layout.SideBySide)
	out := view(m)
	assert.Contains(t, out, "Model A")
	assert.Contains(t, out, "Model B")
	assert.Contains(t, out, "Answer from the second model")
}

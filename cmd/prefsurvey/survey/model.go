// Package survey implements the interactive terminal client: a bubbletea
// program that walks one respondent through the preference survey.
//
// The Model owns the UI components only. Every screen decision is delegated to
// a session.Session; the model renders whatever screen the session is on and
// turns key presses into session actions. Pool loading and response delivery
// run as tea.Cmds so the UI keeps spinning while they are in flight.
package survey

import (
	"context"

	"prefsurvey/cmd/prefsurvey/ui"
	"prefsurvey/internal/logging"
	"prefsurvey/internal/pool"
	"prefsurvey/internal/session"
	"prefsurvey/internal/submit"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
)

// PoolFunc builds the question pool for a form. It is called again on retry.
type PoolFunc func(ctx context.Context, form string) ([]pool.Item, error)

// Config holds everything the survey client needs from the command layer.
type Config struct {
	Session    session.Options
	LoadPool   PoolFunc
	Dispatcher submit.Dispatcher
	Styles     ui.Styles
}

// =============================================================================
// MESSAGES
// =============================================================================

// poolLoadedMsg carries the result of a pool load.
type poolLoadedMsg struct {
	items []pool.Item
	err   error
}

// dispatchDoneMsg carries the outcome of the outstanding dispatch.
type dispatchDoneMsg struct {
	err error
}

// formItem is a list item for the form chooser.
type formItem struct {
	key, label string
}

func (i formItem) Title() string       { return i.label }
func (i formItem) Description() string { return i.key }
func (i formItem) FilterValue() string { return i.label }

// =============================================================================
// MODEL
// =============================================================================

// Model is the bubbletea model for one survey run.
type Model struct {
	cfg    Config
	sess   *session.Session
	styles ui.Styles
	keys   keyMap
	log    *logging.Logger

	email    textinput.Model
	forms    list.Model
	spinner  spinner.Model
	progress progress.Model
	panels   [2]viewport.Model
	help     help.Model

	renderer      *glamour.TermRenderer
	rendererWidth int
	// renderedFor is the item id the panels currently show.
	renderedFor string

	width, height int
	layout        ui.LayoutConfig

	// focus is the slot highlighted for the ←/→ + space selection.
	focus pool.Slot
	// notice is the inline message for the current screen (validation,
	// blocked or failed submission).
	notice string

	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a survey model on the entry screen.
func New(cfg Config) Model {
	ti := textinput.New()
	ti.Placeholder = "you@" + placeholderDomain(cfg.Session.EmailDomain)
	ti.Prompt = "Email: "
	ti.CharLimit = 254
	ti.Width = 48

	items := make([]list.Item, len(cfg.Session.Forms))
	for i, f := range cfg.Session.Forms {
		items[i] = formItem{key: f.Key, label: f.Label}
	}
	forms := list.New(items, list.NewDefaultDelegate(), 60, 12)
	forms.Title = "Choose a form"
	forms.SetShowStatusBar(false)
	forms.SetFilteringEnabled(false)
	forms.SetShowHelp(false)

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = cfg.Styles.Spinner

	pr := progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage())
	pr.Width = 40

	ctx, cancel := context.WithCancel(context.Background())
	m := Model{
		cfg:      cfg,
		sess:     session.New(cfg.Session),
		styles:   cfg.Styles,
		keys:     defaultKeyMap(),
		log:      logging.Get(logging.CategoryUI),
		email:    ti,
		forms:    forms,
		spinner:  sp,
		progress: pr,
		panels:   [2]viewport.Model{viewport.New(40, 10), viewport.New(40, 10)},
		help:     help.New(),
		focus:    pool.SlotA,
		ctx:      ctx,
		cancel:   cancel,
	}
	m.resize(100, 40)
	return m
}

// Session exposes the underlying state machine, mainly for tests and for
// the exit summary printed by the command.
func (m Model) Session() *session.Session { return m.sess }

// Init starts the cursor blink and the spinner; the spinner keeps ticking for
// the lifetime of the program and is only drawn while work is in flight.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick)
}

// Shutdown cancels any in-flight load or delivery.
func (m Model) Shutdown() {
	if m.cancel != nil {
		m.cancel()
	}
}

// slotIndex maps a slot to its panel.
func slotIndex(s pool.Slot) int {
	if s == pool.SlotB {
		return 1
	}
	return 0
}

func placeholderDomain(domain string) string {
	if domain == "" {
		return "example.com"
	}
	return domain
}

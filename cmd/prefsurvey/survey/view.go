package survey

import (
	"fmt"
	"math"
	"strings"

	"prefsurvey/cmd/prefsurvey/ui"
	"prefsurvey/internal/pool"
	"prefsurvey/internal/session"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
)

// View renders the screen the session is on.
func (m Model) View() string {
	var body string
	switch m.sess.Screen() {
	case session.ScreenEntry:
		body = m.renderEntry()
	case session.ScreenIdentify:
		body = m.renderIdentify()
	case session.ScreenSelectForm:
		body = m.forms.View()
	case session.ScreenLoading:
		body = m.renderLoading()
	case session.ScreenReview:
		body = m.renderReview()
	case session.ScreenConfirm:
		body = m.renderConfirm()
	case session.ScreenComplete:
		body = m.renderComplete()
	}

	if m.notice != "" {
		body = lipgloss.JoinVertical(lipgloss.Left, body, "", m.styles.Error.Render(m.notice))
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		m.renderHeader(),
		m.styles.Content.Render(body),
		m.styles.Footer.Render(m.help.View(m.screenKeys())),
	)
}

func (m Model) renderHeader() string {
	title := "Response Preference Survey"
	if email := m.sess.Email(); email != "" {
		title += " · " + email
	}
	return m.styles.Header.Width(max(m.width, 1)).Render(title)
}

func (m Model) renderEntry() string {
	var sb strings.Builder
	sb.WriteString(ui.Banner(m.styles))
	sb.WriteString("\n")
	sb.WriteString(m.styles.Body.Render("You will see a series of questions, each answered by two AI models."))
	sb.WriteString("\n")
	sb.WriteString(m.styles.Body.Render("For every question, pick the response you prefer. Model names stay hidden."))
	sb.WriteString("\n\n")
	sb.WriteString(m.styles.Prompt.Render("Press enter to begin."))
	return sb.String()
}

func (m Model) renderIdentify() string {
	var sb strings.Builder
	sb.WriteString(m.styles.Title.Render("Who is taking the survey?"))
	sb.WriteString("\n")
	if d := m.cfg.Session.EmailDomain; d != "" {
		sb.WriteString(m.styles.Muted.Render("Use your @" + d + " address."))
		sb.WriteString("\n\n")
	}
	sb.WriteString(m.email.View())
	return sb.String()
}

func (m Model) renderLoading() string {
	if err := m.sess.LoadErr(); err != nil {
		return lipgloss.JoinVertical(lipgloss.Left,
			m.styles.Error.Render("Unable to load questions."),
			m.styles.Muted.Render(err.Error()),
			"",
			m.styles.Body.Render("Press r to try again or q to quit."),
		)
	}
	return m.spinner.View() + " " + m.styles.Body.Render("Loading questions…")
}

func (m Model) renderReview() string {
	it, ok := m.sess.Current()
	if !ok {
		return ""
	}
	width := m.layout.ContentWidth()

	pct := int(math.Round(m.sess.Progress() * 100))
	status := fmt.Sprintf("Question %d of %d · %d%% Complete", m.sess.Cursor()+1, m.sess.Len(), pct)

	question := m.styles.Question.Width(width - 2).Render(it.Question)

	panels := []string{m.renderPanel(it, pool.SlotA), m.renderPanel(it, pool.SlotB)}
	var row string
	if m.layout.SideBySide {
		row = lipgloss.JoinHorizontal(lipgloss.Top, panels[0], strings.Repeat(" ", ui.PanelGap), panels[1])
	} else {
		row = lipgloss.JoinVertical(lipgloss.Left, panels...)
	}

	var footer string
	switch {
	case m.sess.Pending():
		footer = m.spinner.View() + " " + m.styles.Info.Render("Saving…")
	case m.sess.SubmitErr() != nil:
		footer = m.styles.Warning.Render("Press enter to try again or f to finish anyway.")
	case m.sess.IsLast():
		footer = m.styles.Muted.Render("This is the last question.")
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		m.styles.Muted.Render(status),
		m.progress.ViewAs(m.sess.Progress()),
		"",
		question,
		"",
		row,
		footer,
	)
}

func (m Model) renderPanel(it pool.Item, slot pool.Slot) string {
	chosen := false
	if r, ok := m.sess.Response(it.ID); ok && r.Slot == slot {
		chosen = true
	}

	title := m.styles.PanelTitle.Render("Model " + string(slot))
	if chosen {
		title += " " + m.styles.Badge.Render("preferred")
	}
	if m.focus == slot {
		title = "▸ " + title
	}

	style := m.styles.Panel
	if chosen {
		style = m.styles.PanelSelected
	}
	pw := m.layout.PanelWidth()
	return style.Width(pw - 2*ui.PanelBorderWidth).Render(
		lipgloss.JoinVertical(lipgloss.Left, title, m.panels[slotIndex(slot)].View()),
	)
}

func (m Model) renderConfirm() string {
	table := ui.NewSimpleTable("Review your choices", []string{"#", "Question", "Preferred", "Saved"})
	table.MaxCellWidth = max(m.layout.ContentWidth()-30, 20)
	perItem := m.sess.Flow().Delivery == session.DeliveryPerItem
	for _, row := range m.sess.Summary() {
		choice := "—"
		if row.Answered {
			choice = "Model " + string(row.Slot)
		}
		saved := ""
		if perItem {
			saved = "no"
			if row.Delivered {
				saved = "yes"
			}
		}
		table.AddRow(fmt.Sprint(row.Index+1), row.Question, choice, saved)
	}

	var footer string
	switch {
	case m.sess.Pending():
		footer = m.spinner.View() + " " + m.styles.Info.Render("Submitting…")
	case m.sess.SubmitErr() != nil:
		footer = m.styles.Warning.Render("Press enter to try again, p to go back, or f to finish anyway.")
	default:
		footer = m.styles.Prompt.Render("Press enter to submit your responses.")
	}
	return lipgloss.JoinVertical(lipgloss.Left, table.View(m.styles), footer)
}

func (m Model) renderComplete() string {
	undelivered := m.sess.Undelivered()

	var headline string
	switch {
	case m.sess.Answered() < m.sess.Len():
		headline = m.styles.Warning.Render("Survey ended early.")
	case undelivered > 0:
		headline = m.styles.Warning.Render("Thank you! Some responses were not recorded.")
	default:
		headline = m.styles.Success.Render("Thank you! Your responses have been recorded.")
	}

	lines := []string{
		headline,
		m.styles.Muted.Render(fmt.Sprintf("%d of %d questions answered.", m.sess.Answered(), m.sess.Len())),
	}
	if undelivered > 0 {
		lines = append(lines, m.styles.Warning.Render(
			fmt.Sprintf("%d responses could not be delivered.", undelivered)))
	}
	lines = append(lines, "", m.styles.Body.Render("Press q to exit."))
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

// screenKeys lists the bindings shown in the footer for the current screen.
func (m Model) screenKeys() screenKeys {
	k := m.keys
	switch m.sess.Screen() {
	case session.ScreenEntry:
		return screenKeys{k.Start, k.Quit}
	case session.ScreenIdentify:
		return screenKeys{k.Submit, k.ForceQ}
	case session.ScreenSelectForm:
		return screenKeys{k.Submit, k.Quit}
	case session.ScreenLoading:
		if m.sess.LoadErr() != nil {
			return screenKeys{k.Retry, k.Quit}
		}
		return screenKeys{k.ForceQ}
	case session.ScreenReview:
		keys := screenKeys{k.PickA, k.PickB, k.Left, k.Select, m.nextBinding()}
		if m.sess.CanBack() {
			keys = append(keys, k.Back)
		}
		if m.sess.SubmitErr() != nil {
			keys = append(keys, k.Force)
		}
		return append(keys, k.Up, k.Help)
	case session.ScreenConfirm:
		keys := screenKeys{k.Confirm, k.Revise}
		if m.sess.SubmitErr() != nil {
			keys = append(keys, k.Force)
		}
		return keys
	}
	return screenKeys{k.Quit}
}

// nextBinding relabels the advance key on the last item.
func (m Model) nextBinding() key.Binding {
	b := m.keys.Next
	if !m.sess.IsLast() {
		return b
	}
	flow := m.sess.Flow()
	switch {
	case flow.Confirm:
		b.SetHelp("enter", "review & submit")
	default:
		b.SetHelp("enter", "submit")
	}
	return b
}

// =============================================================================
// LAYOUT
// =============================================================================

func (m *Model) resize(width, height int) {
	m.width, m.height = width, height
	m.layout = ui.NewLayoutConfig(width, height)
	m.help.Width = width

	cw := m.layout.ContentWidth()
	m.progress.Width = min(cw, 60)
	m.forms.SetSize(cw, max(height-6, 6))

	pw := ui.PanelContentWidth(m.layout.PanelWidth())
	ph := ui.PanelContentHeight(m.layout.PanelHeight())
	for i := range m.panels {
		m.panels[i].Width = pw
		m.panels[i].Height = ph
	}
	m.renderedFor = ""
	m.renderPanels()
}

// renderPanels fills both panels with the current item's responses,
// rendered as markdown when glamour is available.
func (m *Model) renderPanels() {
	it, ok := m.sess.Current()
	if !ok || m.sess.Screen() != session.ScreenReview {
		return
	}
	if m.renderedFor == it.ID {
		return
	}

	width := m.panels[0].Width
	if m.renderer == nil || m.rendererWidth != width {
		style := "light"
		if m.styles.Theme.IsDark {
			style = "dark"
		}
		r, err := glamour.NewTermRenderer(
			glamour.WithStandardStyle(style),
			glamour.WithWordWrap(width),
		)
		if err != nil {
			m.log.Warn("markdown renderer unavailable: %v", err)
		}
		m.renderer, m.rendererWidth = r, width
	}

	for _, slot := range []pool.Slot{pool.SlotA, pool.SlotB} {
		c, _ := it.Candidate(slot)
		content := c.Text
		if m.renderer != nil {
			if out, err := m.renderer.Render(c.Text); err == nil {
				content = strings.TrimRight(out, "\n")
			}
		}
		vp := &m.panels[slotIndex(slot)]
		vp.SetContent(content)
		vp.GotoTop()
	}
	m.renderedFor = it.ID
}

package ui

import (
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/assert"
)

func TestDetectTheme(t *testing.T) {
	t.Setenv("COLORFGBG", "")
	assert.True(t, DetectTheme(true).IsDark, "forced dark mode")
	assert.False(t, DetectTheme(false).IsDark)

	t.Setenv("COLORFGBG", "15;0")
	assert.True(t, DetectTheme(false).IsDark, "dark terminal background")

	t.Setenv("COLORFGBG", "0;15")
	assert.False(t, DetectTheme(false).IsDark)
}

func TestSimpleTable(t *testing.T) {
	table := NewSimpleTable("Your choices", []string{"#", "Question", "Preferred"})
	table.AddRow("1", "What is\nthe plan?", "Model A")
	table.AddRow("2", "Short")

	view := table.View(DefaultStyles())
	assert.Contains(t, view, "Your choices")
	assert.Contains(t, view, "What is the plan?", "newlines are flattened")
	assert.Contains(t, view, "Model A")
	assert.Equal(t, 1, strings.Count(view, "Short"))
}

func TestSimpleTable_EmptyAndTruncated(t *testing.T) {
	table := NewSimpleTable("", []string{"Question"})
	assert.Empty(t, table.View(DefaultStyles()))

	table.MaxCellWidth = 10
	table.AddRow(strings.Repeat("x", 40))
	view := table.View(DefaultStyles())
	assert.Contains(t, view, "…")
	assert.NotContains(t, view, strings.Repeat("x", 11))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "hello", Truncate("hello", 10))
	assert.Equal(t, "hello", Truncate("hello", 0))
	assert.Equal(t, "hel…", Truncate("hello world", 4))
	assert.Equal(t, 4, lipgloss.Width(Truncate("hello world", 4)))
	assert.Equal(t, "…", Truncate("hello", 1))
}

func TestLayout(t *testing.T) {
	wide := NewLayoutConfig(140, 50)
	assert.True(t, wide.SideBySide)
	assert.Equal(t, (136-PanelGap)/2, wide.PanelWidth())
	assert.Equal(t, 50-ReviewChromeHeight, wide.PanelHeight())

	narrow := NewLayoutConfig(80, 40)
	assert.False(t, narrow.SideBySide)
	assert.Equal(t, 76, narrow.PanelWidth())
	assert.Equal(t, (40-ReviewChromeHeight)/2, narrow.PanelHeight())

	tiny := NewLayoutConfig(10, 5)
	assert.Equal(t, MinPanelHeight, tiny.PanelHeight())
	assert.Equal(t, 1, PanelContentHeight(2))
	assert.Equal(t, 1, PanelContentWidth(2))
}

func TestRenderDivider(t *testing.T) {
	s := DefaultStyles()
	assert.Equal(t, 5, lipgloss.Width(s.RenderDivider(5)))
	assert.Equal(t, 1, lipgloss.Width(s.RenderDivider(0)))
}

// Package ui layout constants for consistent spacing and dimensions
package ui

// Layout constants for panel sizing
const (
	// Outer padding of the content area
	ViewportHorizontalPadding = 4

	// Panel borders and spacing
	PanelBorderWidth = 1
	PanelPaddingH    = 1
	PanelGap         = 2

	// Fixed rows around the response panels: header, question, progress,
	// status and help lines.
	ReviewChromeHeight = 12

	// Responsive breakpoints
	MinimumTerminalWidth = 60
	SideBySideWidth      = 100
	MinPanelHeight       = 4
)

// LayoutConfig provides computed layout dimensions based on terminal size
type LayoutConfig struct {
	TerminalWidth  int
	TerminalHeight int
	// SideBySide places the two response panels next to each other;
	// narrow terminals stack them.
	SideBySide bool
}

// NewLayoutConfig creates a layout configuration for the given terminal size
func NewLayoutConfig(width, height int) LayoutConfig {
	return LayoutConfig{
		TerminalWidth:  width,
		TerminalHeight: height,
		SideBySide:     width >= SideBySideWidth,
	}
}

// ContentWidth returns the usable content width
func (l LayoutConfig) ContentWidth() int {
	return max(l.TerminalWidth-ViewportHorizontalPadding, MinimumTerminalWidth-ViewportHorizontalPadding)
}

// PanelWidth returns the outer width of one response panel.
func (l LayoutConfig) PanelWidth() int {
	if !l.SideBySide {
		return l.ContentWidth()
	}
	return (l.ContentWidth() - PanelGap) / 2
}

// PanelHeight returns the outer height of one response panel.
func (l LayoutConfig) PanelHeight() int {
	avail := l.TerminalHeight - ReviewChromeHeight
	if !l.SideBySide {
		avail /= 2
	}
	return max(avail, MinPanelHeight)
}

// PanelContentWidth returns the content width inside a bordered panel
func PanelContentWidth(panelWidth int) int {
	return max(panelWidth-(PanelBorderWidth*2)-(PanelPaddingH*2), 1)
}

// PanelContentHeight returns the content height inside a bordered panel,
// less one line for the panel title.
func PanelContentHeight(panelHeight int) int {
	return max(panelHeight-(PanelBorderWidth*2)-1, 1)
}

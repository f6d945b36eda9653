package survey

import (
	"github.com/charmbracelet/bubbles/key"
)

// keyMap holds every binding; each screen shows the subset it honours.
type keyMap struct {
	Start   key.Binding
	Submit  key.Binding
	Retry   key.Binding
	PickA   key.Binding
	PickB   key.Binding
	Left    key.Binding
	Right   key.Binding
	Select  key.Binding
	Next    key.Binding
	Back    key.Binding
	Revise  key.Binding
	Confirm key.Binding
	Force   key.Binding
	Up      key.Binding
	Down    key.Binding
	Help    key.Binding
	Quit    key.Binding
	ForceQ  key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Start:   key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "start")),
		Submit:  key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "continue")),
		Retry:   key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "retry")),
		PickA:   key.NewBinding(key.WithKeys("a", "A", "1"), key.WithHelp("a", "prefer A")),
		PickB:   key.NewBinding(key.WithKeys("b", "B", "2"), key.WithHelp("b", "prefer B")),
		Left:    key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←/→", "focus")),
		Right:   key.NewBinding(key.WithKeys("right", "l")),
		Select:  key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "choose focused")),
		Next:    key.NewBinding(key.WithKeys("enter", "n"), key.WithHelp("enter", "submit & next")),
		Back:    key.NewBinding(key.WithKeys("backspace", "p"), key.WithHelp("p", "previous")),
		Revise:  key.NewBinding(key.WithKeys("esc", "backspace", "p"), key.WithHelp("p", "go back")),
		Confirm: key.NewBinding(key.WithKeys("enter", "s"), key.WithHelp("enter", "submit")),
		Force:   key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "finish anyway")),
		Up:      key.NewBinding(key.WithKeys("up", "k", "pgup"), key.WithHelp("↑/↓", "scroll")),
		Down:    key.NewBinding(key.WithKeys("down", "j", "pgdown")),
		Help:    key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Quit:    key.NewBinding(key.WithKeys("q"), key.WithHelp("q", "quit")),
		ForceQ:  key.NewBinding(key.WithKeys("ctrl+c"), key.WithHelp("ctrl+c", "quit")),
	}
}

// screenKeys adapts a list of bindings to help.KeyMap.
type screenKeys []key.Binding

func (k screenKeys) ShortHelp() []key.Binding { return k }

func (k screenKeys) FullHelp() [][]key.Binding {
	cols := make([][]key.Binding, 0, (len(k)+3)/4)
	for i := 0; i < len(k); i += 4 {
		cols = append(cols, k[i:min(i+4, len(k))])
	}
	return cols
}

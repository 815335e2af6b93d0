package display

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Left      key.Binding
	Right     key.Binding
	Up        key.Binding
	Down      key.Binding
	Tap       key.Binding
	LongPress key.Binding
	Advance   key.Binding
	Restore   key.Binding
	Refresh   key.Binding
	Quit      key.Binding
}

func defaultKeys() keyMap {
	return keyMap{
		Left: key.NewBinding(
			key.WithKeys("left", "h"),
			key.WithHelp("←/h", "prev card"),
		),
		Right: key.NewBinding(
			key.WithKeys("right", "l"),
			key.WithHelp("→/l", "next card"),
		),
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "prev item"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "next item"),
		),
		Tap: key.NewBinding(
			key.WithKeys("enter", " "),
			key.WithHelp("enter", "bump item"),
		),
		LongPress: key.NewBinding(
			key.WithKeys("backspace", "b"),
			key.WithHelp("b", "undo item"),
		),
		Advance: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "advance order"),
		),
		Restore: key.NewBinding(
			key.WithKeys("u"),
			key.WithHelp("u", "restore order"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("r", "ctrl+r"),
			key.WithHelp("r", "refresh"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

func (k keyMap) help() []key.Binding {
	return []key.Binding{k.Left, k.Right, k.Up, k.Down, k.Tap, k.LongPress, k.Advance, k.Restore, k.Refresh, k.Quit}
}

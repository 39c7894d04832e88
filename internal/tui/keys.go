package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Pause     key.Binding
	Resume    key.Binding
	DeepFocus key.Binding
	Complete  key.Binding
	Abandon   key.Binding
	Quit      key.Binding
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Pause, k.Resume, k.DeepFocus, k.Complete, k.Abandon, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Pause, k.Resume, k.DeepFocus},
		{k.Complete, k.Abandon, k.Quit},
	}
}

var keys = keyMap{
	Pause: key.NewBinding(
		key.WithKeys("p", " "),
		key.WithHelp("p", "pause"),
	),
	Resume: key.NewBinding(
		key.WithKeys("r"),
		key.WithHelp("r", "resume"),
	),
	DeepFocus: key.NewBinding(
		key.WithKeys("d"),
		key.WithHelp("d", "deep focus"),
	),
	Complete: key.NewBinding(
		key.WithKeys("c", "enter"),
		key.WithHelp("c", "complete"),
	),
	Abandon: key.NewBinding(
		key.WithKeys("a"),
		key.WithHelp("a", "abandon"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}

package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Play   key.Binding
	Resume key.Binding
	Prev   key.Binding
	Next   key.Binding
	Loop   key.Binding
	Faster key.Binding
	Slower key.Binding
	Back   key.Binding
	Ahead  key.Binding
	Hide   key.Binding
	Help   key.Binding
	Quit   key.Binding
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Play, k.Prev, k.Next, k.Loop, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Play, k.Resume, k.Loop, k.Faster, k.Slower},
		{k.Prev, k.Next, k.Back, k.Ahead, k.Hide},
		{k.Help, k.Quit},
	}
}

var keys = keyMap{
	Play: key.NewBinding(
		key.WithKeys(" ", "space", "p"),
		key.WithHelp("space", "play/pause"),
	),
	Resume: key.NewBinding(
		key.WithKeys("r"),
		key.WithHelp("r", "resume"),
	),
	Prev: key.NewBinding(
		key.WithKeys("left", "h"),
		key.WithHelp("←/h", "previous marker"),
	),
	Next: key.NewBinding(
		key.WithKeys("right", "l"),
		key.WithHelp("→/l", "next marker"),
	),
	Loop: key.NewBinding(
		key.WithKeys("o"),
		key.WithHelp("o", "loop"),
	),
	Faster: key.NewBinding(
		key.WithKeys("+", "="),
		key.WithHelp("+", "faster"),
	),
	Slower: key.NewBinding(
		key.WithKeys("-", "_"),
		key.WithHelp("-", "slower"),
	),
	Back: key.NewBinding(
		key.WithKeys("shift+left", "H"),
		key.WithHelp("H", "seek back"),
	),
	Ahead: key.NewBinding(
		key.WithKeys("shift+right", "L"),
		key.WithHelp("L", "seek ahead"),
	),
	Hide: key.NewBinding(
		key.WithKeys("esc"),
		key.WithHelp("esc", "hide detail"),
	),
	Help: key.NewBinding(
		key.WithKeys("?"),
		key.WithHelp("?", "help"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}

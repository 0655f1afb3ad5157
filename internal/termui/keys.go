package termui

import "github.com/charmbracelet/bubbles/key"

// keyMap lists the bindings the viewer reacts to. It satisfies help.KeyMap so
// the footer can render it directly.
type keyMap struct {
	Quit   key.Binding
	Reload key.Binding
	Redraw key.Binding
	Info   key.Binding
	Copy   key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c", "esc"),
			key.WithHelp("q", "quit"),
		),
		Reload: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "reload"),
		),
		Redraw: key.NewBinding(
			key.WithKeys("ctrl+l"),
			key.WithHelp("ctrl+l", "redraw"),
		),
		Info: key.NewBinding(
			key.WithKeys("i"),
			key.WithHelp("i", "info"),
		),
		Copy: key.NewBinding(
			key.WithKeys("y"),
			key.WithHelp("y", "copy path"),
		),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Quit, k.Reload, k.Info, k.Copy}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Quit, k.Reload, k.Redraw},
		{k.Info, k.Copy},
	}
}

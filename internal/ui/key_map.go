package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the [key.Binding] mapping for the TUI.
type keyMap struct {
	open     key.Binding
	create   key.Binding
	remove   key.Binding
	send     key.Binding
	playlist key.Binding
	export   key.Binding
	back     key.Binding
	quit     key.Binding
	forceQ   key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		open:     key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "open")),
		create:   key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "new")),
		remove:   key.NewBinding(key.WithKeys("d", "delete"), key.WithHelp("d", "delete")),
		send:     key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "send")),
		playlist: key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "playlist")),
		export:   key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "export to spotify")),
		back:     key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
		quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
		forceQ:   key.NewBinding(key.WithKeys("ctrl+c"), key.WithHelp("ctrl+c", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.open, k.create, k.remove},
		{k.send, k.playlist, k.export},
		{k.back, k.quit},
	}
}

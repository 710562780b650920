package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the [key.Binding] mapping for the console.
type keyMap struct {
	enter    key.Binding
	previous key.Binding
	next     key.Binding
	pageUp   key.Binding
	pageDown key.Binding
	help     key.Binding
	quit     key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		enter:    key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "run")),
		previous: key.NewBinding(key.WithKeys("up"), key.WithHelp("↑", "older line")),
		next:     key.NewBinding(key.WithKeys("down"), key.WithHelp("↓", "newer line")),
		pageUp:   key.NewBinding(key.WithKeys("pgup"), key.WithHelp("pgup", "scroll up")),
		pageDown: key.NewBinding(key.WithKeys("pgdown"), key.WithHelp("pgdn", "scroll down")),
		help:     key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "commands")),
		quit:     key.NewBinding(key.WithKeys("ctrl+c", "esc"), key.WithHelp("esc", "leave")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.enter, k.help, k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.enter, k.previous, k.next},
		{k.pageUp, k.pageDown},
		{k.help, k.quit},
	}
}

package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Scan   key.Binding
	View   key.Binding
	Select key.Binding
	Up     key.Binding
	Down   key.Binding
	Back   key.Binding
	Quit   key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Scan:   key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "scan")),
		View:   key.NewBinding(key.WithKeys("v"), key.WithHelp("v", "view miners")),
		Select: key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "select")),
		Up:     key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:   key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		Back:   key.NewBinding(key.WithKeys("esc", "backspace"), key.WithHelp("esc", "back")),
		Quit:   key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

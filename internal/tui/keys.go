package tui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines all key bindings
type keyMap struct {
	Up      key.Binding
	Down    key.Binding
	Left    key.Binding
	Right   key.Binding
	Tab     key.Binding
	Enter   key.Binding
	Add     key.Binding
	Done    key.Binding
	Delete  key.Binding
	React   key.Binding
	Photo   key.Binding
	Profile key.Binding
	View    key.Binding
	Help    key.Binding
	Quit    key.Binding
	Escape  key.Binding
	Refresh key.Binding
}

var keys = keyMap{
	Up:      key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
	Down:    key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
	Left:    key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←/h", "my board")),
	Right:   key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→/l", "partner board")),
	Tab:     key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "switch board")),
	Enter:   key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "toggle done")),
	Add:     key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "add task")),
	Done:    key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "toggle done")),
	Delete:  key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "delete")),
	React:   key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "react")),
	Photo:   key.NewBinding(key.WithKeys("v"), key.WithHelp("v", "view photo")),
	Profile: key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "switch profile")),
	View:    key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "calendar view")),
	Help:    key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
	Quit:    key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	Escape:  key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel")),
	Refresh: key.NewBinding(key.WithKeys("R"), key.WithHelp("R", "sync now")),
}

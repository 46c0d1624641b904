package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Up           key.Binding
	Down         key.Binding
	Left         key.Binding
	Right        key.Binding
	PageUp       key.Binding
	PageDown     key.Binding
	Top          key.Binding
	Bottom       key.Binding
	First        key.Binding
	Last         key.Binding
	Select       key.Binding
	Clear        key.Binding
	ColumnSelect key.Binding
	Sort         key.Binding
	ResetSort    key.Binding
	Submit       key.Binding
	Yank         key.Binding
	Enable       key.Binding
	Help         key.Binding
	Quit         key.Binding
}

var keys = keyMap{
	Up:           key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
	Down:         key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
	Left:         key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←/h", "left")),
	Right:        key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→/l", "right")),
	PageUp:       key.NewBinding(key.WithKeys("pgup", "ctrl+u"), key.WithHelp("pgup", "page up")),
	PageDown:     key.NewBinding(key.WithKeys("pgdown", "ctrl+d"), key.WithHelp("pgdn", "page down")),
	Top:          key.NewBinding(key.WithKeys("home", "g"), key.WithHelp("g", "first row")),
	Bottom:       key.NewBinding(key.WithKeys("end", "G"), key.WithHelp("G", "last row")),
	First:        key.NewBinding(key.WithKeys("0"), key.WithHelp("0", "first column")),
	Last:         key.NewBinding(key.WithKeys("$"), key.WithHelp("$", "last column")),
	Select:       key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "select")),
	Clear:        key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "clear selection")),
	ColumnSelect: key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "column select")),
	Sort:         key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "sort")),
	ResetSort:    key.NewBinding(key.WithKeys("S"), key.WithHelp("S", "reset sort")),
	Submit:       key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "submit")),
	Yank:         key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "copy cell")),
	Enable:       key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "enable/disable")),
	Help:         key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
	Quit:         key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
}

// ShortHelp implements help.KeyMap.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Select, k.Sort, k.Submit, k.Yank, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Left, k.Right},
		{k.PageUp, k.PageDown, k.Top, k.Bottom, k.First, k.Last},
		{k.Select, k.Clear, k.ColumnSelect, k.Sort, k.ResetSort},
		{k.Submit, k.Yank, k.Enable, k.Help, k.Quit},
	}
}

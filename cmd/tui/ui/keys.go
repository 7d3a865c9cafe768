package ui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Quit      key.Binding
	Help      key.Binding
	Details   key.Binding
	Back      key.Binding
	Run       key.Binding
	Select    key.Binding
	RunMarked key.Binding
	Reload    key.Binding
	NextTab   key.Binding
	PrevTab   key.Binding
	Focus     key.Binding
	FocusL    key.Binding
	FocusR    key.Binding
	Theme     key.Binding
	Confirm   key.Binding
}

func defaultKeys() keyMap {
	return keyMap{
		Quit:      key.NewBinding(key.WithKeys("q", "esc", "ctrl+c"), key.WithHelp("q", "quit")),
		Help:      key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Details:   key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "details")),
		Back:      key.NewBinding(key.WithKeys("b"), key.WithHelp("b", "back")),
		Run:       key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "run")),
		Select:    key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "mark")),
		RunMarked: key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "run marked")),
		Reload:    key.NewBinding(key.WithKeys("ctrl+r", "R"), key.WithHelp("R", "reload")),
		NextTab:   key.NewBinding(key.WithKeys("]", "shift+right"), key.WithHelp("]", "next tab")),
		PrevTab:   key.NewBinding(key.WithKeys("[", "shift+left"), key.WithHelp("[", "prev tab")),
		Focus:     key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "switch pane")),
		FocusL:    key.NewBinding(key.WithKeys("left")),
		FocusR:    key.NewBinding(key.WithKeys("right")),
		Theme:     key.NewBinding(key.WithKeys("T", "t", "ctrl+t"), key.WithHelp("T", "theme")),
		Confirm:   key.NewBinding(key.WithKeys("y", "Y")),
	}
}

const helpText = `Help:

? show help
q or Esc to quit
[ ] or Shift+←/→ to change tab
Enter to view details, b to go back
r to run the highlighted entry
Space to mark entries in multi-select groups, x to run the marks
R or Ctrl+R to reload definitions
/ to filter
← → or Tab to switch pane focus
↑ ↓ to scroll focused pane
T to toggle the high contrast theme`

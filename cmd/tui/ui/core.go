package ui

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/VoxDroid/tabrun/internal/tui/adapters"
)

// Options tune the TUI.
type Options struct {
	// SkipConfirmation runs entries without the y/n prompt.
	SkipConfirmation bool
}

// NewModel constructs the Bubble Tea TUI model used by cmd/tui.
func NewModel(ui Model, opts Options) *TuiModel {
	l := list.New([]list.Item{}, list.NewDefaultDelegate(), 0, 0)
	l.SetShowTitle(false)
	l.SetShowStatusBar(false)
	l.SetShowHelp(false)
	l.SetFilteringEnabled(true)

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return &TuiModel{
		uiModel: ui,
		opts:    opts,
		keys:    defaultKeys(),
		list:    l,
		vp:      viewport.New(0, 0),
		spinner: sp,
	}
}

// NewProgram constructs the tea.Program for the TUI.
func NewProgram(ui Model, opts Options) *tea.Program {
	return tea.NewProgram(NewModel(ui, opts), tea.WithAltScreen())
}

// Init loads the catalog.
func (m *TuiModel) Init() tea.Cmd { return m.load(false) }

// Messages
type loadedMsg struct {
	err    error
	reload bool
}
type runEventMsg adapters.RunEvent
type runDoneMsg struct{}

// ExternalReloadMsg tells the TUI the definitions changed on disk and the
// engine already rebuilt its catalog.
type ExternalReloadMsg struct{ Err error }

func (m *TuiModel) load(reload bool) tea.Cmd {
	ui := m.uiModel
	return func() tea.Msg {
		var err error
		if reload {
			err = ui.Reload(context.Background())
		} else {
			err = ui.RefreshList(context.Background())
		}
		return loadedMsg{err: err, reload: reload}
	}
}

// readLoop returns a command that reads one event from the channel and
// returns it as a tea.Msg. Update returns it again to continue the stream.
func readLoop(ch <-chan adapters.RunEvent) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return runDoneMsg{}
		}
		return runEventMsg(ev)
	}
}

// entryItem adapts adapters.EntryInfo for the list component.
type entryItem struct {
	e        adapters.EntryInfo
	selected bool
}

func (i entryItem) Title() string {
	var b strings.Builder
	b.WriteString(strings.Repeat("  ", i.e.Depth))
	switch {
	case i.e.HasChildren:
		b.WriteString("▸ ")
	case i.selected:
		b.WriteString("[x] ")
	case i.e.Runnable():
		b.WriteString("• ")
	default:
		b.WriteString("  ")
	}
	b.WriteString(i.e.Name)
	return b.String()
}

func (i entryItem) Description() string {
	d := i.e.Description
	if d == "" {
		d = i.e.CommandType
	}
	return strings.Repeat("  ", i.e.Depth) + d
}

func (i entryItem) FilterValue() string { return i.e.Name + " " + i.e.Description }

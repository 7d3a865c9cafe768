package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/VoxDroid/tabrun/internal/tui/adapters"
)

// TuiModel is the Bubble Tea model used by cmd/tui.
type TuiModel struct {
	uiModel Model
	opts    Options
	keys    keyMap

	list      list.Model
	vp        viewport.Model
	vpContent string
	spinner   spinner.Model

	width  int
	height int
	tabIdx int

	showDetail    bool
	detail        string
	detailName    string
	runInProgress bool
	runBatch      bool
	logs          []string
	cancelRun     context.CancelFunc
	runCh         <-chan adapters.RunEvent
	// pending holds a run waiting for y/n.
	pending *pendingRun
	status  string
	loadErr error
	// accessibility / theme
	themeHighContrast bool
	lastSelectedID    string
	// focus: false = left pane (list), true = right pane (viewport)
	focusRight bool
}

type pendingRun struct {
	entry adapters.EntryInfo
	batch bool
	label string
}

func (m *TuiModel) currentTab() (adapters.TabInfo, bool) {
	tabs := m.uiModel.Tabs()
	if m.tabIdx < 0 || m.tabIdx >= len(tabs) {
		return adapters.TabInfo{}, false
	}
	return tabs[m.tabIdx], true
}

func (m *TuiModel) selectedEntry() (adapters.EntryInfo, bool) {
	if it, ok := m.list.SelectedItem().(entryItem); ok {
		return it.e, true
	}
	return adapters.EntryInfo{}, false
}

// setTab rebuilds the list for tab index i, keeping the highlighted entry
// when it still exists.
func (m *TuiModel) setTab(i int) {
	n := len(m.uiModel.Tabs())
	if n == 0 {
		m.tabIdx = 0
		m.list.SetItems(nil)
		m.setViewport("No tabs found.")
		return
	}
	m.tabIdx = ((i % n) + n) % n
	keep := m.lastSelectedID
	entries := m.uiModel.Entries(m.tabIdx)
	items := make([]list.Item, 0, len(entries))
	sel := 0
	for j, e := range entries {
		items = append(items, entryItem{e: e, selected: m.uiModel.IsSelected(e.ID)})
		if e.ID == keep {
			sel = j
		}
	}
	if m.list.Height() == 0 {
		m.list.SetSize(30, 10)
	}
	if m.vp.Width == 0 || m.vp.Height == 0 {
		m.vp = viewport.New(40, 12)
	}
	m.list.ResetFilter()
	m.list.SetItems(items)
	if len(items) > 0 {
		m.list.Select(sel)
	}
	m.lastSelectedID = ""
	m.refreshPreview()
}

// refreshPreview renders the highlighted entry into the right pane unless
// a run owns it.
func (m *TuiModel) refreshPreview() {
	if m.runInProgress {
		return
	}
	e, ok := m.selectedEntry()
	if !ok {
		if _, hasTab := m.currentTab(); hasTab {
			m.setViewport("This tab is empty.")
		}
		m.lastSelectedID = ""
		return
	}
	if e.ID == m.lastSelectedID {
		return
	}
	m.lastSelectedID = e.ID
	p, err := m.uiModel.Preview(context.Background(), e)
	if err != nil {
		m.setViewport(formatEntryDetails(e, nil, m.vp.Width) + "\n" + err.Error())
		return
	}
	m.setViewport(formatEntryDetails(e, &p, m.vp.Width))
}

// syncMarks redraws selection markers after a toggle.
func (m *TuiModel) syncMarks() {
	items := m.list.Items()
	for i, it := range items {
		if ei, ok := it.(entryItem); ok {
			ei.selected = m.uiModel.IsSelected(ei.e.ID)
			items[i] = ei
		}
	}
	idx := m.list.Index()
	m.list.SetItems(items)
	m.list.Select(idx)
}

func (m *TuiModel) startRun(p pendingRun) tea.Cmd {
	ctx, cancel := context.WithCancel(context.Background())
	var (
		h   adapters.RunHandle
		err error
	)
	if p.batch {
		h, err = m.uiModel.RunSelected(ctx, p.entry.Tab)
	} else {
		h, err = m.uiModel.Run(ctx, p.entry)
	}
	if err != nil {
		cancel()
		m.status = "run error: " + err.Error()
		return nil
	}
	m.cancelRun = cancel
	m.runBatch = p.batch
	m.logs = []string{"-> " + p.label}
	m.runInProgress = true
	m.focusRight = true
	m.status = ""
	m.runCh = h.Events()
	m.setViewport(strings.Join(m.logs, "\n"))
	return tea.Batch(readLoop(m.runCh), m.spinner.Tick)
}

func (m *TuiModel) requestRun(p pendingRun) tea.Cmd {
	if m.runInProgress {
		return nil
	}
	if m.opts.SkipConfirmation {
		return m.startRun(p)
	}
	m.pending = &p
	m.status = fmt.Sprintf("Run %s? (y/N)", p.label)
	return nil
}

func (m *TuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case loadedMsg:
		if msg.err != nil {
			m.status = "load failed: " + msg.err.Error()
			if !msg.reload {
				m.loadErr = msg.err
				m.setViewport("Could not load definitions:\n\n" + msg.err.Error())
			}
			return m, nil
		}
		m.loadErr = nil
		if msg.reload {
			m.status = "definitions reloaded"
		}
		if sel, ok := m.selectedEntry(); ok {
			m.lastSelectedID = sel.ID
		}
		m.setTab(m.tabIdx)
		return m, nil

	case ExternalReloadMsg:
		if msg.Err != nil {
			m.status = "reload failed: " + msg.Err.Error()
			return m, nil
		}
		return m, m.load(false)

	case tea.KeyMsg:
		// while filtering, keys belong to the list
		if m.list.FilterState() == list.Filtering && msg.String() != "ctrl+c" {
			m.list, cmd = m.list.Update(msg)
			m.refreshPreview()
			return m, cmd
		}
		if m.pending != nil {
			p := *m.pending
			m.pending = nil
			m.status = ""
			if key.Matches(msg, m.keys.Confirm) {
				return m, m.startRun(p)
			}
			m.status = "cancelled"
			return m, nil
		}
		s := msg.String()
		switch {
		case key.Matches(msg, m.keys.Quit):
			if m.showDetail && s == "esc" {
				m.showDetail = false
				return m, nil
			}
			if m.cancelRun != nil {
				m.cancelRun()
			}
			return m, tea.Quit
		case key.Matches(msg, m.keys.Help):
			m.showDetail = true
			m.detailName = "help"
			m.detail = helpText
			return m, nil
		case key.Matches(msg, m.keys.Details):
			if e, ok := m.selectedEntry(); ok {
				m.showDetail = true
				m.detailName = strings.Join(e.Path, " / ")
				p, err := m.uiModel.Preview(context.Background(), e)
				if err != nil {
					m.detail = formatEntryDetails(e, nil, m.width/2) + "\n" + err.Error()
				} else {
					m.detail = formatPreviewFullScreen(p, m.width, m.height)
				}
			}
			return m, nil
		case key.Matches(msg, m.keys.Back):
			m.showDetail = false
			m.focusRight = false
			if !m.runInProgress {
				m.lastSelectedID = ""
				m.refreshPreview()
			}
			return m, nil
		case key.Matches(msg, m.keys.Run):
			e, ok := m.selectedEntry()
			if !ok {
				return m, nil
			}
			if !e.Runnable() {
				m.status = e.Name + " has nothing to run"
				return m, nil
			}
			return m, m.requestRun(pendingRun{entry: e, label: e.Name})
		case key.Matches(msg, m.keys.Select):
			if e, ok := m.selectedEntry(); ok && !m.runInProgress {
				if !e.Runnable() {
					m.status = "only runnable entries can be marked"
					return m, nil
				}
				if !e.MultiSelect {
					m.status = e.Name + " cannot be combined with other entries; press r to run it alone"
					return m, nil
				}
				m.uiModel.ToggleSelect(e)
				m.syncMarks()
			}
			return m, nil
		case key.Matches(msg, m.keys.RunMarked):
			tab, ok := m.currentTab()
			if !ok {
				return m, nil
			}
			marked := m.uiModel.Selected(tab.Name)
			if len(marked) == 0 {
				m.status = "nothing marked; use space to mark entries"
				return m, nil
			}
			return m, m.requestRun(pendingRun{entry: marked[0], batch: true, label: fmt.Sprintf("%d marked entries", len(marked))})
		case key.Matches(msg, m.keys.Reload):
			if m.runInProgress {
				return m, nil
			}
			return m, m.load(true)
		case key.Matches(msg, m.keys.NextTab):
			if !m.runInProgress {
				m.setTab(m.tabIdx + 1)
			}
			return m, nil
		case key.Matches(msg, m.keys.PrevTab):
			if !m.runInProgress {
				m.setTab(m.tabIdx - 1)
			}
			return m, nil
		case key.Matches(msg, m.keys.Theme):
			m.themeHighContrast = !m.themeHighContrast
			return m, nil
		case key.Matches(msg, m.keys.FocusL):
			m.focusRight = false
			return m, nil
		case key.Matches(msg, m.keys.FocusR):
			m.focusRight = true
			return m, nil
		case key.Matches(msg, m.keys.Focus):
			m.focusRight = !m.focusRight
			return m, nil
		}

		if m.focusRight {
			switch s {
			case "up", "k":
				m.vp.LineUp(1)
				return m, nil
			case "down", "j":
				m.vp.LineDown(1)
				return m, nil
			case "pgup":
				m.vp.HalfViewUp()
				return m, nil
			case "pgdown":
				m.vp.HalfViewDown()
				return m, nil
			case "home":
				m.vp.GotoTop()
				return m, nil
			case "end":
				m.vp.GotoBottom()
				return m, nil
			}
		}
		m.list, cmd = m.list.Update(msg)
		m.refreshPreview()
		return m, cmd

	case runEventMsg:
		ev := adapters.RunEvent(msg)
		if ev.Err != nil {
			m.logs = append(m.logs, "error: "+ev.Err.Error())
		} else {
			m.logs = append(m.logs, ev.Line)
		}
		m.setViewport(strings.Join(m.logs, "\n"))
		m.vp.GotoBottom()
		if m.runCh != nil {
			return m, readLoop(m.runCh)
		}
		return m, nil

	case runDoneMsg:
		m.runInProgress = false
		m.runCh = nil
		if m.cancelRun != nil {
			m.cancelRun()
			m.cancelRun = nil
		}
		if m.runBatch {
			m.uiModel.ClearSelection()
			m.syncMarks()
		}
		m.status = "run finished; b to return to the preview"
		return m, nil

	case spinner.TickMsg:
		if !m.runInProgress {
			return m, nil
		}
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		headH := 2
		footerH := 1
		bodyH := m.height - headH - footerH - 3
		if bodyH < 3 {
			bodyH = 3
		}

		sideW := int(float64(m.width) * 0.35)
		if sideW > 40 {
			sideW = 40
		}
		if sideW < 20 {
			sideW = 20
		}
		innerSideW := sideW - 2
		if innerSideW < 10 {
			innerSideW = 10
		}

		rightW := m.width - sideW - 4
		if rightW < 12 {
			rightW = 12
		}
		innerRightW := rightW - 2
		if innerRightW < 10 {
			innerRightW = 10
		}

		innerBodyH := bodyH - 2
		if innerBodyH < 1 {
			innerBodyH = 1
		}

		m.list.SetSize(innerSideW, innerBodyH)
		m.ensureViewportSize(innerRightW, innerBodyH)
		if !m.runInProgress && m.loadErr == nil {
			m.lastSelectedID = ""
			m.refreshPreview()
		}
	}

	return m, cmd
}

func (m *TuiModel) palette() (side, right, bottomBg, bottomFg string, sideB, rightB lipgloss.Border) {
	sideB, rightB = lipgloss.NormalBorder(), lipgloss.NormalBorder()
	if m.themeHighContrast {
		bottomBg, bottomFg = "#000000", "#ffffff"
		side, right = "#ffffff", "#444444"
		if m.focusRight {
			side, right = "#444444", "#ffffff"
		}
	} else {
		bottomBg, bottomFg = "#0b1226", "#cbd5e1"
		side, right = "#7dd3fc", "#334155"
		if m.focusRight {
			side, right = "#334155", "#c084fc"
		}
	}
	if m.focusRight {
		rightB = lipgloss.ThickBorder()
	} else {
		sideB = lipgloss.ThickBorder()
	}
	return
}

func (m *TuiModel) View() string {
	_, right, bottomBg, bottomFg, _, _ := m.palette()
	if m.showDetail {
		footerH := 1
		bottomH := 1
		bodyH := m.height - footerH - bottomH - 2
		if bodyH < 3 {
			bodyH = 3
		}
		body := lipgloss.NewStyle().
			BorderStyle(lipgloss.NormalBorder()).
			BorderForeground(lipgloss.Color(right)).
			Padding(1).
			Width(m.width - 2).
			Height(bodyH).
			Render(m.detail)
		bottom := m.renderStatus("Viewing: "+m.detailName, bottomBg, bottomFg)
		footer := lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("#94a3b8")).
			Render("(r) Run • (T) Toggle Theme • (b) Back • (q) Quit")
		return lipgloss.JoinVertical(lipgloss.Left, body, footer, bottom)
	}

	headH := 2
	footerH := 1
	bodyH := m.height - headH - footerH - 3
	if bodyH < 3 {
		bodyH = 3
	}
	sideColor, rightColor, _, _, sideB, rightB := m.palette()

	title := " tabrun "
	if tab, ok := m.currentTab(); ok {
		title = fmt.Sprintf(" tabrun — %s (%d) ", tab.Name, len(tab.Entries))
	}
	head := lipgloss.JoinVertical(lipgloss.Left, m.renderTitleBox(title), m.renderTabBar())

	sidebar := lipgloss.NewStyle().BorderStyle(sideB).BorderForeground(lipgloss.Color(sideColor)).
		Width(m.list.Width()).Height(bodyH).Render(m.list.View())

	rightW := m.width - m.list.Width() - 4
	if rightW < 12 {
		rightW = 12
	}
	pane := lipgloss.NewStyle().BorderStyle(rightB).BorderForeground(lipgloss.Color(rightColor)).
		Padding(1).Width(rightW).Height(bodyH).Render(m.vp.View())

	var body string
	if m.width < 80 {
		body = lipgloss.JoinVertical(lipgloss.Left, sidebar, pane)
	} else {
		body = lipgloss.JoinHorizontal(lipgloss.Top, sidebar, pane)
	}

	status := fmt.Sprintf("Items: %d", len(m.list.Items()))
	if m.focusRight {
		status += " • FOCUS: PREVIEW/OUTPUT"
	} else {
		status += " • FOCUS: ENTRIES"
	}
	if m.list.FilterState() == list.Filtering {
		status += " • FILTER MODE"
	}
	bottom := m.renderStatus(status, bottomBg, bottomFg)

	footerText := "[ ] tabs • ← / → / Tab focus • Enter details • r run • space mark • x run marked • R reload • q quit • ? help"
	footer := lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("#94a3b8")).Render(footerText)

	return lipgloss.JoinVertical(lipgloss.Left, head, body, footer, bottom)
}

func (m *TuiModel) renderStatus(text, bg, fg string) string {
	if m.runInProgress {
		text += " • " + m.spinner.View() + " RUNNING"
	}
	if m.status != "" {
		text += " • " + m.status
	}
	return lipgloss.NewStyle().Background(lipgloss.Color(bg)).Foreground(lipgloss.Color(fg)).
		Padding(0, 1).Width(m.width).Render(" " + text + " ")
}

package ui

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"

	"github.com/VoxDroid/tabrun/internal/engine"
	"github.com/VoxDroid/tabrun/internal/tui/adapters"
)

var (
	headingStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#0ea5a4"))
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#94a3b8")).Italic(true)
	labels       = []string{"Name:", "Type:", "Path:", "Tasks:", "Command:", "Script:", "Runs as:"}
)

// simple word-wrap to produce lines no longer than width (approximate by rune count)
func wrapText(s string, width int) []string {
	if width <= 0 {
		return []string{s}
	}
	out := []string{}
	for _, para := range strings.Split(s, "\n") {
		words := strings.Fields(para)
		if len(words) == 0 {
			out = append(out, "")
			continue
		}
		cur := words[0]
		for _, w := range words[1:] {
			if utf8.RuneCountInString(cur)+1+utf8.RuneCountInString(w) > width {
				out = append(out, cur)
				cur = w
			} else {
				cur = cur + " " + w
			}
		}
		out = append(out, cur)
	}
	return out
}

func padRight(s string, w int) string {
	if n := utf8.RuneCountInString(s); n < w {
		return s + strings.Repeat(" ", w-n)
	}
	return s
}

// renderTableInline renders a label on the left and the value on the same
// line. Continuation lines are aligned under the value column.
func renderTableInline(label, value string, labelW, valueW int) string {
	lines := wrapText(value, valueW)
	var b strings.Builder
	for i, ln := range lines {
		if i == 0 {
			b.WriteString(padRight(label, labelW) + " " + ln + "\n")
		} else {
			b.WriteString(strings.Repeat(" ", labelW) + " " + ln + "\n")
		}
	}
	return b.String()
}

// renderTableBlockHeader renders the label as a header line and places the
// block lines underneath it, aligned to the value column. Lines are not
// wrapped so scripts keep their shape.
func renderTableBlockHeader(label, block string, labelW int) string {
	var b strings.Builder
	b.WriteString(padRight(label, labelW) + "\n")
	for _, ln := range strings.Split(strings.TrimSuffix(block, "\n"), "\n") {
		b.WriteString(strings.Repeat(" ", labelW) + " " + ln + "\n")
	}
	return b.String()
}

func labelWidth() int {
	w := 0
	for _, l := range labels {
		if n := utf8.RuneCountInString(l); n > w {
			w = n
		}
	}
	return w
}

// formatEntryDetails renders the preview pane for an entry. p may be nil
// when the preview could not be built.
func formatEntryDetails(e adapters.EntryInfo, p *engine.Preview, width int) string {
	contentW := width - 4
	if contentW < 10 {
		contentW = 10
	}
	labelW := labelWidth()
	valueW := contentW - labelW - 1
	if valueW < 10 {
		valueW = 10
	}

	var b strings.Builder
	b.WriteString(renderTableInline("Name:", e.Name, labelW, valueW))
	b.WriteString(renderTableInline("Type:", e.CommandType, labelW, valueW))
	b.WriteString(renderTableInline("Path:", strings.Join(e.Path, " / "), labelW, valueW))
	if e.TaskList != "" {
		b.WriteString(renderTableInline("Tasks:", e.TaskList, labelW, valueW))
	}
	if e.Description != "" {
		b.WriteString("\n" + strings.Join(wrapText(e.Description, contentW), "\n") + "\n")
	}
	if p == nil {
		return b.String()
	}
	b.WriteString("\n")
	switch p.Kind {
	case engine.PreviewRaw:
		b.WriteString(renderTableBlockHeader("Command:", strings.Join(wrapText(p.Content, valueW), "\n"), labelW))
	case engine.PreviewScript:
		b.WriteString(renderTableInline("Runs as:", p.CommandLine, labelW, valueW))
		b.WriteString(renderTableBlockHeader("Script:", p.Content, labelW))
	default:
		b.WriteString(p.Content + "\n")
		for _, c := range p.Children {
			b.WriteString("  • " + c + "\n")
		}
		if e.MultiSelect {
			b.WriteString("\n" + mutedStyle.Render("space marks entries, x runs them in order") + "\n")
		}
	}
	return b.String()
}

// formatPreviewFullScreen renders the detail view.
func formatPreviewFullScreen(p engine.Preview, width int, _ int) string {
	titleStyle := headingStyle.Background(lipgloss.Color("#0b1226"))
	contentW := width - 6
	if contentW < 10 {
		contentW = 10
	}

	var b strings.Builder
	titleText := fmt.Sprintf("%s › %s", p.Tab, strings.Join(p.Path, " / "))
	b.WriteString(titleStyle.Render(titleText) + "\n")
	sepLen := contentW
	if sepLen > utf8.RuneCountInString(titleText)+4 {
		sepLen = utf8.RuneCountInString(titleText) + 4
	}
	b.WriteString(headingStyle.Render(strings.Repeat("─", sepLen)) + "\n\n")

	if p.Description != "" {
		b.WriteString(headingStyle.Render("Description:") + "\n")
		b.WriteString(strings.Join(wrapText(p.Description, contentW), "\n") + "\n\n")
	}
	switch p.Kind {
	case engine.PreviewRaw:
		b.WriteString(headingStyle.Render("Command:") + "\n")
		b.WriteString("$ " + p.Content + "\n")
		if p.CommandLine != "" {
			b.WriteString("\n" + mutedStyle.Render("runs as: "+p.CommandLine) + "\n")
		}
	case engine.PreviewScript:
		b.WriteString(headingStyle.Render("Script:") + " " + p.File + "\n")
		b.WriteString(p.Content)
		if !strings.HasSuffix(p.Content, "\n") {
			b.WriteString("\n")
		}
		if p.Truncated {
			b.WriteString(mutedStyle.Render("… truncated") + "\n")
		}
		b.WriteString("\n" + headingStyle.Render("Execution info:") + "\n")
		if len(p.Args) > 0 {
			b.WriteString("  args: " + strings.Join(p.Args, " ") + "\n")
		}
		b.WriteString("  runs as: " + p.CommandLine + "\n")
	default:
		b.WriteString(headingStyle.Render("Entries:") + "\n")
		b.WriteString(p.Content + "\n")
		for _, c := range p.Children {
			b.WriteString("  • " + c + "\n")
		}
	}
	if p.TaskList != "" {
		b.WriteString("\n" + headingStyle.Render("Tasks:") + " " + p.TaskList + "\n")
	}
	return b.String()
}

// renderTitleBox produces the bordered title bar.
func (m *TuiModel) renderTitleBox(text string) string {
	var titleFg, titleBg, titleBorder string
	if m.themeHighContrast {
		titleFg, titleBg = "#000000", "#ffff00"
		titleBorder = "#ffff00"
	} else {
		titleFg, titleBg = "#ffffff", "#0f766e"
		titleBorder = "#0ea5a4"
	}
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(titleFg)).Background(lipgloss.Color(titleBg)).Padding(0, 1)
	title := titleStyle.Render(text)
	w := m.width - 2
	if w < 1 {
		w = 1
	}
	titleInner := lipgloss.Place(w, 1, lipgloss.Center, lipgloss.Center, title)
	return lipgloss.NewStyle().BorderStyle(lipgloss.NormalBorder()).BorderForeground(lipgloss.Color(titleBorder)).Width(m.width).Render(titleInner)
}

// renderTabBar lists the tab names with the active one highlighted.
func (m *TuiModel) renderTabBar() string {
	active := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#0b1226")).Background(lipgloss.Color("#7dd3fc")).Padding(0, 1)
	idle := lipgloss.NewStyle().Foreground(lipgloss.Color("#94a3b8")).Padding(0, 1)
	if m.themeHighContrast {
		active = active.Foreground(lipgloss.Color("#000000")).Background(lipgloss.Color("#ffffff"))
		idle = idle.Foreground(lipgloss.Color("#ffffff"))
	}
	var parts []string
	for i, t := range m.uiModel.Tabs() {
		if i == m.tabIdx {
			parts = append(parts, active.Render(t.Name))
		} else {
			parts = append(parts, idle.Render(t.Name))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

package ui

import (
	"context"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/VoxDroid/tabrun/internal/engine"
	"github.com/VoxDroid/tabrun/internal/tui/adapters"
	modelpkg "github.com/VoxDroid/tabrun/internal/tui/model"
)

type fakeCatalog struct {
	tabs    []adapters.TabInfo
	loadErr error
}

func (f *fakeCatalog) Tabs(_ context.Context) ([]adapters.TabInfo, error) {
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	return f.tabs, nil
}
func (f *fakeCatalog) Refresh(ctx context.Context) ([]adapters.TabInfo, error) { return f.Tabs(ctx) }
func (f *fakeCatalog) Preview(_ context.Context, tab string, path []string) (engine.Preview, error) {
	for _, t := range f.tabs {
		for _, e := range t.Entries {
			if e.Tab == tab && strings.Join(e.Path, "/") == strings.Join(path, "/") {
				switch e.CommandType {
				case adapters.TypeRaw:
					return engine.Preview{Tab: tab, Path: path, Name: e.Name, Kind: engine.PreviewRaw, Content: e.Content, CommandLine: "sh -c '" + e.Content + "'"}, nil
				case adapters.TypeDirectory:
					return engine.Preview{Tab: tab, Path: path, Name: e.Name, Kind: engine.PreviewDirectory, Content: "Directory with 1 entries", Children: []string{"Dig"}}, nil
				}
			}
		}
	}
	return engine.Preview{}, adapters.ErrNotFound
}

type fakeExec struct {
	runs  int
	paths [][]string
}

func (f *fakeExec) Run(_ context.Context, _ string, paths [][]string, _ bool) (adapters.RunHandle, error) {
	f.runs++
	f.paths = paths
	return modelpkg.FakeRunHandle([]string{"hello", "✓ done"}, 0), nil
}

func sample() []adapters.TabInfo {
	return []adapters.TabInfo{
		{Name: "net", Entries: []adapters.EntryInfo{
			{ID: "net/DNS", Tab: "net", Path: []string{"DNS"}, Name: "DNS", CommandType: adapters.TypeDirectory, HasChildren: true, MultiSelect: true},
			{ID: "net/DNS/Dig", Tab: "net", Path: []string{"DNS", "Dig"}, Name: "Dig", Depth: 1, CommandType: adapters.TypeRaw, Content: "dig example.com", MultiSelect: true},
			{ID: "net/DNS/Host", Tab: "net", Path: []string{"DNS", "Host"}, Name: "Host", Depth: 1, CommandType: adapters.TypeRaw, Content: "host example.com", MultiSelect: true},
		}},
		{Name: "apps", Entries: []adapters.EntryInfo{
			{ID: "apps/Update", Tab: "apps", Path: []string{"Update"}, Name: "Update", CommandType: adapters.TypeRaw, Content: "apt update"},
		}},
	}
}

func newTestModel(t *testing.T, opts Options) (*TuiModel, *fakeExec) {
	t.Helper()
	ex := &fakeExec{}
	m := NewModel(modelpkg.New(&fakeCatalog{tabs: sample()}, ex), opts)
	m = update(t, m, m.Init()())
	m = update(t, m, tea.WindowSizeMsg{Width: 120, Height: 40})
	return m, ex
}

func update(t *testing.T, m *TuiModel, msg tea.Msg) *TuiModel {
	t.Helper()
	next, _ := m.Update(msg)
	return next.(*TuiModel)
}

func keyMsg(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case " ":
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// drainRun feeds the run stream back into the model until it ends.
func drainRun(t *testing.T, m *TuiModel) *TuiModel {
	t.Helper()
	for i := 0; m.runCh != nil && i < 20; i++ {
		m = update(t, m, readLoop(m.runCh)())
	}
	return m
}

func TestInitPopulatesListAndPreview(t *testing.T) {
	m, _ := newTestModel(t, Options{})
	if len(m.list.Items()) != 3 {
		t.Fatalf("expected 3 items got %d", len(m.list.Items()))
	}
	if !strings.Contains(m.vp.View(), "Directory with 1 entries") {
		t.Fatalf("expected directory preview, got:\n%s", m.vp.View())
	}
	view := m.View()
	if !strings.Contains(view, "tabrun — net (3)") || !strings.Contains(view, "apps") {
		t.Fatalf("expected title and tab bar in view, got:\n%s", view)
	}
}

func TestInitLoadError(t *testing.T) {
	m := NewModel(modelpkg.New(&fakeCatalog{loadErr: errors.New("duplicate name")}, &fakeExec{}), Options{})
	m = update(t, m, m.Init()())
	if m.loadErr == nil || !strings.Contains(m.vpContent, "duplicate name") {
		t.Fatalf("expected load error in preview, got:\n%s", m.vpContent)
	}
}

func TestTabSwitching(t *testing.T) {
	m, _ := newTestModel(t, Options{})
	m = update(t, m, keyMsg("]"))
	if m.tabIdx != 1 || len(m.list.Items()) != 1 {
		t.Fatalf("expected apps tab, got idx %d with %d items", m.tabIdx, len(m.list.Items()))
	}
	m = update(t, m, keyMsg("]"))
	if m.tabIdx != 0 {
		t.Fatalf("tab index should wrap, got %d", m.tabIdx)
	}
	m = update(t, m, keyMsg("["))
	if m.tabIdx != 1 {
		t.Fatalf("prev tab should wrap backwards, got %d", m.tabIdx)
	}
}

func TestRunNeedsConfirmation(t *testing.T) {
	m, ex := newTestModel(t, Options{})
	m = update(t, m, keyMsg("down"))
	m = update(t, m, keyMsg("r"))
	if m.pending == nil || ex.runs != 0 {
		t.Fatalf("expected a pending confirmation before running")
	}
	m = update(t, m, keyMsg("n"))
	if m.pending != nil || ex.runs != 0 || m.status != "cancelled" {
		t.Fatalf("n should cancel the run, status %q", m.status)
	}

	m = update(t, m, keyMsg("r"))
	m = update(t, m, keyMsg("y"))
	if ex.runs != 1 || !m.runInProgress {
		t.Fatalf("y should start the run")
	}
	m = drainRun(t, m)
	if m.runInProgress {
		t.Fatalf("run should be finished")
	}
	out := strings.Join(m.logs, "\n")
	if !strings.Contains(out, "-> Dig") || !strings.Contains(out, "hello") || !strings.Contains(out, "✓ done") {
		t.Fatalf("unexpected run log:\n%s", out)
	}
}

func TestRunDirectoryRefused(t *testing.T) {
	m, ex := newTestModel(t, Options{SkipConfirmation: true})
	m = update(t, m, keyMsg("r"))
	if ex.runs != 0 || !strings.Contains(m.status, "nothing to run") {
		t.Fatalf("directory should not run, status %q", m.status)
	}
}

func TestMarkAndRunMarked(t *testing.T) {
	m, ex := newTestModel(t, Options{SkipConfirmation: true})
	m = update(t, m, keyMsg("x"))
	if ex.runs != 0 || !strings.Contains(m.status, "nothing marked") {
		t.Fatalf("expected nothing-marked status, got %q", m.status)
	}
	m = update(t, m, keyMsg("down"))
	m = update(t, m, keyMsg(" "))
	m = update(t, m, keyMsg("down"))
	m = update(t, m, keyMsg(" "))
	if it, ok := m.list.Items()[1].(entryItem); !ok || !it.selected || !strings.Contains(it.Title(), "[x]") {
		t.Fatalf("expected Dig marked, got %+v", m.list.Items()[1])
	}
	m = update(t, m, keyMsg("x"))
	if ex.runs != 1 || len(ex.paths) != 2 || ex.paths[0][1] != "Dig" || ex.paths[1][1] != "Host" {
		t.Fatalf("unexpected batch run %v", ex.paths)
	}
	m = drainRun(t, m)
	if len(m.uiModel.Selected("net")) != 0 {
		t.Fatalf("marks should clear after a batch run")
	}
}

func TestMarkRefusesPlainEntry(t *testing.T) {
	m, ex := newTestModel(t, Options{SkipConfirmation: true})
	m = update(t, m, keyMsg("]"))
	m = update(t, m, keyMsg(" "))
	if !strings.Contains(m.status, "Update cannot be combined") {
		t.Fatalf("expected refusal status, got %q", m.status)
	}
	if m.uiModel.IsSelected("apps/Update") {
		t.Fatalf("Update should not be marked")
	}
	m = update(t, m, keyMsg("x"))
	if ex.runs != 0 {
		t.Fatalf("nothing should run, got %d runs", ex.runs)
	}
}

func TestDetailViewAndBack(t *testing.T) {
	m, _ := newTestModel(t, Options{})
	m = update(t, m, keyMsg("down"))
	m = update(t, m, keyMsg("enter"))
	if !m.showDetail || !strings.Contains(m.detail, "$ dig example.com") {
		t.Fatalf("expected command in detail view, got:\n%s", m.detail)
	}
	if !strings.Contains(m.View(), "Viewing: DNS / Dig") {
		t.Fatalf("expected detail status line")
	}
	m = update(t, m, keyMsg("b"))
	if m.showDetail {
		t.Fatalf("b should leave the detail view")
	}
	if !strings.Contains(m.vp.View(), "dig example.com") {
		t.Fatalf("preview should show the highlighted entry, got:\n%s", m.vp.View())
	}
}

func TestWrapText(t *testing.T) {
	got := wrapText("one two three four", 9)
	if strings.Join(got, "|") != "one two|three|four" {
		t.Fatalf("wrapText = %q", got)
	}
}

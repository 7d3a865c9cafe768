// Package model provides a framework-agnostic UI model built on top of
// adapter interfaces so the TUI code can remain presentation-focused.
package model

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/VoxDroid/tabrun/internal/engine"
	"github.com/VoxDroid/tabrun/internal/tui/adapters"
)

// ErrNotFound is returned when a requested tab or entry is not cached.
var ErrNotFound = errors.New("not found")

// UIModel is a framework-agnostic model for screens and actions.
// It depends only on adapter interfaces.
type UIModel struct {
	catalog  adapters.CatalogAdapter
	executor adapters.ExecutorAdapter

	// ContinueOnError applies to multi-select runs.
	ContinueOnError bool

	mu       sync.Mutex
	tabs     []adapters.TabInfo
	selected map[string]bool
}

// New constructs a UIModel backed by the provided adapters.
func New(cat adapters.CatalogAdapter, ex adapters.ExecutorAdapter) *UIModel {
	return &UIModel{catalog: cat, executor: ex, selected: map[string]bool{}}
}

// RefreshList loads the catalog and caches its tabs.
func (m *UIModel) RefreshList(ctx context.Context) error {
	tabs, err := m.catalog.Tabs(ctx)
	if err != nil {
		return err
	}
	m.setTabs(tabs)
	return nil
}

// Reload rebuilds the catalog from disk. On failure the cached tabs stay.
func (m *UIModel) Reload(ctx context.Context) error {
	tabs, err := m.catalog.Refresh(ctx)
	if err != nil {
		return err
	}
	m.setTabs(tabs)
	return nil
}

func (m *UIModel) setTabs(tabs []adapters.TabInfo) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tabs = tabs
	// drop selections that no longer exist
	live := map[string]bool{}
	for _, t := range tabs {
		for _, e := range t.Entries {
			if m.selected[e.ID] {
				live[e.ID] = true
			}
		}
	}
	m.selected = live
}

// Tabs returns the cached tabs.
func (m *UIModel) Tabs() []adapters.TabInfo {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tabs
}

// Entries returns the entries of the tab at index i.
func (m *UIModel) Entries(i int) []adapters.EntryInfo {
	m.mu.Lock()
	defer m.mu.Unlock()
	if i < 0 || i >= len(m.tabs) {
		return nil
	}
	return m.tabs[i].Entries
}

// FindEntry looks an entry up by ID in the cache.
func (m *UIModel) FindEntry(id string) (adapters.EntryInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.tabs {
		for _, e := range t.Entries {
			if e.ID == id {
				return e, nil
			}
		}
	}
	return adapters.EntryInfo{}, ErrNotFound
}

// Preview fetches the preview for an entry.
func (m *UIModel) Preview(ctx context.Context, e adapters.EntryInfo) (engine.Preview, error) {
	return m.catalog.Preview(ctx, e.Tab, e.Path)
}

// ToggleSelect flips the selection mark of a runnable multi-select entry and
// reports the new state. Other entries are never marked.
func (m *UIModel) ToggleSelect(e adapters.EntryInfo) bool {
	if !e.Runnable() || !e.MultiSelect {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.selected[e.ID] {
		delete(m.selected, e.ID)
		return false
	}
	m.selected[e.ID] = true
	return true
}

// IsSelected reports whether the entry is marked.
func (m *UIModel) IsSelected(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.selected[id]
}

// Selected returns the marked entries of a tab in list order.
func (m *UIModel) Selected(tab string) []adapters.EntryInfo {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []adapters.EntryInfo
	for _, t := range m.tabs {
		if t.Name != tab {
			continue
		}
		for _, e := range t.Entries {
			if m.selected[e.ID] {
				out = append(out, e)
			}
		}
	}
	return out
}

// ClearSelection unmarks everything.
func (m *UIModel) ClearSelection() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.selected = map[string]bool{}
}

// Run starts one entry and returns a handle for streaming events.
func (m *UIModel) Run(ctx context.Context, e adapters.EntryInfo) (adapters.RunHandle, error) {
	if !e.Runnable() {
		return nil, fmt.Errorf("%s has nothing to run", e.Name)
	}
	return m.executor.Run(ctx, e.Tab, [][]string{e.Path}, false)
}

// RunSelected runs the marked entries of tab in list order.
func (m *UIModel) RunSelected(ctx context.Context, tab string) (adapters.RunHandle, error) {
	sel := m.Selected(tab)
	if len(sel) == 0 {
		return nil, fmt.Errorf("no entries selected in %s", tab)
	}
	paths := make([][]string, 0, len(sel))
	for _, e := range sel {
		paths = append(paths, e.Path)
	}
	return m.executor.Run(ctx, tab, paths, m.ContinueOnError)
}

// FakeRunHandle simulates a streaming RunHandle for tests.
func FakeRunHandle(lines []string, delay time.Duration) adapters.RunHandle {
	events := make(chan adapters.RunEvent)
	go func() {
		defer close(events)
		for _, l := range lines {
			events <- adapters.RunEvent{Line: l}
			if delay > 0 {
				time.Sleep(delay)
			}
		}
	}()
	return &fakeRunHandle{ch: events}
}

type fakeRunHandle struct{ ch <-chan adapters.RunEvent }

func (f *fakeRunHandle) Events() <-chan adapters.RunEvent { return f.ch }
func (f *fakeRunHandle) Cancel()                          {}

package ui

import (
	"context"

	"github.com/VoxDroid/tabrun/internal/engine"
	"github.com/VoxDroid/tabrun/internal/tui/adapters"
)

// Model defines the subset of the framework-agnostic UI model the TUI
// depends on, so tests can provide fakes.
type Model interface {
	RefreshList(ctx context.Context) error
	Reload(ctx context.Context) error
	Tabs() []adapters.TabInfo
	Entries(tab int) []adapters.EntryInfo
	Preview(ctx context.Context, e adapters.EntryInfo) (engine.Preview, error)
	ToggleSelect(e adapters.EntryInfo) bool
	IsSelected(id string) bool
	Selected(tab string) []adapters.EntryInfo
	ClearSelection()
	Run(ctx context.Context, e adapters.EntryInfo) (adapters.RunHandle, error)
	RunSelected(ctx context.Context, tab string) (adapters.RunHandle, error)
}

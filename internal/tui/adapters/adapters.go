// Package adapters provides adapter interfaces and lightweight types used by
// the TUI to decouple it from the engine.
package adapters

import (
	"context"
	"errors"

	"github.com/VoxDroid/tabrun/internal/catalog"
	"github.com/VoxDroid/tabrun/internal/engine"
	"github.com/VoxDroid/tabrun/internal/executor"
)

// ErrNotFound is used when a requested entry is not in the catalog.
var ErrNotFound = errors.New("not found")

// Command types shown for entries.
const (
	TypeRaw       = engine.EntryRaw
	TypeScript    = engine.EntryScript
	TypeDirectory = engine.EntryDirectory
)

// EntryInfo is one node flattened for list rendering.
type EntryInfo = engine.Entry

// TabInfo is a tab with its entries in pre-order.
type TabInfo = engine.TabEntries

// RunEvent represents streaming output from a run. The final event of a
// node carries its Result.
type RunEvent struct {
	Line   string
	Err    error
	Result *executor.Result
}

// RunHandle is returned by ExecutorAdapter.Run to manage streaming output and cancellation.
type RunHandle interface {
	// Events returns a receive-only channel for streaming output.
	Events() <-chan RunEvent
	// Cancel requests termination of the run.
	Cancel()
}

// CatalogAdapter describes the catalog queries used by the UI.
type CatalogAdapter interface {
	Tabs(ctx context.Context) ([]TabInfo, error)
	// Refresh rebuilds the catalog from disk.
	Refresh(ctx context.Context) ([]TabInfo, error)
	Preview(ctx context.Context, tab string, path []string) (engine.Preview, error)
}

// ExecutorAdapter describes running entries of one tab with streamed output.
type ExecutorAdapter interface {
	Run(ctx context.Context, tab string, paths [][]string, continueOnError bool) (RunHandle, error)
}

// Flatten turns a catalog into tab listings.
func Flatten(c *catalog.Catalog) []TabInfo { return engine.Flatten(c) }

type catalogAdapter struct {
	eng            *engine.Engine
	skipValidation bool
}

// NewCatalogAdapter returns a CatalogAdapter over eng. skipValidation picks
// the tolerant build.
func NewCatalogAdapter(eng *engine.Engine, skipValidation bool) CatalogAdapter {
	return &catalogAdapter{eng: eng, skipValidation: skipValidation}
}

func (a *catalogAdapter) Tabs(ctx context.Context) ([]TabInfo, error) {
	c, err := a.eng.Load(ctx, a.skipValidation)
	if err != nil {
		return nil, err
	}
	return Flatten(c), nil
}

func (a *catalogAdapter) Refresh(ctx context.Context) ([]TabInfo, error) {
	if _, err := a.eng.Load(ctx, a.skipValidation); err != nil {
		return nil, err
	}
	c, err := a.eng.Refresh(ctx)
	if err != nil {
		return nil, err
	}
	return Flatten(c), nil
}

func (a *catalogAdapter) Preview(ctx context.Context, tab string, path []string) (engine.Preview, error) {
	p, err := a.eng.Preview(ctx, tab, path)
	if errors.Is(err, catalog.ErrNodeNotFound) || errors.Is(err, catalog.ErrTabNotFound) {
		return engine.Preview{}, ErrNotFound
	}
	return p, err
}

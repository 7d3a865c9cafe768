// Package engine ties the definition reader, catalog cache and executor
// together behind the calls front-ends use: load, refresh, search, preview
// and execute.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"

	"github.com/VoxDroid/tabrun/internal/catalog"
	"github.com/VoxDroid/tabrun/internal/executor"
	"github.com/VoxDroid/tabrun/internal/logging"
	"github.com/VoxDroid/tabrun/internal/source"
)

// Options configure an Engine. Only Root is required unless Load is set.
type Options struct {
	// Root is the definition directory.
	Root string
	// Probe overrides local script detection during builds.
	Probe catalog.FileProbe
	// Runner executes nodes. Defaults to a plain executor.Executor.
	Runner executor.Runner
	// Load replaces the directory build, e.g. to serve a stored snapshot.
	Load   catalog.LoadFunc
	Logger *log.Logger
}

// Engine is safe for concurrent use.
type Engine struct {
	root   string
	probe  catalog.FileProbe
	runner executor.Runner
	cache  *catalog.Cache
	logger *log.Logger

	// validate remembers the mode of the last Load so Refresh and Search
	// use the catalog the front-end is looking at.
	validate atomic.Bool

	watchMu sync.Mutex
	watcher *source.Watcher
}

// New returns an engine with an empty cache; nothing is read until Load.
func New(opts Options) *Engine {
	e := &Engine{
		root:   opts.Root,
		probe:  opts.Probe,
		runner: opts.Runner,
		logger: logging.OrDiscard(opts.Logger),
	}
	if e.runner == nil {
		e.runner = &executor.Executor{Logger: opts.Logger}
	}
	load := opts.Load
	if load == nil {
		load = e.buildFromDir
	}
	e.cache = catalog.NewCache(load, opts.Logger)
	e.validate.Store(true)
	return e
}

// Root returns the definition directory.
func (e *Engine) Root() string { return e.root }

// Runner returns the executor used for runs.
func (e *Engine) Runner() executor.Runner { return e.runner }

func (e *Engine) buildFromDir(validate bool) (*catalog.Catalog, error) {
	if e.root == "" {
		return nil, errors.New("no definition directory configured")
	}
	src, err := source.Open(e.root)
	if err != nil {
		return nil, fmt.Errorf("build catalog: %w", err)
	}
	return catalog.Build(src, catalog.BuildOptions{Validate: validate, Probe: e.probe, Logger: e.logger})
}

// Load returns the cached catalog, building it on first use. skipValidation
// selects the tolerant build.
func (e *Engine) Load(ctx context.Context, skipValidation bool) (*catalog.Catalog, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	e.validate.Store(!skipValidation)
	return e.cache.GetOrBuild(!skipValidation)
}

// Refresh rebuilds the catalog in the mode of the last Load. Callers keep
// getting the previous catalog until the rebuild succeeds; on failure the
// previous catalog stays.
func (e *Engine) Refresh(ctx context.Context) (*catalog.Catalog, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return e.cache.Refresh(e.validate.Load())
}

// ClearCache drops every cached catalog.
func (e *Engine) ClearCache() { e.cache.Clear() }

// Current returns the catalog last loaded, building it if needed.
func (e *Engine) Current(ctx context.Context) (*catalog.Catalog, error) {
	return e.Load(ctx, !e.validate.Load())
}

// Node resolves a node in the current catalog.
func (e *Engine) Node(ctx context.Context, tab string, path []string) (*catalog.Node, error) {
	cat, err := e.Current(ctx)
	if err != nil {
		return nil, err
	}
	return cat.Node(tab, path)
}

// Search fuzzy-matches query against the current catalog.
func (e *Engine) Search(ctx context.Context, query string) ([]catalog.Match, error) {
	cat, err := e.Current(ctx)
	if err != nil {
		return nil, err
	}
	return catalog.Search(cat, query), nil
}

// ExecuteNode runs one node of the current catalog.
func (e *Engine) ExecuteNode(ctx context.Context, tab string, path []string, opts executor.Options) (executor.Result, error) {
	n, err := e.Node(ctx, tab, path)
	if err != nil {
		return executor.Result{}, err
	}
	return e.runner.Execute(ctx, n, opts)
}

// ExecuteBatch runs several nodes of one tab in the given order. Every path
// is resolved and checked with executor.CheckBatch before anything runs.
func (e *Engine) ExecuteBatch(ctx context.Context, tab string, paths [][]string, continueOnError bool, opts executor.Options) ([]executor.Result, error) {
	cat, err := e.Current(ctx)
	if err != nil {
		return nil, err
	}
	nodes := make([]*catalog.Node, 0, len(paths))
	for _, p := range paths {
		n, err := cat.Node(tab, p)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, n)
	}
	if err := executor.CheckBatch(nodes); err != nil {
		return nil, err
	}
	opts.ContinueOnError = continueOnError
	return e.runner.ExecuteBatch(ctx, nodes, opts)
}

// Watch refreshes the catalog whenever the definition tree changes, until ctx
// is done. onRefresh, when set, receives each refresh outcome.
func (e *Engine) Watch(ctx context.Context, debounce time.Duration, onRefresh func(*catalog.Catalog, error)) error {
	if e.root == "" {
		return errors.New("no definition directory to watch")
	}
	e.watchMu.Lock()
	defer e.watchMu.Unlock()
	if e.watcher != nil && e.watcher.Running() {
		return nil
	}
	e.watcher = source.NewWatcher(e.root, debounce, func(path string) {
		cat, err := e.Refresh(ctx)
		if err != nil {
			e.logger.Warn("refresh after change failed", "path", path, "error", err)
		}
		if onRefresh != nil {
			onRefresh(cat, err)
		}
	}, e.logger)
	return e.watcher.Start(ctx)
}

// StopWatching stops a watcher started by Watch.
func (e *Engine) StopWatching() {
	e.watchMu.Lock()
	defer e.watchMu.Unlock()
	if e.watcher != nil {
		e.watcher.Stop()
	}
}

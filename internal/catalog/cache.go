package catalog

import (
	"sync"
	"sync/atomic"

	"github.com/charmbracelet/log"

	"github.com/VoxDroid/tabrun/internal/logging"
)

// LoadFunc performs one full build in the requested mode.
type LoadFunc func(validate bool) (*Catalog, error)

// Cache holds the last successful build for each validation mode. Readers
// never block on a build in progress once a snapshot exists; at most one
// build runs at a time.
type Cache struct {
	load   LoadFunc
	logger *log.Logger

	buildMu  sync.Mutex
	strict   atomic.Pointer[Catalog]
	tolerant atomic.Pointer[Catalog]
}

// NewCache returns an empty cache that builds with load.
func NewCache(load LoadFunc, logger *log.Logger) *Cache {
	return &Cache{load: load, logger: logging.OrDiscard(logger)}
}

func (c *Cache) slot(validate bool) *atomic.Pointer[Catalog] {
	if validate {
		return &c.strict
	}
	return &c.tolerant
}

// Snapshot returns the cached catalog for the mode without building, or nil.
func (c *Cache) Snapshot(validate bool) *Catalog {
	return c.slot(validate).Load()
}

// GetOrBuild returns the cached catalog for the mode, building it on first
// access.
func (c *Cache) GetOrBuild(validate bool) (*Catalog, error) {
	slot := c.slot(validate)
	if cat := slot.Load(); cat != nil {
		return cat, nil
	}
	c.buildMu.Lock()
	defer c.buildMu.Unlock()
	if cat := slot.Load(); cat != nil {
		return cat, nil
	}
	cat, err := c.load(validate)
	if err != nil {
		c.logger.Error("catalog build failed", "validated", validate, "error", err)
		return nil, err
	}
	slot.Store(cat)
	c.logger.Info("catalog cached", "validated", validate, "tabs", len(cat.Tabs))
	return cat, nil
}

// Refresh rebuilds the catalog for the mode from the source and swaps it in.
// On failure the previous snapshot stays in place. A cached snapshot of the
// other mode is rebuilt in the same call so both modes see the same source;
// if that mode no longer builds, its snapshot is dropped and its next reader
// gets the build error.
func (c *Cache) Refresh(validate bool) (*Catalog, error) {
	c.buildMu.Lock()
	defer c.buildMu.Unlock()
	cat, err := c.load(validate)
	if err != nil {
		c.logger.Error("catalog refresh failed; keeping previous snapshot", "validated", validate, "error", err)
		return nil, err
	}
	c.slot(validate).Store(cat)
	c.logger.Info("catalog refreshed", "validated", validate, "tabs", len(cat.Tabs))

	other := c.slot(!validate)
	if other.Load() == nil {
		return cat, nil
	}
	next, err := c.load(!validate)
	if err != nil {
		c.logger.Warn("catalog refresh failed for other mode; dropping its snapshot", "validated", !validate, "error", err)
		next = nil
	}
	other.Store(next)
	return cat, nil
}

// Clear drops both snapshots. The next GetOrBuild rebuilds.
func (c *Cache) Clear() {
	c.buildMu.Lock()
	defer c.buildMu.Unlock()
	c.strict.Store(nil)
	c.tolerant.Store(nil)
	c.logger.Debug("catalog cache cleared")
}

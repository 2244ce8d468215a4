// Package pipeline turns a wall's tiles into a layout.
//
// It is shared by the CLI, the HTTP API and the watch view so that fetching,
// filtering, caching and laying out tiles behave the same everywhere.
//
// # Stages
//
//  1. Fetch: list the wall's tiles from the store, newest first
//  2. Filter: drop undimensioned tiles when the strategy needs dimensions
//  3. Layout: run the strategy at the requested or preferred column count
//
// # Usage
//
//	runner := pipeline.NewRunner(st, c, nil, logger)
//	res, err := runner.LayoutWall(ctx, wallID, pipeline.Options{Strategy: "skyline"})
//
// Lay out tiles that did not come from a store:
//
//	res, err := runner.LayoutTiles(ctx, tiles, opts)
//
// Keep a layout current as tiles arrive:
//
//	err := runner.Watch(ctx, wallID, notifier, opts, func(u pipeline.Update) { ... })
package pipeline

import (
	"encoding/json"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/memorywall/pkg/cache"
	"github.com/matzehuels/memorywall/pkg/errors"
	"github.com/matzehuels/memorywall/pkg/layout"
)

// DefaultStrategy is the strategy used when Options.Strategy is empty.
const DefaultStrategy = layout.DefaultStrategy

// Options configures a pipeline run.
type Options struct {
	// Strategy is a registered layout strategy name.
	Strategy string `json:"strategy,omitempty"`
	// Columns is the grid width. Zero asks the strategy for its preferred
	// width given the number of tiles.
	Columns int `json:"columns,omitempty"`
	// Layout tunes the strategy.
	Layout layout.Options `json:"layout,omitempty"`
	// Refresh bypasses the tile listing cache.
	Refresh bool `json:"refresh,omitempty"`

	Logger *log.Logger `json:"-"`

	validated bool
}

// Result is the output of a pipeline run.
type Result struct {
	WallID string `json:"wall_id,omitempty"`
	// TilesHash identifies the tiles that were laid out.
	TilesHash string        `json:"tiles_hash"`
	Layout    layout.Result `json:"layout"`
	// Dropped counts tiles left out because the strategy needs dimensions
	// they lack.
	Dropped   int       `json:"dropped,omitempty"`
	Stats     Stats     `json:"stats"`
	CacheInfo CacheInfo `json:"cache"`
}

// Stats holds timing and size information.
type Stats struct {
	TileCount  int           `json:"tile_count"`
	FetchTime  time.Duration `json:"fetch_ns,omitempty"`
	LayoutTime time.Duration `json:"layout_ns"`
}

// CacheInfo records which stages were served from cache.
type CacheInfo struct {
	TilesHit  bool `json:"tiles_hit,omitempty"`
	LayoutHit bool `json:"layout_hit,omitempty"`
}

// ValidateStrategy checks that name is a registered strategy.
func ValidateStrategy(name string) error {
	if !layout.IsStrategy(name) {
		return errors.New(errors.ErrCodeInvalidStrategy, "invalid strategy: %q (must be one of: %v)", name, layout.Names())
	}
	return nil
}

// ValidateAndSetDefaults checks the options and fills defaults. It is
// idempotent.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if o.Strategy == "" {
		o.Strategy = DefaultStrategy
	}
	if err := ValidateStrategy(o.Strategy); err != nil {
		return err
	}
	if o.Columns < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "numColumns must be >= 1, got %d", o.Columns)
	}
	if err := o.Layout.Validate(); err != nil {
		return err
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	o.validated = true
	return nil
}

// NeedsDimensions reports whether the strategy reads tile dimensions.
func (o *Options) NeedsDimensions() bool {
	return o.Strategy == layout.StrategyMasonry || o.Strategy == layout.StrategySpiral
}

// LayoutKeyOpts returns the cache key options for a layout at columns.
func (o *Options) LayoutKeyOpts(columns int) cache.LayoutKeyOpts {
	var spans string
	if len(o.Layout.Spans) > 0 {
		data, _ := json.Marshal(o.Layout.Spans)
		spans = string(data)
	}
	return cache.LayoutKeyOpts{
		Strategy:    o.Strategy,
		Columns:     columns,
		Edge:        string(o.Layout.Edge),
		Spans:       spans,
		SeedStride:  o.Layout.SeedStride,
		ColumnWidth: o.Layout.ColumnWidth,
		Seed:        o.Layout.Seed,
	}
}

package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/singleflight"

	"github.com/matzehuels/memorywall/pkg/cache"
	"github.com/matzehuels/memorywall/pkg/errors"
	"github.com/matzehuels/memorywall/pkg/observability"
	"github.com/matzehuels/memorywall/pkg/store"
	"github.com/matzehuels/memorywall/pkg/wall"
)

// Runner executes the pipeline with caching.
//
// The Runner holds no per-request state. Multiple goroutines can use it with
// different options; identical concurrent wall requests share one fetch and
// layout.
type Runner struct {
	Store  store.Store
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger

	group singleflight.Group
}

// NewRunner creates a runner. A nil cache disables caching and a nil keyer
// selects the DefaultKeyer. The store may be nil if only LayoutTiles is used.
func NewRunner(st store.Store, c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{Store: st, Cache: c, Keyer: keyer, Logger: logger}
}

// LayoutWall fetches a wall's tiles and lays them out.
func (r *Runner) LayoutWall(ctx context.Context, wallID string, opts Options) (*Result, error) {
	if err := errors.ValidateID("wall", wallID); err != nil {
		return nil, err
	}
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}
	if r.Store == nil {
		return nil, errors.New(errors.ErrCodeInvalidConfig, "runner has no store")
	}

	flightKey := fmt.Sprintf("%s|%v|%s", wallID, opts.Refresh, r.Keyer.LayoutKey("", opts.LayoutKeyOpts(opts.Columns)))
	v, err, shared := r.group.Do(flightKey, func() (any, error) {
		fetchStart := time.Now()
		tiles, tilesHit, err := r.FetchTiles(ctx, wallID, opts.Refresh)
		if err != nil {
			return nil, fmt.Errorf("fetch: %w", err)
		}
		fetchTime := time.Since(fetchStart)

		res, err := r.LayoutTiles(ctx, tiles, opts)
		if err != nil {
			return nil, err
		}
		res.WallID = wallID
		res.Stats.FetchTime = fetchTime
		res.CacheInfo.TilesHit = tilesHit
		return res, nil
	})
	if err != nil {
		return nil, err
	}
	if shared {
		r.Logger.Debug("shared in-flight layout", "wall", wallID)
	}
	// Callers may mutate their copy.
	res := *v.(*Result)
	return &res, nil
}

// FetchTiles lists a wall's tiles, consulting the tile cache unless refresh
// is set. It reports whether the cache served the listing.
func (r *Runner) FetchTiles(ctx context.Context, wallID string, refresh bool) ([]wall.Tile, bool, error) {
	key := r.Keyer.TilesKey(wallID)
	if !refresh {
		if data, hit, err := r.Cache.Get(ctx, key); err == nil && hit {
			var tiles []wall.Tile
			if err := json.Unmarshal(data, &tiles); err == nil {
				observability.Cache().OnCacheHit(ctx, "tiles")
				return tiles, true, nil
			}
		}
		observability.Cache().OnCacheMiss(ctx, "tiles")
	}

	tiles, err := r.Store.ListTiles(ctx, wallID)
	if err != nil {
		return nil, false, err
	}
	// Stores already sort, but the order is part of the layout contract.
	wall.SortNewestFirst(tiles)

	if data, err := json.Marshal(tiles); err == nil {
		if err := r.Cache.Set(ctx, key, data, cache.TTLTiles); err == nil {
			observability.Cache().OnCacheSet(ctx, "tiles", len(data))
		}
	}
	return tiles, false, nil
}

// Invalidate drops the cached tile listing of a wall.
func (r *Runner) Invalidate(ctx context.Context, wallID string) error {
	return r.Cache.Delete(ctx, r.Keyer.TilesKey(wallID))
}

// LayoutTiles lays out tiles in the given order, consulting the layout cache.
func (r *Runner) LayoutTiles(ctx context.Context, tiles []wall.Tile, opts Options) (*Result, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}

	tilesHash, err := cache.HashJSON(tiles)
	if err != nil {
		return nil, err
	}
	res := &Result{TilesHash: tilesHash, Stats: Stats{TileCount: len(tiles)}}
	key := r.Keyer.LayoutKey(tilesHash, opts.LayoutKeyOpts(opts.Columns))

	if data, hit, err := r.Cache.Get(ctx, key); err == nil && hit {
		var cached Result
		if err := json.Unmarshal(data, &cached); err == nil {
			observability.Cache().OnCacheHit(ctx, "layout")
			res.Layout = cached.Layout
			res.Dropped = cached.Dropped
			res.CacheInfo.LayoutHit = true
			return res, nil
		}
	}
	observability.Cache().OnCacheMiss(ctx, "layout")

	hooks := observability.Layout()
	hooks.OnLayoutStart(ctx, opts.Strategy, len(tiles))
	start := time.Now()
	lr, dropped, err := ComputeLayout(tiles, opts)
	res.Stats.LayoutTime = time.Since(start)
	hooks.OnLayoutComplete(ctx, opts.Strategy, len(tiles), lr.Fallbacks, res.Stats.LayoutTime, err)
	if err != nil {
		return nil, fmt.Errorf("layout: %w", err)
	}
	res.Layout = lr
	res.Dropped = dropped

	if dropped > 0 {
		r.Logger.Warn("dropped tiles without dimensions", "strategy", opts.Strategy, "dropped", dropped)
	}
	r.Logger.Debug("computed layout",
		"strategy", opts.Strategy,
		"tiles", len(lr.Tiles),
		"columns", lr.Columns,
		"fallbacks", lr.Fallbacks,
		"duration", res.Stats.LayoutTime)

	if data, err := json.Marshal(Result{Layout: lr, Dropped: dropped}); err == nil {
		if err := r.Cache.Set(ctx, key, data, cache.TTLLayout); err == nil {
			observability.Cache().OnCacheSet(ctx, "layout", len(data))
		}
	}
	return res, nil
}

// Close releases the cache and the store.
func (r *Runner) Close() error {
	var errs []error
	if r.Cache != nil {
		errs = append(errs, r.Cache.Close())
	}
	if r.Store != nil {
		errs = append(errs, r.Store.Close())
	}
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

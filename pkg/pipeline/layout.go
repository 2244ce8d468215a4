package pipeline

import (
	"github.com/matzehuels/memorywall/pkg/layout"
	"github.com/matzehuels/memorywall/pkg/wall"
)

// ComputeLayout lays out tiles without caching. Tiles the strategy cannot
// place for lack of dimensions are dropped and counted.
func ComputeLayout(tiles []wall.Tile, opts Options) (layout.Result, int, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return layout.Result{}, 0, err
	}
	strategy, err := layout.New(opts.Strategy, opts.Layout)
	if err != nil {
		return layout.Result{}, 0, err
	}

	dropped := 0
	if opts.NeedsDimensions() {
		tiles, dropped = wall.FilterDimensioned(tiles)
	}
	res, err := strategy.Layout(tiles, resolveColumns(strategy, opts.Columns, len(tiles)))
	if err != nil {
		return layout.Result{}, dropped, err
	}
	return res, dropped, nil
}

func resolveColumns(s layout.Strategy, requested, n int) int {
	if requested > 0 {
		return requested
	}
	return s.Columns(n)
}

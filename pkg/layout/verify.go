package layout

import (
	"slices"

	"github.com/matzehuels/memorywall/pkg/errors"
)

// Verify checks that every tile has positive spans and that no two tiles
// share a cell.
func Verify(tiles []PositionedTile) error {
	for i, t := range tiles {
		if t.ColumnSpan < 1 || t.RowSpan < 1 {
			return errors.New(errors.ErrCodeLayoutFailed, "tile %d has span %dx%d", i, t.ColumnSpan, t.RowSpan)
		}
		if t.Column < 0 || t.Row < 0 {
			return errors.New(errors.ErrCodeLayoutFailed, "tile %d is at negative position (%d,%d)", i, t.Column, t.Row)
		}
	}

	// Sweep by row so only tiles that can still intersect are compared.
	idx := make([]int, len(tiles))
	for i := range idx {
		idx[i] = i
	}
	slices.SortFunc(idx, func(a, b int) int { return tiles[a].Row - tiles[b].Row })

	for k, i := range idx {
		a := tiles[i]
		for _, j := range idx[k+1:] {
			b := tiles[j]
			if b.Row >= a.Bottom() {
				break
			}
			if a.Column < b.Right() && b.Column < a.Right() {
				return errors.New(errors.ErrCodeLayoutFailed,
					"tiles %d and %d overlap at (%d,%d)", i, j, max(a.Column, b.Column), b.Row)
			}
		}
	}
	return nil
}

// VerifyResult runs Verify and, for grid results, also checks that every tile
// lies within the column count and that the result covers want tiles.
func VerifyResult(res Result, want int) error {
	if len(res.Tiles) != want {
		return errors.New(errors.ErrCodeLayoutFailed, "layout has %d tiles, want %d", len(res.Tiles), want)
	}
	if res.Unit == UnitCell || res.Strategy == StrategyMasonry {
		for i, t := range res.Tiles {
			if t.Right() > res.Columns {
				return errors.New(errors.ErrCodeLayoutFailed,
					"tile %d spans columns [%d,%d) beyond %d", i, t.Column, t.Right(), res.Columns)
			}
		}
	}
	return Verify(res.Tiles)
}

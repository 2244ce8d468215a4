package layout

import (
	"math"

	"github.com/matzehuels/memorywall/pkg/wall"
)

type masonry struct{ opts Options }

func (masonry) Name() string { return StrategyMasonry }

func (masonry) Columns(int) int { return MasonryColumns }

// Layout drops each tile into the shortest column, first column on ties.
// Rows and row spans are pixels; a tile of w x h is drawn
// round(ColumnWidth*h/w) pixels tall.
func (m masonry) Layout(tiles []wall.Tile, columns int) (Result, error) {
	if err := checkColumns(columns); err != nil {
		return Result{}, err
	}
	if err := requireDimensions(StrategyMasonry, tiles); err != nil {
		return Result{}, err
	}

	cw := m.opts.ColumnWidth
	heights := make([]int, columns)
	out := make([]PositionedTile, 0, len(tiles))

	for _, tile := range tiles {
		w, h := tile.Size()
		rh := max(1, int(math.Round(float64(cw)*float64(h)/float64(w))))

		col := 0
		for c := 1; c < columns; c++ {
			if heights[c] < heights[col] {
				col = c
			}
		}
		out = append(out, PositionedTile{
			Tile:       tile,
			Column:     col,
			Row:        heights[col],
			ColumnSpan: 1,
			RowSpan:    rh,
		})
		heights[col] += rh
	}

	return Result{
		Strategy:    StrategyMasonry,
		Unit:        UnitPixel,
		Columns:     columns,
		ColumnWidth: cw,
		Tiles:       out,
		Heights:     heights,
	}, nil
}

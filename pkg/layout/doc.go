// Package layout arranges wall tiles on a grid.
//
// # Overview
//
// A layout takes the ordered tiles of a wall and a column count and assigns
// every tile a top-left cell and a span. Layouts are pure: the same tiles and
// options always produce the same [Result], nothing is retained between
// calls, and concurrent calls are safe.
//
// # Strategies
//
// Three strategies are available by name through [New]:
//
//   - skyline (default): a grid-span packer. Each tile is offered the spans
//     2x2, 2x1, 1x2 and 1x1, rotated by a per-tile seeded offset, and lands on
//     the lowest part of the column skyline. Tile dimensions are ignored.
//
//   - masonry: fixed-width columns. Each tile drops into the currently
//     shortest column with a height that preserves its aspect ratio.
//
//   - spiral: a free canvas. Tiles are shuffled and walked outward along a
//     jittered spiral until they fit without overlap.
//
// Strategies are never mixed within one result. masonry and spiral need tile
// dimensions and reject tiles without them; callers filter those first with
// [wall.FilterDimensioned].
//
// # Grid Units
//
// Skyline results are measured in abstract cells ([UnitCell]); the renderer
// picks the cell size. masonry and spiral results are in pixels ([UnitPixel]).
// In every case a [PositionedTile] occupies the half-open rectangle
// [Column, Column+ColumnSpan) x [Row, Row+RowSpan), and the rectangles of one
// result never intersect. [Verify] checks that property.
//
// # Building a Layout
//
//	s, err := layout.New("skyline", layout.Options{})
//	if err != nil {
//	    return err
//	}
//	res, err := s.Layout(tiles, layout.Columns(len(tiles)))
//
// [Pack] is shorthand for the default skyline strategy.
//
// [wall.FilterDimensioned]: github.com/matzehuels/memorywall/pkg/wall.FilterDimensioned
package layout

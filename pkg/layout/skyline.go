package layout

import (
	"slices"

	"github.com/matzehuels/memorywall/pkg/prng"
	"github.com/matzehuels/memorywall/pkg/wall"
)

type skyline struct{ opts Options }

func (skyline) Name() string { return StrategySkyline }

func (skyline) Columns(n int) int { return Columns(n) }

// Layout packs tiles onto a column skyline.
//
// For tile i the candidate spans are rotated left by
// floor(prng.Float((i+1)*stride) * len(spans)). Columns are scanned left to
// right and, within a column, the rotated candidates in order. A candidate is
// accepted when its top edge lands exactly on the current minimum column
// height; the covered columns are then raised to that height plus the row
// span. If nothing is accepted the tile becomes a 1x1 at the first lowest
// column.
func (s skyline) Layout(tiles []wall.Tile, columns int) (Result, error) {
	if err := checkColumns(columns); err != nil {
		return Result{}, err
	}

	heights := make([]int, columns)
	res := Result{
		Strategy: StrategySkyline,
		Unit:     UnitCell,
		Columns:  columns,
		Tiles:    make([]PositionedTile, 0, len(tiles)),
	}
	spans := make([]Span, len(s.opts.Spans))

	for i, tile := range tiles {
		s.rotated(spans, i)
		floor := slices.Min(heights)

		p, ok := s.place(heights, spans, floor)
		if !ok {
			col := slices.Index(heights, floor)
			p = PositionedTile{Column: col, Row: floor, ColumnSpan: 1, RowSpan: 1, Fallback: true}
			res.Fallbacks++
		}
		for c := p.Column; c < p.Right(); c++ {
			heights[c] = p.Bottom()
		}
		p.Tile = tile
		res.Tiles = append(res.Tiles, p)
	}

	res.Heights = heights
	return res, nil
}

// rotated writes the candidate list for tile i into dst.
func (s skyline) rotated(dst []Span, i int) {
	n := len(s.opts.Spans)
	seed := uint32(i+1) * s.opts.SeedStride
	offset := int(prng.Float(seed) * float64(n))
	copy(dst, s.opts.Spans[offset:])
	copy(dst[n-offset:], s.opts.Spans[:offset])
}

func (s skyline) place(heights []int, spans []Span, floor int) (PositionedTile, bool) {
	n := len(heights)
	for col := range n {
		for _, sp := range spans {
			w, ok := s.width(heights, col, sp.Columns)
			if !ok {
				continue
			}
			if y := slices.Max(heights[col : col+w]); y == floor {
				return PositionedTile{Column: col, Row: y, ColumnSpan: w, RowSpan: sp.Rows}, true
			}
		}
	}
	return PositionedTile{}, false
}

// width returns the effective width of a candidate of width want placed at
// col, or false if the edge policy rejects it.
func (s skyline) width(heights []int, col, want int) (int, bool) {
	n := len(heights)
	switch s.opts.Edge {
	case EdgeSkip:
		probe := want
		if col+want > n {
			probe = 1
		}
		w := want
		if !level(heights[col : col+probe]) {
			w = 1
		}
		if col+w > n {
			return 0, false
		}
		return w, true
	default:
		w := want
		if col+w > n {
			w = 1
		}
		if !level(heights[col : col+w]) {
			w = 1
		}
		return w, true
	}
}

func level(hs []int) bool {
	for _, h := range hs[1:] {
		if h != hs[0] {
			return false
		}
	}
	return true
}

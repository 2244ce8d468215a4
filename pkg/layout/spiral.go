package layout

import (
	"math"

	"github.com/matzehuels/memorywall/pkg/errors"
	"github.com/matzehuels/memorywall/pkg/prng"
	"github.com/matzehuels/memorywall/pkg/wall"
)

// Spiral search parameters.
const (
	spiralAttempts       = 30
	spiralStepIncrement  = 50
	spiralStepsPerCircle = 600
	spiralMaxTries       = 8000
	spiralJitter         = 10
)

var spiralAngleStep = math.Pi / 300

type spiral struct{ opts Options }

func (spiral) Name() string { return StrategySpiral }

// Columns is unused by the spiral canvas.
func (spiral) Columns(int) int { return 0 }

type rect struct{ x, y, w, h int }

func (r rect) overlaps(o rect) bool {
	return r.x < o.x+o.w && o.x < r.x+r.w && r.y < o.y+o.h && o.y < r.y+r.h
}

// Layout shuffles the tiles and walks each one outward from the origin along a
// jittered spiral until it overlaps nothing already placed. When a tile does
// not fit within the try budget the whole pass restarts with wider rings.
// The columns argument is ignored; the result's Columns is the canvas width.
func (s spiral) Layout(tiles []wall.Tile, _ int) (Result, error) {
	if err := requireDimensions(StrategySpiral, tiles); err != nil {
		return Result{}, err
	}
	res := Result{Strategy: StrategySpiral, Unit: UnitPixel, ColumnWidth: 1, Tiles: []PositionedTile{}}
	if len(tiles) == 0 {
		return res, nil
	}

	order := make([]int, len(tiles))
	for i := range order {
		order[i] = i
	}
	rng := prng.New(s.opts.Seed)
	rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })

	for attempt := range spiralAttempts {
		step := spiralStepIncrement + attempt*spiralStepIncrement
		if rects, ok := s.pass(tiles, order, step, rng); ok {
			res.Tiles = normalize(tiles, rects)
			res.Columns = canvasWidth(res.Tiles)
			return res, nil
		}
	}
	return Result{}, errors.New(errors.ErrCodeLayoutFailed,
		"spiral layout could not place %d tiles after %d expansions", len(tiles), spiralAttempts)
}

// pass places every tile in order at ring spacing step. rects is indexed by
// the original tile position.
func (s spiral) pass(tiles []wall.Tile, order []int, step int, rng *prng.Source) ([]rect, bool) {
	rects := make([]rect, len(tiles))
	placed := make([]rect, 0, len(tiles))

	for k, idx := range order {
		w, h := tiles[idx].Size()
		if k == 0 {
			rects[idx] = rect{x: -w / 2, y: -h / 2, w: w, h: h}
			placed = append(placed, rects[idx])
			continue
		}

		found := false
		for t := range spiralMaxTries {
			radius := float64(step * (t / spiralStepsPerCircle))
			angle := float64(t%spiralStepsPerCircle) * spiralAngleStep
			cx := int(math.Round(radius*math.Cos(angle))) + int(math.Floor(rng.Range(spiralJitter)))
			cy := int(math.Round(radius*math.Sin(angle))) + int(math.Floor(rng.Range(spiralJitter)))

			r := rect{x: cx - w/2, y: cy - h/2, w: w, h: h}
			if !collides(r, placed) {
				rects[idx] = r
				placed = append(placed, r)
				found = true
				break
			}
		}
		if !found {
			return nil, false
		}
	}
	return rects, true
}

func collides(r rect, placed []rect) bool {
	for _, p := range placed {
		if r.overlaps(p) {
			return true
		}
	}
	return false
}

// normalize translates rects so the smallest x and y are zero.
func normalize(tiles []wall.Tile, rects []rect) []PositionedTile {
	minX, minY := math.MaxInt, math.MaxInt
	for _, r := range rects {
		minX, minY = min(minX, r.x), min(minY, r.y)
	}
	out := make([]PositionedTile, len(tiles))
	for i, r := range rects {
		out[i] = PositionedTile{
			Tile:       tiles[i],
			Column:     r.x - minX,
			Row:        r.y - minY,
			ColumnSpan: r.w,
			RowSpan:    r.h,
		}
	}
	return out
}

func canvasWidth(tiles []PositionedTile) int {
	w := 0
	for _, t := range tiles {
		w = max(w, t.Right())
	}
	return w
}

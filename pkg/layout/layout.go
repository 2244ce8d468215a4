package layout

import (
	"math"
	"slices"
	"sort"

	"github.com/matzehuels/memorywall/pkg/errors"
	"github.com/matzehuels/memorywall/pkg/wall"
)

// Strategy names.
const (
	StrategySkyline = "skyline"
	StrategyMasonry = "masonry"
	StrategySpiral  = "spiral"

	DefaultStrategy = StrategySkyline
)

// Unit is the measure of Row, Column and the spans of a result.
type Unit string

const (
	UnitCell  Unit = "cell"
	UnitPixel Unit = "px"
)

// Span is the number of columns and rows a tile covers.
type Span struct {
	Columns int `json:"columns" yaml:"columns" toml:"columns"`
	Rows    int `json:"rows" yaml:"rows" toml:"rows"`
}

// CanonicalSpans is the default skyline candidate order.
var CanonicalSpans = []Span{{2, 2}, {2, 1}, {1, 2}, {1, 1}}

// EdgePolicy decides what the skyline packer does with a wide candidate that
// would cross the right edge of the grid.
type EdgePolicy string

const (
	// EdgeClamp narrows the candidate to one column.
	EdgeClamp EdgePolicy = "clamp"
	// EdgeSkip drops the candidate and moves on to the next one.
	EdgeSkip EdgePolicy = "skip"
)

// Defaults.
const (
	DefaultSeedStride  = 9973
	DefaultColumnWidth = 250
	MasonryColumns     = 5
)

// PositionedTile is a tile with its place in the layout.
type PositionedTile struct {
	wall.Tile
	Column     int  `json:"column"`
	Row        int  `json:"row"`
	ColumnSpan int  `json:"column_span"`
	RowSpan    int  `json:"row_span"`
	Fallback   bool `json:"fallback,omitempty"`
}

// Right returns the first column past the tile.
func (p PositionedTile) Right() int { return p.Column + p.ColumnSpan }

// Bottom returns the first row past the tile.
func (p PositionedTile) Bottom() int { return p.Row + p.RowSpan }

// Result is a complete layout.
type Result struct {
	Strategy string `json:"strategy"`
	Unit     Unit   `json:"unit"`
	// Columns is the grid width in columns (skyline, masonry) or the canvas
	// width in pixels (spiral).
	Columns int `json:"columns"`
	// ColumnWidth is the pixel width of one column, or 0 when the renderer
	// chooses.
	ColumnWidth int              `json:"column_width,omitempty"`
	Tiles       []PositionedTile `json:"tiles"`
	// Heights holds the final height of every column.
	Heights   []int `json:"heights,omitempty"`
	Fallbacks int   `json:"fallbacks,omitempty"`
}

// Height returns the height of the tallest column.
func (r Result) Height() int {
	h := 0
	for _, t := range r.Tiles {
		h = max(h, t.Bottom())
	}
	return h
}

// Options tune the strategies. The zero value selects the defaults.
type Options struct {
	// Spans is the skyline candidate list in canonical order.
	Spans []Span `json:"spans,omitempty"`
	// Edge is the skyline edge policy. Empty means EdgeClamp.
	Edge EdgePolicy `json:"edge,omitempty"`
	// SeedStride multiplies (i+1) to seed the span rotation of tile i.
	SeedStride uint32 `json:"seed_stride,omitempty"`
	// ColumnWidth is the masonry column width in pixels.
	ColumnWidth int `json:"column_width,omitempty"`
	// Seed drives the spiral shuffle and jitter.
	Seed uint32 `json:"seed,omitempty"`
}

// withDefaults fills zero fields. It does not validate.
func (o Options) withDefaults() Options {
	if len(o.Spans) == 0 {
		o.Spans = CanonicalSpans
	}
	if o.Edge == "" {
		o.Edge = EdgeClamp
	}
	if o.SeedStride == 0 {
		o.SeedStride = DefaultSeedStride
	}
	if o.ColumnWidth == 0 {
		o.ColumnWidth = DefaultColumnWidth
	}
	return o
}

// Validate reports the first invalid option.
func (o Options) Validate() error {
	for _, s := range o.Spans {
		if s.Columns < 1 || s.Rows < 1 {
			return errors.New(errors.ErrCodeInvalidConfig, "span %dx%d must be positive", s.Columns, s.Rows)
		}
	}
	switch o.Edge {
	case "", EdgeClamp, EdgeSkip:
	default:
		return errors.New(errors.ErrCodeInvalidConfig, "unknown edge policy %q (want %s or %s)", o.Edge, EdgeClamp, EdgeSkip)
	}
	if o.ColumnWidth < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "column width must be positive, got %d", o.ColumnWidth)
	}
	return nil
}

// Strategy lays out tiles.
type Strategy interface {
	// Name returns the registered strategy name.
	Name() string
	// Columns returns the column count the strategy prefers for n tiles.
	Columns(n int) int
	// Layout places tiles. Implementations must return one positioned tile
	// per input tile, in input order.
	Layout(tiles []wall.Tile, columns int) (Result, error)
}

type factory func(Options) Strategy

var registry = map[string]factory{
	StrategySkyline: func(o Options) Strategy { return skyline{opts: o} },
	StrategyMasonry: func(o Options) Strategy { return masonry{opts: o} },
	StrategySpiral:  func(o Options) Strategy { return spiral{opts: o} },
}

// New returns the named strategy configured with opts. An empty name selects
// DefaultStrategy.
func New(name string, opts Options) (Strategy, error) {
	if name == "" {
		name = DefaultStrategy
	}
	f, ok := registry[name]
	if !ok {
		return nil, errors.New(errors.ErrCodeInvalidStrategy, "unknown layout strategy %q (available: %v)", name, Names())
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return f(opts.withDefaults()), nil
}

// Names lists the registered strategies in sorted order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsStrategy reports whether name is registered.
func IsStrategy(name string) bool {
	_, ok := registry[name]
	return ok
}

// Pack lays out tiles with the default skyline strategy.
func Pack(tiles []wall.Tile, columns int) ([]PositionedTile, error) {
	res, err := skyline{opts: Options{}.withDefaults()}.Layout(tiles, columns)
	if err != nil {
		return nil, err
	}
	return res.Tiles, nil
}

// Columns returns max(1, ceil(sqrt(n) * 1.33)), the grid width that keeps a
// wall of n tiles roughly square.
func Columns(n int) int {
	if n <= 0 {
		return 1
	}
	return max(1, int(math.Ceil(math.Sqrt(float64(n))*1.33)))
}

func checkColumns(columns int) error {
	if columns < 1 {
		return errors.New(errors.ErrCodeInvalidConfig, "numColumns must be >= 1, got %d", columns)
	}
	return nil
}

func requireDimensions(strategy string, tiles []wall.Tile) error {
	if i := slices.IndexFunc(tiles, func(t wall.Tile) bool { return !t.Dimensioned() }); i >= 0 {
		return errors.New(errors.ErrCodeInvalidTile,
			"%s layout needs tile dimensions; tile %d (%q, %s) has none", strategy, i, tiles[i].ID, tiles[i].Kind)
	}
	return nil
}

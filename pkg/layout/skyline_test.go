package layout

import (
	"slices"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/matzehuels/memorywall/pkg/errors"
	"github.com/matzehuels/memorywall/pkg/wall"
)

// cell is the placement of one tile without its payload.
type cell struct{ Col, Row, ColSpan, RowSpan int }

func cells(tiles []PositionedTile) []cell {
	out := make([]cell, len(tiles))
	for i, p := range tiles {
		out[i] = cell{p.Column, p.Row, p.ColumnSpan, p.RowSpan}
	}
	return out
}

func skylineWith(t *testing.T, opts Options) Strategy {
	t.Helper()
	s, err := New(StrategySkyline, opts)
	if err != nil {
		t.Fatalf("New(skyline) error = %v", err)
	}
	return s
}

func TestSkylineScenarios(t *testing.T) {
	tests := []struct {
		name        string
		tiles       int
		columns     int
		opts        Options
		want        []cell
		wantHeights []int
	}{
		{
			name:        "three text tiles on six columns",
			tiles:       3,
			columns:     6,
			want:        []cell{{0, 0, 2, 2}, {2, 0, 1, 1}, {3, 0, 1, 1}},
			wantHeights: []int{2, 2, 1, 1, 0, 0},
		},
		{
			name:        "single column clamps wide span",
			tiles:       1,
			columns:     1,
			want:        []cell{{0, 0, 1, 2}},
			wantHeights: []int{2},
		},
		{
			name:    "ten tiles on four columns",
			tiles:   10,
			columns: 4,
			want: []cell{
				{0, 0, 2, 2}, {2, 0, 1, 1}, {3, 0, 1, 1}, {2, 1, 1, 2}, {3, 1, 1, 2},
				{0, 2, 2, 1}, {0, 3, 2, 1}, {2, 3, 2, 2}, {0, 4, 2, 2}, {2, 5, 1, 1},
			},
			wantHeights: []int{6, 6, 6, 5},
		},
		{
			name:        "clamp keeps a narrowed wide span",
			tiles:       6,
			columns:     1,
			want:        []cell{{0, 0, 1, 2}, {0, 2, 1, 1}, {0, 3, 1, 1}, {0, 4, 1, 2}, {0, 6, 1, 2}, {0, 8, 1, 1}},
			wantHeights: []int{9},
		},
		{
			name:        "skip drops an overflowing wide span",
			tiles:       6,
			columns:     1,
			opts:        Options{Edge: EdgeSkip},
			want:        []cell{{0, 0, 1, 2}, {0, 2, 1, 1}, {0, 3, 1, 1}, {0, 4, 1, 2}, {0, 6, 1, 2}, {0, 8, 1, 2}},
			wantHeights: []int{10},
		},
		{
			name:    "skip policy on five columns",
			tiles:   8,
			columns: 5,
			opts:    Options{Edge: EdgeSkip},
			want: []cell{
				{0, 0, 2, 2}, {2, 0, 1, 1}, {3, 0, 1, 1}, {4, 0, 1, 2},
				{2, 1, 1, 2}, {3, 1, 1, 1}, {0, 2, 2, 1}, {3, 2, 2, 2},
			},
			wantHeights: []int{3, 3, 3, 4, 4},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := skylineWith(t, tt.opts).Layout(textTiles(tt.tiles), tt.columns)
			if err != nil {
				t.Fatalf("Layout() error = %v", err)
			}
			if diff := cmp.Diff(tt.want, cells(res.Tiles)); diff != "" {
				t.Errorf("placements mismatch (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(tt.wantHeights, res.Heights); diff != "" {
				t.Errorf("heights mismatch (-want +got):\n%s", diff)
			}
			if res.Fallbacks != 0 {
				t.Errorf("Fallbacks = %d, want 0", res.Fallbacks)
			}
		})
	}
}

func TestSkylineFallback(t *testing.T) {
	opts := Options{Spans: []Span{{2, 1}}, Edge: EdgeSkip}
	res, err := skylineWith(t, opts).Layout(textTiles(2), 3)
	if err != nil {
		t.Fatalf("Layout() error = %v", err)
	}

	want := []cell{{0, 0, 2, 1}, {2, 0, 1, 1}}
	if diff := cmp.Diff(want, cells(res.Tiles)); diff != "" {
		t.Errorf("placements mismatch (-want +got):\n%s", diff)
	}
	if res.Fallbacks != 1 {
		t.Errorf("Fallbacks = %d, want 1", res.Fallbacks)
	}
	if res.Tiles[0].Fallback || !res.Tiles[1].Fallback {
		t.Errorf("Fallback flags = %v, %v; want false, true", res.Tiles[0].Fallback, res.Tiles[1].Fallback)
	}
	if diff := cmp.Diff([]int{1, 1, 1}, res.Heights); diff != "" {
		t.Errorf("heights mismatch (-want +got):\n%s", diff)
	}
}

func TestSkylineClampNeverFallsBack(t *testing.T) {
	// Same setup as the fallback case: clamping narrows the wide span instead.
	res, err := skylineWith(t, Options{Spans: []Span{{2, 1}}}).Layout(textTiles(2), 3)
	if err != nil {
		t.Fatal(err)
	}
	if res.Fallbacks != 0 {
		t.Errorf("Fallbacks = %d, want 0", res.Fallbacks)
	}
	if diff := cmp.Diff([]cell{{0, 0, 2, 1}, {2, 0, 1, 1}}, cells(res.Tiles)); diff != "" {
		t.Errorf("placements mismatch (-want +got):\n%s", diff)
	}
}

func TestSkylineInvalidColumns(t *testing.T) {
	for _, columns := range []int{0, -1, -100} {
		for _, n := range []int{0, 3} {
			_, err := skylineWith(t, Options{}).Layout(textTiles(n), columns)
			if !errors.Is(err, errors.ErrCodeInvalidConfig) {
				t.Errorf("Layout(%d tiles, %d columns) error = %v, want %v", n, columns, err, errors.ErrCodeInvalidConfig)
			}
		}
	}
	if _, err := Pack(nil, 0); !errors.Is(err, errors.ErrCodeInvalidConfig) {
		t.Errorf("Pack(nil, 0) error = %v, want %v", err, errors.ErrCodeInvalidConfig)
	}
}

func TestSkylineEmpty(t *testing.T) {
	got, err := Pack(nil, 4)
	if err != nil {
		t.Fatalf("Pack(nil, 4) error = %v", err)
	}
	if len(got) != 0 {
		t.Errorf("Pack(nil, 4) = %v, want empty", got)
	}
}

func TestSkylineTotality(t *testing.T) {
	for columns := 1; columns <= 12; columns++ {
		for n := 0; n <= 60; n += 7 {
			tiles := textTiles(n)
			got, err := Pack(tiles, columns)
			if err != nil {
				t.Fatalf("Pack(%d, %d) error = %v", n, columns, err)
			}
			if len(got) != n {
				t.Fatalf("Pack(%d, %d) returned %d tiles", n, columns, len(got))
			}
			for i, p := range got {
				if p.ID != tiles[i].ID {
					t.Fatalf("Pack(%d, %d): tile %d is %q, want %q", n, columns, i, p.ID, tiles[i].ID)
				}
				if p.ColumnSpan < 1 || p.RowSpan < 1 || p.Right() > columns {
					t.Fatalf("Pack(%d, %d): tile %d out of grid: %+v", n, columns, i, cells(got)[i])
				}
			}
			if err := Verify(got); err != nil {
				t.Fatalf("Pack(%d, %d): %v", n, columns, err)
			}
		}
	}
}

func TestSkylineDeterministic(t *testing.T) {
	tiles := textTiles(40)
	a, err := Pack(tiles, 7)
	if err != nil {
		t.Fatal(err)
	}
	b, err := Pack(slices.Clone(tiles), 7)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(a, b, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("layouts differ (-first +second):\n%s", diff)
	}
}

func TestSkylineIgnoresDimensions(t *testing.T) {
	text := textTiles(12)
	media := make([]wall.Tile, len(text))
	for i := range media {
		media[i] = wall.Tile{ID: text[i].ID, Kind: wall.KindImage, Width: wall.Dim(500), Height: wall.Dim(100 + 70*i)}
	}
	a, _ := Pack(text, 5)
	b, _ := Pack(media, 5)
	if diff := cmp.Diff(cells(a), cells(b)); diff != "" {
		t.Errorf("dimensions changed the layout (-text +media):\n%s", diff)
	}
}

func TestSkylineBalance(t *testing.T) {
	// Layouts are prefix stable, so the final heights of a prefix are the
	// heights after that step of the full run.
	const n = 60
	for columns := 1; columns <= 12; columns++ {
		tiles := textTiles(n)
		full, err := Pack(tiles, columns)
		if err != nil {
			t.Fatal(err)
		}
		for k := 1; k <= n; k++ {
			res, err := skylineWith(t, Options{}).Layout(tiles[:k], columns)
			if err != nil {
				t.Fatal(err)
			}
			if spread := slices.Max(res.Heights) - slices.Min(res.Heights); spread > 2 {
				t.Fatalf("columns=%d after %d tiles: heights %v spread %d > 2", columns, k, res.Heights, spread)
			}
			if cells(res.Tiles)[k-1] != cells(full)[k-1] {
				t.Fatalf("columns=%d: tile %d differs between prefix and full run", columns, k-1)
			}
		}
	}
}

func TestSkylineSeedStride(t *testing.T) {
	tiles := textTiles(10)
	def, _ := skylineWith(t, Options{}).Layout(tiles, 4)
	same, _ := skylineWith(t, Options{SeedStride: DefaultSeedStride}).Layout(tiles, 4)
	if diff := cmp.Diff(cells(def.Tiles), cells(same.Tiles)); diff != "" {
		t.Errorf("explicit default stride changed layout:\n%s", diff)
	}
}

func BenchmarkSkyline(b *testing.B) {
	tiles := textTiles(500)
	columns := Columns(len(tiles))
	for b.Loop() {
		if _, err := Pack(tiles, columns); err != nil {
			b.Fatal(err)
		}
	}
}

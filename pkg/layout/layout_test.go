package layout

import (
	"fmt"
	"testing"
	"time"

	"github.com/matzehuels/memorywall/pkg/errors"
	"github.com/matzehuels/memorywall/pkg/wall"
)

// textTiles returns n text tiles with IDs t0..tn-1.
func textTiles(n int) []wall.Tile {
	tiles := make([]wall.Tile, n)
	for i := range tiles {
		tiles[i] = wall.Tile{ID: fmt.Sprintf("t%d", i), Kind: wall.KindText, Text: "hello"}
	}
	return tiles
}

// mediaTiles returns tiles with the given dimensions, alternating image and video.
func mediaTiles(dims ...[2]int) []wall.Tile {
	base := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	tiles := make([]wall.Tile, len(dims))
	for i, d := range dims {
		kind := wall.KindImage
		if i%2 == 1 {
			kind = wall.KindVideo
		}
		tiles[i] = wall.Tile{
			ID:        fmt.Sprintf("m%d", i),
			Kind:      kind,
			Width:     wall.Dim(d[0]),
			Height:    wall.Dim(d[1]),
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}
	}
	return tiles
}

func TestColumns(t *testing.T) {
	tests := []struct {
		n, want int
	}{
		{0, 1},
		{1, 2},
		{2, 2},
		{3, 3},
		{4, 3},
		{9, 4},
		{10, 5},
		{16, 6},
		{25, 7},
		{100, 14},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.n), func(t *testing.T) {
			if got := Columns(tt.n); got != tt.want {
				t.Errorf("Columns(%d) = %d, want %d", tt.n, got, tt.want)
			}
		})
	}
}

func TestNew(t *testing.T) {
	tests := []struct {
		name     string
		strategy string
		opts     Options
		wantName string
		wantCode errors.Code
	}{
		{name: "default", strategy: "", wantName: StrategySkyline},
		{name: "skyline", strategy: "skyline", wantName: StrategySkyline},
		{name: "masonry", strategy: "masonry", wantName: StrategyMasonry},
		{name: "spiral", strategy: "spiral", wantName: StrategySpiral},
		{name: "unknown", strategy: "grid", wantCode: errors.ErrCodeInvalidStrategy},
		{name: "bad span", opts: Options{Spans: []Span{{0, 1}}}, wantCode: errors.ErrCodeInvalidConfig},
		{name: "bad edge", opts: Options{Edge: "wrap"}, wantCode: errors.ErrCodeInvalidConfig},
		{name: "skip edge", opts: Options{Edge: EdgeSkip}, wantName: StrategySkyline},
		{name: "negative width", strategy: "masonry", opts: Options{ColumnWidth: -1}, wantCode: errors.ErrCodeInvalidConfig},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := New(tt.strategy, tt.opts)
			if tt.wantCode != "" {
				if !errors.Is(err, tt.wantCode) {
					t.Fatalf("New() error = %v, want code %v", err, tt.wantCode)
				}
				return
			}
			if err != nil {
				t.Fatalf("New() error = %v", err)
			}
			if s.Name() != tt.wantName {
				t.Errorf("Name() = %q, want %q", s.Name(), tt.wantName)
			}
		})
	}
}

func TestNames(t *testing.T) {
	got := Names()
	want := []string{"masonry", "skyline", "spiral"}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Errorf("Names() = %v, want %v", got, want)
	}
	for _, n := range want {
		if !IsStrategy(n) {
			t.Errorf("IsStrategy(%q) = false", n)
		}
	}
	if IsStrategy("grid") {
		t.Error("IsStrategy(grid) = true")
	}
}

func TestStrategiesTotalAndDisjoint(t *testing.T) {
	tiles := mediaTiles(
		[2]int{500, 375}, [2]int{500, 888}, [2]int{500, 500}, [2]int{500, 281},
		[2]int{500, 666}, [2]int{500, 333}, [2]int{500, 750}, [2]int{500, 400},
		[2]int{500, 200}, [2]int{500, 1000}, [2]int{500, 312}, [2]int{500, 625},
	)
	for _, name := range Names() {
		t.Run(name, func(t *testing.T) {
			s, err := New(name, Options{Seed: 7})
			if err != nil {
				t.Fatal(err)
			}
			res, err := s.Layout(tiles, s.Columns(len(tiles)))
			if err != nil {
				t.Fatalf("Layout() error = %v", err)
			}
			if err := VerifyResult(res, len(tiles)); err != nil {
				t.Fatal(err)
			}
			for i, p := range res.Tiles {
				if p.ID != tiles[i].ID {
					t.Errorf("tile %d is %q, want %q (input order)", i, p.ID, tiles[i].ID)
				}
			}
			if res.Strategy != name {
				t.Errorf("Strategy = %q, want %q", res.Strategy, name)
			}
		})
	}
}

func TestStrategiesEmpty(t *testing.T) {
	for _, name := range Names() {
		t.Run(name, func(t *testing.T) {
			s, _ := New(name, Options{})
			res, err := s.Layout(nil, 3)
			if err != nil {
				t.Fatalf("Layout(nil) error = %v", err)
			}
			if len(res.Tiles) != 0 {
				t.Errorf("Layout(nil) returned %d tiles", len(res.Tiles))
			}
		})
	}
}

func TestDimensionedStrategiesRejectText(t *testing.T) {
	tiles := append(mediaTiles([2]int{500, 300}), textTiles(1)...)
	for _, name := range []string{StrategyMasonry, StrategySpiral} {
		t.Run(name, func(t *testing.T) {
			s, _ := New(name, Options{})
			_, err := s.Layout(tiles, 3)
			if !errors.Is(err, errors.ErrCodeInvalidTile) {
				t.Errorf("Layout() error = %v, want %v", err, errors.ErrCodeInvalidTile)
			}
		})
	}
}

func TestPackMatchesDefaultStrategy(t *testing.T) {
	tiles := textTiles(20)
	packed, err := Pack(tiles, 5)
	if err != nil {
		t.Fatal(err)
	}
	s, _ := New("", Options{})
	res, err := s.Layout(tiles, 5)
	if err != nil {
		t.Fatal(err)
	}
	for i := range packed {
		if packed[i] != res.Tiles[i] {
			t.Fatalf("tile %d: Pack = %+v, strategy = %+v", i, packed[i], res.Tiles[i])
		}
	}
}

func TestResultHeight(t *testing.T) {
	res := Result{Tiles: []PositionedTile{
		{Row: 0, RowSpan: 2},
		{Row: 1, RowSpan: 4},
		{Row: 3, RowSpan: 1},
	}}
	if got := res.Height(); got != 5 {
		t.Errorf("Height() = %d, want 5", got)
	}
}

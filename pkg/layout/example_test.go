package layout_test

import (
	"fmt"

	"github.com/matzehuels/memorywall/pkg/layout"
	"github.com/matzehuels/memorywall/pkg/wall"
)

func ExamplePack() {
	tiles := []wall.Tile{
		{ID: "a", Kind: wall.KindText, Text: "first"},
		{ID: "b", Kind: wall.KindText, Text: "second"},
		{ID: "c", Kind: wall.KindText, Text: "third"},
	}
	placed, err := layout.Pack(tiles, 6)
	if err != nil {
		panic(err)
	}
	for _, p := range placed {
		fmt.Printf("%s at (%d,%d) spans %dx%d\n", p.ID, p.Column, p.Row, p.ColumnSpan, p.RowSpan)
	}
	// Output:
	// a at (0,0) spans 2x2
	// b at (2,0) spans 1x1
	// c at (3,0) spans 1x1
}

func ExampleColumns() {
	for _, n := range []int{1, 10, 100} {
		fmt.Println(n, layout.Columns(n))
	}
	// Output:
	// 1 2
	// 10 5
	// 100 14
}

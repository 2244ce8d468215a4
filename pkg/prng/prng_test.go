package prng

import (
	"fmt"
	"math"
	"testing"
)

func TestNext(t *testing.T) {
	tests := []struct {
		name string
		seed uint32
		want uint32
	}{
		{"zero", 0, 1013904223},
		{"chained", 1013904223, 1196435762},
		{"first tile seed", 9973, 434342864},
		{"wraps", 19946, 4149748801},
		{"max", math.MaxUint32, 1012239698},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Next(tt.seed); got != tt.want {
				t.Errorf("Next(%d) = %d, want %d", tt.seed, got, tt.want)
			}
		})
	}
}

func TestFloat(t *testing.T) {
	if got, want := Float(0), 1013904223.0/4294967296.0; got != want {
		t.Errorf("Float(0) = %v, want %v", got, want)
	}
	if got := Float(0); math.Abs(got-0.2360679728) > 1e-9 {
		t.Errorf("Float(0) = %v, want ~0.2360679728", got)
	}
	if got := Float(9973); math.Abs(got-0.10113) > 1e-4 {
		t.Errorf("Float(9973) = %v, want ~0.1011", got)
	}
}

func TestFloatRange(t *testing.T) {
	for seed := uint32(0); seed < 10000; seed += 7 {
		f := Float(seed * 104729)
		if f < 0 || f >= 1 {
			t.Fatalf("Float(%d) = %v, out of [0,1)", seed*104729, f)
		}
	}
}

func TestSourceChains(t *testing.T) {
	s := New(0)
	first := s.Float64()
	second := s.Float64()

	if first != Float(0) {
		t.Errorf("first draw = %v, want %v", first, Float(0))
	}
	if want := 1196435762.0 / 4294967296.0; second != want {
		t.Errorf("second draw = %v, want %v", second, want)
	}
}

func TestSourceDeterministic(t *testing.T) {
	a, b := New(42), New(42)
	for i := 0; i < 100; i++ {
		if x, y := a.Uint32(), b.Uint32(); x != y {
			t.Fatalf("draw %d differs: %d vs %d", i, x, y)
		}
	}
}

func TestIntn(t *testing.T) {
	s := New(7)
	for i := 0; i < 1000; i++ {
		if v := s.Intn(4); v < 0 || v >= 4 {
			t.Fatalf("Intn(4) = %d", v)
		}
	}
	if v := s.Intn(0); v != 0 {
		t.Errorf("Intn(0) = %d, want 0", v)
	}
}

func TestRange(t *testing.T) {
	s := New(11)
	for i := 0; i < 1000; i++ {
		if v := s.Range(10); v < -10 || v >= 10 {
			t.Fatalf("Range(10) = %v", v)
		}
	}
}

func TestShuffle(t *testing.T) {
	shuffle := func(seed uint32) []int {
		xs := []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}
		New(seed).Shuffle(len(xs), func(i, j int) { xs[i], xs[j] = xs[j], xs[i] })
		return xs
	}

	a, b := shuffle(3), shuffle(3)
	seen := make(map[int]bool)
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("same seed produced different orders: %v vs %v", a, b)
		}
		seen[a[i]] = true
	}
	if len(seen) != 10 {
		t.Errorf("shuffle lost elements: %v", a)
	}
}

func ExampleFloat() {
	for i := 0; i < 3; i++ {
		fmt.Println(int(Float(uint32(i+1)*9973) * 4))
	}
	// Output:
	// 0
	// 3
	// 3
}

package prng

const (
	multiplier = 1664525
	increment  = 1013904223
	modulus    = 1 << 32
)

// Next advances the generator one step from seed.
func Next(seed uint32) uint32 {
	return seed*multiplier + increment
}

// Float returns Next(seed) scaled to [0, 1).
func Float(seed uint32) float64 {
	return float64(Next(seed)) / modulus
}

// Source is a stateful generator. The zero value starts from seed 0.
// A Source is not safe for concurrent use.
type Source struct {
	state uint32
}

// New returns a Source seeded with seed.
func New(seed uint32) *Source {
	return &Source{state: seed}
}

// Uint32 advances the state and returns it.
func (s *Source) Uint32() uint32 {
	s.state = Next(s.state)
	return s.state
}

// Float64 advances the state and returns it scaled to [0, 1).
func (s *Source) Float64() float64 {
	return float64(s.Uint32()) / modulus
}

// Intn returns a value in [0, n). It returns 0 when n <= 0.
func (s *Source) Intn(n int) int {
	if n <= 0 {
		return 0
	}
	return int(s.Float64() * float64(n))
}

// Range returns a value in [-r, r).
func (s *Source) Range(r float64) float64 {
	return (s.Float64()*2 - 1) * r
}

// Shuffle permutes n elements in place by calling swap, walking from the
// last element down and picking the partner as floor(Float64()*(i+1)).
func (s *Source) Shuffle(n int, swap func(i, j int)) {
	for i := n - 1; i > 0; i-- {
		j := s.Intn(i + 1)
		swap(i, j)
	}
}

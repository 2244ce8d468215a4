// Package prng provides the small deterministic pseudo-random source used by
// the wall layout strategies.
//
// The generator is a 32-bit linear congruential generator with multiplier
// 1664525 and increment 1013904223 (Numerical Recipes). All arithmetic wraps
// modulo 2^32, so the same seed yields the same sequence on every platform.
// That reproducibility is the only property callers may rely on: the output is
// not suitable for anything security related.
//
// # Stateless draws
//
// [Float] maps a seed to a float in [0, 1) with a single step:
//
//	offset := int(prng.Float(uint32(i+1) * 9973) * 4)
//
// # Chained draws
//
// [Source] keeps the last state so successive calls continue the sequence.
// [Source.Shuffle] is a Fisher-Yates shuffle driven by that sequence.
package prng

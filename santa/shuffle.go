/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package santa

import (
	"math/rand/v2"
)

// Source draws uniform integers in [0, n). *rand.Rand from math/rand/v2
// satisfies it.
type Source interface {
	IntN(n int) int
}

type globalSource struct{}

func (globalSource) IntN(n int) int {
	return rand.IntN(n)
}

// Shuffle returns a uniformly random permutation of in as a new slice.
// in is left untouched.
func Shuffle[T any](src Source, in []T) []T {
	if src == nil {
		src = globalSource{}
	}

	out := make([]T, len(in))
	copy(out, in)

	// Fisher-Yates
	for i := len(out) - 1; i > 0; i-- {
		j := src.IntN(i + 1)
		out[i], out[j] = out[j], out[i]
	}

	return out
}

/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package santa

import (
	"math/rand/v2"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestShuffleKeepsAllElements(t *testing.T) {
	in := []int{1, 2, 3, 4, 5, 6}

	out := Shuffle(nil, in)

	require.Equal(t, []int{1, 2, 3, 4, 5, 6}, in)

	sorted := append([]int(nil), out...)
	sort.Ints(sorted)
	require.Equal(t, in, sorted)
}

func TestShuffleShortSlices(t *testing.T) {
	empty := Shuffle(nil, []string{})
	require.NotNil(t, empty)
	require.Empty(t, empty)

	in := []string{"only"}
	out := Shuffle(nil, in)
	require.Equal(t, in, out)

	out[0] = "changed"
	require.Equal(t, "only", in[0])
}

func TestShuffleIsUniform(t *testing.T) {
	src := rand.New(rand.NewPCG(42, 1024))
	counts := make(map[string]int)

	const runs = 6000
	for range runs {
		counts[strings.Join(Shuffle(src, []string{"a", "b", "c"}), "")]++
	}

	require.Len(t, counts, 6)
	for perm, n := range counts {
		require.InDelta(t, runs/6, n, 200, "permutation %s drawn %d times", perm, n)
	}
}

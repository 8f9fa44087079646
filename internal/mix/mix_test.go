package mix

import (
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

// TestRemapScenario5 is scenario 5 from spec.md §8, transcribed verbatim.
func TestRemapScenario5(t *testing.T) {
	mapIn := []Position{1, 2, 3, 4, 5, 6}  // FL,FR,FC,LFE,BL,BR
	mapOut := []Position{1, 2, 5, 6, 3, 4} // FL,FR,BL,BR,FC,LFE

	postMix := PostMixMap(mapIn, mapOut)
	table := Shuffle(postMix, mapOut)

	in := []float32{1, 2, 3, 4, 5, 6}
	out := make([]float32, 6)
	Apply(out, in, table)

	require.Equal(t, []float32{1, 2, 5, 6, 3, 4}, out)
}

// TestPermutationInvertibility is the ∀ property from spec.md §8: for
// channel maps M, N that are permutations of each other, applying (M,N)
// then (N,M) is the identity.
func TestPermutationInvertibility(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		width := rapid.IntRange(1, MaxChannels).Draw(rt, "width")

		positions := make([]Position, width)
		for i := range positions {
			positions[i] = Position(i + 1)
		}
		shuffled := make([]Position, width)
		copy(shuffled, positions)
		permIdx := rapid.Permutation(indices(width)).Draw(rt, "permIdx")
		for i, p := range permIdx {
			shuffled[i] = positions[p]
		}

		forward := Shuffle(PostMixMap(positions, shuffled), shuffled)
		backward := Shuffle(PostMixMap(shuffled, positions), positions)

		frame := make([]float32, width)
		for i := range frame {
			frame[i] = float32(i + 1)
		}

		once := make([]float32, width)
		Apply(once, frame, forward)
		twice := make([]float32, width)
		Apply(twice, once, backward)

		require.Equal(rt, frame, twice)
	})
}

func indices(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

func TestDownmixBlendIsMean(t *testing.T) {
	src := []float32{1, 2, 3, 4}
	dst := make([]float32, 2)
	Downmix(dst, src, 2, 2, 1, ModeBlend)
	require.InDelta(t, 1.5, dst[0], 1e-6)
	require.InDelta(t, 3.5, dst[1], 1e-6)
}

func TestUpmixBasicZeroFills(t *testing.T) {
	src := []float32{1, 2}
	dst := make([]float32, 8)
	Upmix(dst, src, 1, 2, 4, ModeBasic)
	require.Equal(t, []float32{1, 2, 0, 0}, dst[:4])
}

func TestUpmixBlendBroadcasts(t *testing.T) {
	src := []float32{5}
	dst := make([]float32, 3)
	Upmix(dst, src, 1, 1, 3, ModeBlend)
	require.Equal(t, []float32{5, 5, 5}, dst)
}

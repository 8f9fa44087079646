package mix

// Position mirrors the root package's ChannelPosition without importing
// it, keeping this package import-cycle free (same pattern as
// internal/convert.Format mirroring the root Format enum).
type Position int

// PostMixMap computes channel_map_post_mix from spec.md §4.4 step 2: the
// input map extended to len(mapOut) by filling any extra slots with the
// first position present in mapOut but absent from mapIn.
func PostMixMap(mapIn, mapOut []Position) []Position {
	out := make([]Position, len(mapOut))
	n := len(mapIn)
	if len(mapOut) < n {
		n = len(mapOut)
	}
	copy(out, mapIn[:n])

	if len(mapOut) <= n {
		return out
	}

	present := make(map[Position]bool, n)
	for _, p := range mapIn {
		present[p] = true
	}

	slot := n
	for _, p := range mapOut {
		if slot >= len(out) {
			break
		}
		if !present[p] {
			out[slot] = p
			present[p] = true
			slot++
		}
	}
	// Any slots still unfilled (exhausted candidates) keep PositionNone's
	// zero value, which Shuffle below treats as "no match, identity".
	return out
}

// Shuffle builds shuffle[i] such that postMix[shuffle[i]] == mapOut[i],
// per spec.md §4.4 step 2. Positions with no match in postMix map to
// themselves (identity), which only arises when the caller passed
// inconsistent maps; neither this function nor dsp.Build checks that
// the maps are permutations of each other.
func Shuffle(postMix, mapOut []Position) []int {
	table := make([]int, len(mapOut))
	for i, want := range mapOut {
		table[i] = i
		for j, have := range postMix {
			if have == want {
				table[i] = j
				break
			}
		}
	}
	return table
}

// RequiresMapping reports whether postMix differs from mapOut, i.e.
// whether Apply would do anything other than copy — spec.md §4.4 step 3's
// is_channel_mapping_required flag.
func RequiresMapping(postMix, mapOut []Position) bool {
	if len(postMix) != len(mapOut) {
		return true
	}
	for i := range postMix {
		if postMix[i] != mapOut[i] {
			return true
		}
	}
	return false
}

// Apply permutes one frame of channels channels-wide according to table,
// writing out[i] = in[table[i]]. Per spec.md §4.1, the in-place case
// (dst overlapping src) is handled by first copying the frame into a
// ≤MaxChannels stack scratch so cyclic permutations read from the
// original values, not partially-overwritten ones.
func Apply(dst, src []float32, table []int) {
	var scratch [MaxChannels]float32
	n := len(table)
	copy(scratch[:n], src[:n])
	for i, j := range table {
		dst[i] = scratch[j]
	}
}

// ApplyFrames runs Apply across frameCount interleaved frames of
// len(table) channels each.
func ApplyFrames(dst, src []float32, frameCount int, table []int) {
	n := len(table)
	for f := 0; f < frameCount; f++ {
		base := f * n
		Apply(dst[base:base+n], src[base:base+n], table)
	}
}

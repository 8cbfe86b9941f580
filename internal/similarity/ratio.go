package similarity

// Ratio computes a sequence similarity score in [0, 1] between two
// normalized texts: 2*M/T where M is the total size of the longest
// matching blocks (found recursively) and T is the combined length.
// Identical strings score 1.0; disjoint strings score 0.0. Deterministic:
// ties on block search resolve to the earliest offsets.
func Ratio(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	total := len(ra) + len(rb)
	if total == 0 {
		return 1.0
	}
	return 2.0 * float64(matchingSize(ra, rb)) / float64(total)
}

// matchingSize sums matching-block sizes: find the longest common block,
// then recurse into the unmatched pieces on each side of it.
func matchingSize(a, b []rune) int {
	ai, bi, size := longestMatch(a, b)
	if size == 0 {
		return 0
	}
	return size + matchingSize(a[:ai], b[:bi]) + matchingSize(a[ai+size:], b[bi+size:])
}

// longestMatch finds the longest block of runes common to a and b,
// preferring the earliest position in a, then in b.
func longestMatch(a, b []rune) (besti, bestj, bestSize int) {
	// runLen[j] is the length of the common run ending at a[i-1], b[j]
	runLen := make(map[int]int)
	for i := range a {
		next := make(map[int]int)
		for j := range b {
			if a[i] != b[j] {
				continue
			}
			k := runLen[j-1] + 1
			next[j] = k
			if k > bestSize {
				besti, bestj, bestSize = i-k+1, j-k+1, k
			}
		}
		runLen = next
	}
	return besti, bestj, bestSize
}

// candidate caches the per-record data the near pass reuses across many
// pairwise comparisons.
type candidate struct {
	rec     *record
	runes   []rune
	counts  map[rune]int
	runeLen int
}

// upperBound returns a cheap upper bound on Ratio for a pair. Both bounds
// are sound (never below the true ratio), so skipping a pair whose bound
// falls under the floor can never lose a qualifying match.
func upperBound(a, b *candidate) float64 {
	total := a.runeLen + b.runeLen
	if total == 0 {
		return 1.0
	}

	// Length bound: matches cannot exceed the shorter text.
	shorter := a.runeLen
	if b.runeLen < shorter {
		shorter = b.runeLen
	}
	lengthBound := 2.0 * float64(shorter) / float64(total)

	// Multiset bound: matches cannot exceed the shared rune counts.
	small, large := a, b
	if len(b.counts) < len(a.counts) {
		small, large = b, a
	}
	shared := 0
	for r, n := range small.counts {
		if m := large.counts[r]; m < n {
			shared += m
		} else {
			shared += n
		}
	}
	countBound := 2.0 * float64(shared) / float64(total)

	if countBound < lengthBound {
		return countBound
	}
	return lengthBound
}

func newCandidate(rec *record) *candidate {
	runes := []rune(rec.Normalized)
	counts := make(map[rune]int, len(runes))
	for _, r := range runes {
		counts[r]++
	}
	return &candidate{rec: rec, runes: runes, counts: counts, runeLen: len(runes)}
}

package textpipe

import (
	"cmp"
	"slices"
)

// top returns the n most frequent words, most frequent first, ties in
// alphabetical order.
func top(counts map[string]int, n int) []WordFreq {
	out := make([]WordFreq, 0, len(counts))
	for w, c := range counts {
		out = append(out, WordFreq{Word: w, Count: c})
	}
	slices.SortFunc(out, func(a, b WordFreq) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return cmp.Compare(a.Word, b.Word)
	})
	if n >= 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

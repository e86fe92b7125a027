package match

// Ratio computes a similarity score in [0, 1] between two strings as
// 2*LCS / (len(a)+len(b)) over runes, where LCS is the length of the longest
// common subsequence. Equal strings score 1, disjoint strings score 0.
func Ratio(a, b string) float64 {
	if a == b {
		return 1
	}
	ra := []rune(a)
	rb := []rune(b)
	if len(ra) == 0 || len(rb) == 0 {
		return 0
	}

	// Two-row dynamic program keeps memory linear in the shorter string.
	if len(rb) < len(ra) {
		ra, rb = rb, ra
	}
	prev := make([]int, len(ra)+1)
	curr := make([]int, len(ra)+1)
	for _, rc := range rb {
		for i, r := range ra {
			if r == rc {
				curr[i+1] = prev[i] + 1
			} else if prev[i+1] >= curr[i] {
				curr[i+1] = prev[i+1]
			} else {
				curr[i+1] = curr[i]
			}
		}
		prev, curr = curr, prev
	}

	lcs := prev[len(ra)]
	return 2 * float64(lcs) / float64(len(ra)+len(rb))
}

package ref

// prefixTable returns, for every i, the length of the longest proper
// prefix of p[:i+1] that is also its suffix.
func prefixTable[T comparable](p []T) []int {
	lps := make([]int, len(p))
	k := 0
	for i := 1; i < len(p); i++ {
		for k > 0 && p[i] != p[k] {
			k = lps[k-1]
		}
		if p[i] == p[k] {
			k++
			lps[i] = k
		}
	}
	return lps
}

// indexKMP returns the first offset of pattern in text, or -1.
func indexKMP[T comparable](pattern, text []T) int {
	if len(pattern) == 0 {
		return 0
	}
	lps := prefixTable(pattern)
	j := 0
	for i, c := range text {
		for j > 0 && pattern[j] != c {
			j = lps[j-1]
		}
		if pattern[j] == c {
			j++
			if j == len(pattern) {
				return i - j + 1
			}
		}
	}
	return -1
}

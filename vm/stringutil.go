package vm

// compareStrings is a byte-lexicographic comparison, used by the relational
// opcodes and as the ordering sortBytes produces.
func compareStrings(a, b string) int {
	if a < b {
		return -1
	}
	if a > b {
		return 1
	}
	return 0
}

// findSubstring returns the 0-based byte offset of the first occurrence of
// needle in hay, or -1 if absent.
func findSubstring(hay, needle string) int {
	if len(needle) == 0 {
		return 0
	}
	for i := 0; i+len(needle) <= len(hay); i++ {
		if hay[i:i+len(needle)] == needle {
			return i
		}
	}
	return -1
}

// sortBytes returns a copy of s with its bytes sorted ascending, using
// quicksort the way sort() is defined.
func sortBytes(s string) string {
	b := []byte(s)
	quicksortBytes(b, 0, len(b)-1)
	return string(b)
}

func quicksortBytes(b []byte, lo, hi int) {
	if lo >= hi {
		return
	}
	pivot := b[(lo+hi)/2]
	i, j := lo, hi
	for i <= j {
		for b[i] < pivot {
			i++
		}
		for b[j] > pivot {
			j--
		}
		if i <= j {
			b[i], b[j] = b[j], b[i]
			i++
			j--
		}
	}
	quicksortBytes(b, lo, j)
	quicksortBytes(b, i, hi)
}

package vote

import "sort"

// Tally counts every category of every vote once.
func Tally(votes []Vote) map[string]int {
	counts := make(map[string]int)
	for _, v := range votes {
		for _, c := range v.Categories {
			counts[c]++
		}
	}
	return counts
}

// TopCategories returns all categories tied at the highest count, sorted. An
// empty tally yields an empty slice.
func TopCategories(tally map[string]int) []string {
	top := []string{}
	highest := 0
	for cat, n := range tally {
		if n <= 0 {
			continue
		}
		switch {
		case n > highest:
			highest = n
			top = append(top[:0], cat)
		case n == highest:
			top = append(top, cat)
		}
	}
	sort.Strings(top)
	return top
}

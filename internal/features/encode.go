package features

import (
	"sort"
	"strings"
)

// oneHot appends one indicator column per distinct observed value, named
// "<col>_<value>". Every category keeps its column (no reference level is dropped).
// Rows whose cell is missing get 0 in every indicator.
func (f *frame) oneHot(col string, vals []string, ok []bool) {
	seen := make(map[string]bool)
	var cats []string
	for i, v := range vals {
		if ok[i] && !seen[v] {
			seen[v] = true
			cats = append(cats, v)
		}
	}
	sort.Strings(cats)

	for _, cat := range cats {
		ind := make([]float64, len(vals))
		for i, v := range vals {
			if ok[i] && v == cat {
				ind[i] = 1
			}
		}
		f.add(col+"_"+cat, ind)
	}
}

// SexIndicator maps "M" to 1 and "F" to 0 ignoring case and surrounding space.
// Anything else, including a missing cell, maps to 0.
func SexIndicator(v any) float64 {
	s, ok := toText(v)
	if !ok {
		return 0
	}
	if strings.ToUpper(strings.TrimSpace(s)) == "M" {
		return 1
	}
	return 0
}

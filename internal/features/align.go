package features

// Align reindexes m to exactly the expected columns in order. Columns of m that are
// not expected are dropped, and expected columns m lacks are filled with 0.
func Align(m Matrix, expected []string) Matrix {
	idx := make(map[string]int, len(m.Columns))
	for j, c := range m.Columns {
		if _, dup := idx[c]; !dup {
			idx[c] = j
		}
	}

	cols := make([]string, len(expected))
	copy(cols, expected)

	rows := make([][]float64, len(m.Rows))
	for i, src := range m.Rows {
		row := make([]float64, len(expected))
		for j, name := range expected {
			if k, ok := idx[name]; ok && k < len(src) {
				row[j] = finiteOrZero(src[k])
			}
		}
		rows[i] = row
	}
	return Matrix{Columns: cols, Rows: rows}
}

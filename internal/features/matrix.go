package features

// Matrix is a dense row-major feature matrix. Rows[i][j] is the value of Columns[j]
// for input record i.
type Matrix struct {
	Columns []string
	Rows    [][]float64
}

// Len returns the number of rows.
func (m Matrix) Len() int {
	return len(m.Rows)
}

// Index returns the position of the named column, or -1.
func (m Matrix) Index(name string) int {
	for i, c := range m.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Column returns a copy of the named column's values.
func (m Matrix) Column(name string) ([]float64, bool) {
	j := m.Index(name)
	if j < 0 {
		return nil, false
	}
	out := make([]float64, len(m.Rows))
	for i, row := range m.Rows {
		out[i] = row[j]
	}
	return out, true
}

// frame accumulates named columns before they are laid out row-major.
type frame struct {
	names []string
	cols  [][]float64
}

func (f *frame) add(name string, vals []float64) {
	f.names = append(f.names, name)
	f.cols = append(f.cols, vals)
}

func (f *frame) matrix(n int) Matrix {
	rows := make([][]float64, n)
	for i := range rows {
		row := make([]float64, len(f.cols))
		for j, col := range f.cols {
			row[j] = finiteOrZero(col[i])
		}
		rows[i] = row
	}
	names := make([]string, len(f.names))
	copy(names, f.names)
	return Matrix{Columns: names, Rows: rows}
}

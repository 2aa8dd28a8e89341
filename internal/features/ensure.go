package features

import "churn-predictor/internal/common"

// sourceDefaults is the value every row takes for a source column the upload lacks.
// Categorical columns default to "" and numeric columns to 0.
var sourceDefaults = map[string]any{
	common.ColAge:            0.0,
	common.ColSex:            "",
	common.ColMonth1:         0.0,
	common.ColMonth2:         0.0,
	common.ColMonth3:         0.0,
	common.ColMonth4:         0.0,
	common.ColMonth5:         0.0,
	common.ColZone:           "",
	common.ColPaymentMethod:  "",
	common.ColVisitVariation: 0.0,
	common.ColVariationPct:   0.0,
	common.ColSatisfaction:   0.0,
}

// source reads cells of an uploaded table, substituting defaults for absent columns.
// The table itself is never modified.
type source struct {
	table   *Table
	present map[string]bool
}

func newSource(t *Table) source {
	s := source{table: t, present: make(map[string]bool)}
	if t != nil {
		for _, c := range t.Columns {
			s.present[c] = true
		}
	}
	return s
}

func (s source) len() int {
	return s.table.Len()
}

// missing returns the source columns the upload lacks.
func (s source) missing() []string {
	var out []string
	for _, c := range sourceColumns {
		if !s.present[c] {
			out = append(out, c)
		}
	}
	return out
}

func (s source) cell(row int, col string) any {
	if !s.present[col] {
		return sourceDefaults[col]
	}
	return s.table.Records[row][col]
}

// numbers coerces a column to floats; cells that do not parse become 0.
func (s source) numbers(col string) []float64 {
	out := make([]float64, s.len())
	for i := range out {
		out[i], _ = toFloat(s.cell(i, col))
	}
	return out
}

// texts renders a column as category labels; ok[i] is false for missing cells.
func (s source) texts(col string) (vals []string, ok []bool) {
	n := s.len()
	vals = make([]string, n)
	ok = make([]bool, n)
	for i := 0; i < n; i++ {
		vals[i], ok[i] = toText(s.cell(i, col))
	}
	return vals, ok
}

var sourceColumns = []string{
	common.ColAge, common.ColSex,
	common.ColMonth1, common.ColMonth2, common.ColMonth3, common.ColMonth4, common.ColMonth5,
	common.ColZone, common.ColPaymentMethod,
	common.ColVisitVariation, common.ColVariationPct, common.ColSatisfaction,
}

// Package features turns an uploaded customer table into the numeric feature matrix a
// churn classifier was trained on, and aligns that matrix to the classifier's frozen
// column order.
package features

import "sort"

// Record is one uploaded row keyed by column name. A nil value is a missing cell.
type Record map[string]any

// Table is a raw uploaded dataset. Columns keeps the upload's column order and decides
// which columns count as present.
type Table struct {
	Columns []string
	Records []Record
}

// NewTable wraps records read with a known header.
func NewTable(columns []string, records []Record) *Table {
	return &Table{Columns: columns, Records: records}
}

// TableFromRecords builds a table whose columns are the union of the record keys.
// Keys are sorted because map order carries no column order.
func TableFromRecords(records []Record) *Table {
	seen := make(map[string]bool)
	var columns []string
	for _, r := range records {
		for k := range r {
			if !seen[k] {
				seen[k] = true
				columns = append(columns, k)
			}
		}
	}
	sort.Strings(columns)
	return &Table{Columns: columns, Records: records}
}

// Len returns the number of records.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Records)
}

// HasColumn reports whether the upload carried the named column.
func (t *Table) HasColumn(name string) bool {
	if t == nil {
		return false
	}
	for _, c := range t.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// Text returns the cell rendered as text, or "" when the cell or column is missing.
func (t *Table) Text(row int, col string) string {
	if t == nil || row < 0 || row >= len(t.Records) {
		return ""
	}
	s, _ := toText(t.Records[row][col])
	return s
}

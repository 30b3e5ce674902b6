// Package source reads raw tabular imports. It knows nothing about
// canonical fields; it only yields header and cell text for the
// normalizer to interpret.
package source

import "errors"

// ErrEmptySource indicates the import carried no header or no data rows.
var ErrEmptySource = errors.New("import source is empty")

// Table is an ordered raw import: one header row plus data rows. Rows may
// be ragged; missing trailing cells read as empty.
type Table struct {
	Headers []string
	Rows    [][]string
}

// Cell returns the value of the named column in the given row, by header
// position. Absent cells are empty strings.
func (t Table) Cell(row int, headerIndex int) string {
	if row < 0 || row >= len(t.Rows) {
		return ""
	}
	cells := t.Rows[row]
	if headerIndex < 0 || headerIndex >= len(cells) {
		return ""
	}
	return cells[headerIndex]
}

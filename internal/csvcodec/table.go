// Package csvcodec reads and writes the comma-delimited text used for bulk
// trip files.
//
// The decoder is deliberately tolerant: malformed quoting never produces an
// error, cells are trimmed, and blank rows are dropped. The encoder quotes a
// cell only when it must, so decode(encode(t)) returns t for any table whose
// cells carry no surrounding whitespace.
package csvcodec

// Table is an ordered sequence of rows. Row 0 is the header; rows 1..N are
// data rows. A Table is never mutated by the stage that receives it: stages
// that add columns build a new Table.
type Table [][]string

// Header returns the header row, or nil for an empty table.
func (t Table) Header() []string {
	if len(t) == 0 {
		return nil
	}
	return t[0]
}

// DataRows returns every row after the header.
func (t Table) DataRows() [][]string {
	if len(t) < 2 {
		return nil
	}
	return t[1:]
}

// DataRowCount returns the number of rows after the header.
func (t Table) DataRowCount() int {
	if len(t) == 0 {
		return 0
	}
	return len(t) - 1
}

// Clone returns a deep copy of the table.
func (t Table) Clone() Table {
	if t == nil {
		return nil
	}
	out := make(Table, len(t))
	for i, row := range t {
		out[i] = append([]string(nil), row...)
	}
	return out
}

// WithColumns returns a new table whose header is extended by names and whose
// data rows are extended by the cells extra returns for each of them.
// The receiver is left untouched.
func (t Table) WithColumns(names []string, extra func(i int, row []string) []string) Table {
	if len(t) == 0 {
		return nil
	}
	out := make(Table, 0, len(t))

	header := make([]string, 0, len(t[0])+len(names))
	header = append(header, t[0]...)
	out = append(out, append(header, names...))

	for i, row := range t[1:] {
		cells := make([]string, 0, len(row)+len(names))
		cells = append(cells, row...)
		out = append(out, append(cells, extra(i, row)...))
	}
	return out
}

// IsBlankRow reports whether every cell of row is empty after trimming.
func IsBlankRow(row []string) bool {
	for _, v := range row {
		if trimSpace(v) != "" {
			return false
		}
	}
	return true
}

package csvcodec

import "strings"

const (
	quote     = '"'
	separator = ','
)

// Decode parses raw text into a Table.
//
// Rows end at "\n" or "\r\n" outside a quoted span. Cells end at commas
// outside a quoted span. A quote toggles the quoted state unless it is a
// doubled quote inside a quoted span, which yields one literal quote.
// Cells are trimmed and rows whose cells are all empty are dropped.
//
// A quoted span may cross line breaks only if it closes. When a span is
// still open at the end of the input, the row it belongs to and every line
// after it are parsed line by line instead, so a stray quote damages only
// its own line.
func Decode(raw string) Table {
	table, open := decode(raw, true)
	if open < 0 {
		return table
	}
	tail, _ := decode(raw[open:], false)
	return append(table, tail...)
}

// decode parses raw. With multiline set, quoted spans may cross line breaks
// and an unterminated span makes decode stop and return the offset of the
// row it opened in, with that row left out of the table. Otherwise every
// line break ends the row and the returned offset is -1.
func decode(raw string, multiline bool) (Table, int) {
	var (
		table    Table
		row      []string
		cell     strings.Builder
		inQuotes bool
		rowStart int
	)

	endCell := func() {
		row = append(row, trimSpace(cell.String()))
		cell.Reset()
	}
	endRow := func(next int) {
		endCell()
		if !IsBlankRow(row) {
			table = append(table, row)
		}
		row = nil
		inQuotes = false
		rowStart = next
	}

	for i := 0; i < len(raw); i++ {
		c := raw[i]
		if inQuotes && !multiline && (c == '\n' || c == '\r' && i+1 < len(raw) && raw[i+1] == '\n') {
			inQuotes = false
		}
		switch {
		case c == quote:
			if inQuotes && i+1 < len(raw) && raw[i+1] == quote {
				cell.WriteByte(quote)
				i++
				continue
			}
			inQuotes = !inQuotes
		case inQuotes:
			cell.WriteByte(c)
		case c == separator:
			endCell()
		case c == '\n':
			endRow(i + 1)
		case c == '\r' && i+1 < len(raw) && raw[i+1] == '\n':
			i++
			endRow(i + 1)
		default:
			cell.WriteByte(c)
		}
	}
	if inQuotes && multiline {
		return table, rowStart
	}
	if cell.Len() > 0 || len(row) > 0 {
		endRow(len(raw))
	}

	return table, -1
}

// Encode serializes a Table. A cell is wrapped in quotes, with inner quotes
// doubled, only when it contains a comma, a quote or a line break. Rows are
// joined by "\n" with no trailing newline.
func Encode(t Table) string {
	var b strings.Builder
	for i, row := range t {
		if i > 0 {
			b.WriteByte('\n')
		}
		for j, cell := range row {
			if j > 0 {
				b.WriteByte(separator)
			}
			writeCell(&b, cell)
		}
	}
	return b.String()
}

func writeCell(b *strings.Builder, cell string) {
	if !strings.ContainsAny(cell, "\",\n\r") {
		b.WriteString(cell)
		return
	}
	b.WriteByte(quote)
	b.WriteString(strings.ReplaceAll(cell, `"`, `""`))
	b.WriteByte(quote)
}

// SplitQuoted splits a single cell value on commas that are outside quoted
// spans, trims every part and drops empty parts. It is used for via-point
// lists, which may embed quoted place names containing commas.
func SplitQuoted(s string) []string {
	var (
		parts    []string
		cur      strings.Builder
		inQuotes bool
	)
	flush := func() {
		if p := trimSpace(cur.String()); p != "" {
			parts = append(parts, p)
		}
		cur.Reset()
	}

	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == quote:
			if inQuotes && i+1 < len(s) && s[i+1] == quote {
				cur.WriteByte(quote)
				i++
				continue
			}
			inQuotes = !inQuotes
		case c == separator && !inQuotes:
			flush()
		default:
			cur.WriteByte(c)
		}
	}
	flush()

	return parts
}

func trimSpace(s string) string {
	return strings.TrimSpace(s)
}

package core

// validation.go checks a decoded bulk file before any remote call is made.
//
// Validation happens at two levels:
//  1. Header validation: all required columns must be present, otherwise the
//     table is rejected without looking at any row
//  2. Row validation: cell count first, then every field rule, with all
//     failures collected so the error report can show them together

import (
	"errors"
	"fmt"
	"strings"

	"github.com/JonMunkholm/tollbatch/internal/csvcodec"
)

// Required column names, matched case-insensitively.
const (
	ColOrigin      = "origin"
	ColDestination = "destination"
	ColJourneyType = "journey_type"
	ColWayPoints   = "way_points"
)

// RequiredColumns lists the columns every bulk file must carry, in template
// order.
var RequiredColumns = []string{ColOrigin, ColDestination, ColJourneyType, ColWayPoints}

// ErrMissingColumns is wrapped by ValidationReport.Err when the header is
// incomplete.
var ErrMissingColumns = errors.New("missing required column")

// ColumnIndex maps lower-cased column names to their header position.
type ColumnIndex map[string]int

// MakeColumnIndex builds a ColumnIndex from a header row. When a name
// repeats, the first position wins.
func MakeColumnIndex(header []string) ColumnIndex {
	idx := make(ColumnIndex, len(header))
	for i, h := range header {
		key := strings.ToLower(strings.TrimSpace(h))
		if _, ok := idx[key]; !ok {
			idx[key] = i
		}
	}
	return idx
}

// Missing returns the required columns absent from the index.
func (c ColumnIndex) Missing() []string {
	var missing []string
	for _, col := range RequiredColumns {
		if _, ok := c[col]; !ok {
			missing = append(missing, col)
		}
	}
	return missing
}

// Cell returns the trimmed value of column col in row, or "" when absent.
func (c ColumnIndex) Cell(row []string, col string) string {
	pos, ok := c[col]
	if !ok || pos >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[pos])
}

// Validate checks the header and every data row of t.
func Validate(t csvcodec.Table) ValidationReport {
	idx := MakeColumnIndex(t.Header())

	if missing := idx.Missing(); len(missing) > 0 {
		report := ValidationReport{Valid: false}
		for _, col := range missing {
			report.HeaderErrors = append(report.HeaderErrors,
				fmt.Sprintf("%s: %s", ErrMissingColumns, col))
		}
		return report
	}

	width := len(t.Header())
	report := ValidationReport{Valid: true}

	for i, row := range t.DataRows() {
		if csvcodec.IsBlankRow(row) {
			continue
		}

		errs := ValidateRow(row, idx, width)
		if len(errs) > 0 {
			report.Valid = false
			report.InvalidRows = append(report.InvalidRows, RowValidationResult{
				Row:    i + 1,
				Errors: errs,
			})
		}
	}

	return report
}

// ValidateRow returns every problem with a single data row. A row whose
// cell count differs from width yields a single error and no field checks.
func ValidateRow(row []string, idx ColumnIndex, width int) []string {
	if len(row) != width {
		return []string{fmt.Sprintf("row has %d columns, expected %d", len(row), width)}
	}

	var errs []string
	errs = append(errs, checkLocation(ColOrigin, idx.Cell(row, ColOrigin))...)
	errs = append(errs, checkLocation(ColDestination, idx.Cell(row, ColDestination))...)
	errs = append(errs, checkWayPoints(idx.Cell(row, ColWayPoints))...)

	if jt := idx.Cell(row, ColJourneyType); !IsValidJourneyType(jt) {
		errs = append(errs, fmt.Sprintf("invalid journey_type %q: must be one of %s",
			jt, strings.Join(JourneyTypes, ", ")))
	}

	return errs
}

// checkWayPoints splits the via-point list the same way the processor does,
// so a quoted "lat,lng" via point is range-checked as one location.
func checkWayPoints(value string) []string {
	points := csvcodec.SplitQuoted(value)
	if len(points) == 0 {
		return []string{ColWayPoints + " is required: at least one via point must be given"}
	}

	var errs []string
	for _, p := range points {
		errs = append(errs, checkLocation(ColWayPoints, p)...)
	}
	return errs
}

// Err returns nil for a valid report, an error wrapping ErrMissingColumns
// for a header failure, and a row summary otherwise.
func (r ValidationReport) Err() error {
	if r.Valid {
		return nil
	}
	if len(r.HeaderErrors) > 0 {
		missing := make([]string, 0, len(r.HeaderErrors))
		prefix := ErrMissingColumns.Error() + ": "
		for _, e := range r.HeaderErrors {
			missing = append(missing, strings.TrimPrefix(e, prefix))
		}
		return fmt.Errorf("%w: %s", ErrMissingColumns, strings.Join(missing, ", "))
	}
	return fmt.Errorf("invalid rows: %d row(s) failed validation", len(r.InvalidRows))
}

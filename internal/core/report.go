package core

import (
	"strings"

	"github.com/JonMunkholm/tollbatch/internal/csvcodec"
)

// Error report columns appended to the original header.
const (
	ColValidationErrors = "Validation Errors"
	ColValidationStatus = "Status"
)

// Error report status values.
const (
	ReportStatusError = "ERROR"
	ReportStatusValid = "VALID"
)

// BuildErrorReport annotates every data row of t with its validation errors
// and status. Original cells and row order are preserved; t is not modified.
func BuildErrorReport(t csvcodec.Table, report ValidationReport) csvcodec.Table {
	invalid := report.InvalidRowSet()

	return t.WithColumns(
		[]string{ColValidationErrors, ColValidationStatus},
		func(i int, _ []string) []string {
			errs, bad := invalid[i+1]
			if !bad {
				return []string{"", ReportStatusValid}
			}
			return []string{strings.Join(errs, "; "), ReportStatusError}
		},
	)
}

// HeaderErrorReport renders header failures as an errors-and-status table, used when
// the file cannot be annotated row by row.
func HeaderErrorReport(report ValidationReport) csvcodec.Table {
	out := csvcodec.Table{{ColValidationErrors, ColValidationStatus}}
	for _, e := range report.HeaderErrors {
		out = append(out, []string{e, ReportStatusError})
	}
	return out
}

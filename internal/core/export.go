package core

import (
	"fmt"

	"github.com/JonMunkholm/tollbatch/internal/csvcodec"
)

// Download file names.
const (
	ResultsFileName          = "toll_calculation_results.csv"
	ValidationErrorsFileName = "toll_calculation_validation_errors.csv"
	TemplateFileName         = "toll_calculation_template.csv"
)

// DownloadSink receives a finished file.
type DownloadSink interface {
	Download(content, filename string) error
}

// DownloadFunc adapts a function to DownloadSink.
type DownloadFunc func(content, filename string) error

// Download implements DownloadSink.
func (f DownloadFunc) Download(content, filename string) error {
	return f(content, filename)
}

// ExportResults encodes the processed table and hands it to sink.
func ExportResults(sink DownloadSink, t csvcodec.Table) error {
	return export(sink, t, ResultsFileName)
}

// ExportValidationErrors encodes an error report and hands it to sink.
func ExportValidationErrors(sink DownloadSink, report csvcodec.Table) error {
	return export(sink, report, ValidationErrorsFileName)
}

// ExportTemplate hands a header-only bulk file to sink.
func ExportTemplate(sink DownloadSink) error {
	return export(sink, TemplateTable(), TemplateFileName)
}

// TemplateTable returns a table holding only the required header.
func TemplateTable() csvcodec.Table {
	return csvcodec.Table{append([]string(nil), RequiredColumns...)}
}

func export(sink DownloadSink, t csvcodec.Table, filename string) error {
	if err := sink.Download(csvcodec.Encode(t), filename); err != nil {
		return fmt.Errorf("download %s: %w", filename, err)
	}
	return nil
}

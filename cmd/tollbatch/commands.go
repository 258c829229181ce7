package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/tollbatch/internal/application"
	"github.com/JonMunkholm/tollbatch/internal/core"
)

// errInvalidInput signals that a validation report was written instead of
// results.
var errInvalidInput = errors.New("input failed validation")

var (
	outDir   string
	encoding string
)

var runCmd = &cobra.Command{
	Use:   "run <input.csv>",
	Short: "Validate and price every row of a trip file",
	Long: `Validate the file and, when it is valid, look up tolls for every row.

Results are written to toll_calculation_results.csv in the output directory.
When validation fails, toll_calculation_validation_errors.csv is written
instead and the command exits with an error. Interrupting the run keeps the
rows priced so far.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		app, err := application.New(ctx, cfg, application.Options{SkipHistory: true})
		if err != nil {
			return err
		}
		defer app.Close()

		return runFile(ctx, app.Service, args[0], &dirSink{dir: outDir}, cmd.OutOrStdout())
	},
}

var validateCmd = &cobra.Command{
	Use:   "validate <input.csv>",
	Short: "Check a trip file without pricing it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc := core.NewService(nil, nil, nil, core.ServiceConfig{
			MaxFileSize: cfg.Bulk.MaxFileSize,
			Encoding:    cfg.Bulk.Encoding,
		})
		return validateFile(svc, args[0], &dirSink{dir: outDir}, cmd.OutOrStdout())
	},
}

var templateCmd = &cobra.Command{
	Use:   "template",
	Short: "Write an empty trip file with the required header",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		sink := &dirSink{dir: outDir}
		if err := core.ExportTemplate(sink); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "wrote", sink.written[0])
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{runCmd, validateCmd, templateCmd} {
		c.Flags().StringVarP(&outDir, "out", "o", ".", "Output directory")
	}
	for _, c := range []*cobra.Command{runCmd, validateCmd} {
		c.Flags().StringVarP(&encoding, "encoding", "e", "", "Input encoding: utf-8, windows-1252 or windows-1251 (default from BULK_INPUT_ENCODING)")
	}
}

// prepareFile opens and validates path. A file that fails validation has
// its report written to sink and errInvalidInput returned.
func prepareFile(svc *core.Service, path string, sink core.DownloadSink, out io.Writer) (*core.Prepared, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	p, err := svc.Prepare(f, filepath.Base(path), encoding)
	if err != nil {
		return nil, err
	}

	if len(p.Report.HeaderErrors) > 0 {
		for _, e := range p.Report.HeaderErrors {
			fmt.Fprintln(out, e)
		}
		if err := core.ExportValidationErrors(sink, core.HeaderErrorReport(p.Report)); err != nil {
			return nil, err
		}
		return nil, p.Report.Err()
	}

	if p.ErrorReport != nil {
		if err := core.ExportValidationErrors(sink, p.ErrorReport); err != nil {
			return nil, err
		}
		fmt.Fprintf(out, "%d of %d rows failed validation, see %s\n",
			len(p.Report.InvalidRows), p.Table.DataRowCount(), core.ValidationErrorsFileName)
		return nil, errInvalidInput
	}

	return p, nil
}

func validateFile(svc *core.Service, path string, sink core.DownloadSink, out io.Writer) error {
	p, err := prepareFile(svc, path, sink, out)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%s: %d rows valid\n", p.FileName, p.Table.DataRowCount())
	return nil
}

func runFile(ctx context.Context, svc *core.Service, path string, sink core.DownloadSink, out io.Writer) error {
	p, err := prepareFile(svc, path, sink, out)
	if err != nil {
		return err
	}

	res, err := svc.RunSync(ctx, p, func(current, total int) {
		fmt.Fprintf(out, "\rprocessed %d/%d", current, total)
	})
	if err != nil {
		return err
	}
	fmt.Fprintln(out)

	if err := core.ExportResults(sink, res.Output); err != nil {
		return err
	}

	fmt.Fprintf(out, "%s: %d succeeded, %d failed in %s\n",
		res.Phase, res.Succeeded, res.Failed, res.Duration.Round(time.Millisecond))
	if res.Phase == core.PhaseCancelled {
		return core.ErrRunCancelled
	}
	return nil
}

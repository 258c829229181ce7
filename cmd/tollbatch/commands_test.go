package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/JonMunkholm/tollbatch/internal/core"
	"github.com/JonMunkholm/tollbatch/internal/retry"
	"github.com/JonMunkholm/tollbatch/internal/tollapi"
)

func writeInput(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "trips.csv")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func sampleService() *core.Service {
	client := tollapi.New(tollapi.Config{})
	return core.NewService(client.Lookup, nil, nil, core.ServiceConfig{
		MaxFileSize: 1 << 20,
		Retry:       retry.Policy{MaxAttempts: 1},
	})
}

func TestRunFile_WritesResults(t *testing.T) {
	in := writeInput(t, "origin,destination,journey_type,way_points\nDelhi,Jaipur,4TO6AX_SJ,Gurgaon\n")
	out := t.TempDir()
	var stdout bytes.Buffer

	if err := runFile(context.Background(), sampleService(), in, &dirSink{dir: out}, &stdout); err != nil {
		t.Fatalf("runFile: %v", err)
	}

	got, err := os.ReadFile(filepath.Join(out, core.ResultsFileName))
	if err != nil {
		t.Fatal(err)
	}
	want := "origin,destination,journey_type,way_points,number_of_tolls,total_toll_price,status,error_message\n" +
		"Delhi,Jaipur,4TO6AX_SJ,Gurgaon,4,350,SUCCESS,"
	if string(got) != want {
		t.Errorf("results = %q, want %q", got, want)
	}
	if !strings.Contains(stdout.String(), "1 succeeded, 0 failed") {
		t.Errorf("stdout = %q", stdout.String())
	}
}

func TestRunFile_InvalidWritesReport(t *testing.T) {
	in := writeInput(t, "origin,destination,journey_type,way_points\nDelhi,Jaipur,NOPE,Gurgaon\n")
	out := t.TempDir()
	var stdout bytes.Buffer

	err := runFile(context.Background(), sampleService(), in, &dirSink{dir: out}, &stdout)
	if !errors.Is(err, errInvalidInput) {
		t.Fatalf("error = %v, want errInvalidInput", err)
	}
	if _, err := os.Stat(filepath.Join(out, core.ValidationErrorsFileName)); err != nil {
		t.Errorf("validation report not written: %v", err)
	}
	if _, err := os.Stat(filepath.Join(out, core.ResultsFileName)); !os.IsNotExist(err) {
		t.Error("results file should not be written")
	}
}

func TestValidateFile(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr error
		wantOut string
	}{
		{"valid", "origin,destination,journey_type,way_points\nA,B,4TO6AX_SJ,C\nD,E,7AX_RJ,F\n", nil, "2 rows valid"},
		{"missing column", "origin,destination\nA,B\n", core.ErrMissingColumns, "missing required column: journey_type"},
		{"bad row", "origin,destination,journey_type,way_points\nA,B,4TO6AX_SJ,\n", errInvalidInput, "1 of 1 rows failed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout bytes.Buffer
			err := validateFile(sampleService(), writeInput(t, tt.content), &dirSink{dir: t.TempDir()}, &stdout)
			if tt.wantErr == nil && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Fatalf("error = %v, want %v", err, tt.wantErr)
			}
			if !strings.Contains(stdout.String(), tt.wantOut) {
				t.Errorf("stdout = %q, want it to contain %q", stdout.String(), tt.wantOut)
			}
		})
	}
}

func TestValidateFile_HeaderReportWritten(t *testing.T) {
	out := t.TempDir()
	var stdout bytes.Buffer

	err := validateFile(sampleService(), writeInput(t, "origin,destination\nA,B\n"), &dirSink{dir: out}, &stdout)
	if !errors.Is(err, core.ErrMissingColumns) {
		t.Fatalf("error = %v, want ErrMissingColumns", err)
	}

	got, err := os.ReadFile(filepath.Join(out, core.ValidationErrorsFileName))
	if err != nil {
		t.Fatalf("header report not written: %v", err)
	}
	for _, want := range []string{"missing required column: journey_type", "missing required column: way_points"} {
		if !strings.Contains(string(got), want) {
			t.Errorf("report = %q, want it to contain %q", got, want)
		}
	}
}

func TestDirSink_CreatesDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "out")
	sink := &dirSink{dir: dir}
	if err := core.ExportTemplate(sink); err != nil {
		t.Fatal(err)
	}
	got, err := os.ReadFile(filepath.Join(dir, core.TemplateFileName))
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "origin,destination,journey_type,way_points" {
		t.Errorf("template = %q", got)
	}
	if len(sink.written) != 1 {
		t.Errorf("written = %v", sink.written)
	}
}

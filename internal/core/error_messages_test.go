package core

import (
	"errors"
	"fmt"
	"testing"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantCode    string
		wantMessage string
	}{
		{
			name:        "nil error returns empty",
			err:         nil,
			wantCode:    "",
			wantMessage: "",
		},
		{
			name:        "missing column",
			err:         fmt.Errorf("%w: way_points", ErrMissingColumns),
			wantCode:    "VAL001",
			wantMessage: "A required column is missing from the file",
		},
		{
			name:        "invalid rows",
			err:         errors.New("invalid rows: 3 row(s) failed validation"),
			wantCode:    "VAL002",
			wantMessage: "Some rows failed validation",
		},
		{
			name:        "file too large",
			err:         errors.New("file too large: exceeds 10485760 bytes"),
			wantCode:    "FILE001",
			wantMessage: "File exceeds the maximum upload size",
		},
		{
			name:        "not a csv",
			err:         ErrNotCSV,
			wantCode:    "FILE002",
			wantMessage: "Only .csv files are accepted",
		},
		{
			name:        "no data rows",
			err:         ErrNoDataRows,
			wantCode:    "FILE005",
			wantMessage: "The uploaded file has no data rows",
		},
		{
			name:        "busy",
			err:         ErrTooManyRuns,
			wantCode:    "RUN002",
			wantMessage: "System is busy processing other files",
		},
		{
			name:        "wrapped run not found",
			err:         fmt.Errorf("progress: %w", ErrRunNotFound),
			wantCode:    "RUN003",
			wantMessage: "Bulk run not found",
		},
		{
			name:        "invalid location from fuel service",
			err:         errors.New("Invalid location. Please check the coordinates or city name."),
			wantCode:    "API001",
			wantMessage: "Invalid location",
		},
		{
			name:        "history disabled",
			err:         ErrHistoryDisabled,
			wantCode:    "DB001",
			wantMessage: "Run history is not available",
		},
		{
			name:        "rate limit",
			err:         errors.New("rate limit exceeded"),
			wantCode:    "RATE001",
			wantMessage: "Too many requests",
		},
		{
			name:        "unknown error returns default",
			err:         errors.New("some random internal error"),
			wantCode:    "ERR000",
			wantMessage: "An unexpected error occurred",
		},
		{
			name:        "case insensitive matching",
			err:         errors.New("FILE TOO LARGE"),
			wantCode:    "FILE001",
			wantMessage: "File exceeds the maximum upload size",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapError(tt.err)
			if got.Code != tt.wantCode {
				t.Errorf("MapError() code = %q, want %q", got.Code, tt.wantCode)
			}
			if got.Message != tt.wantMessage {
				t.Errorf("MapError() message = %q, want %q", got.Message, tt.wantMessage)
			}
		})
	}
}

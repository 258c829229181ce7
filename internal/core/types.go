package core

import (
	"context"
	"time"

	"github.com/JonMunkholm/tollbatch/internal/csvcodec"
)

// TripRequest is one trip to price, built from a validated data row.
type TripRequest struct {
	Origin      string   `json:"origin"`
	Destination string   `json:"destination"`
	Waypoints   []string `json:"waypoints"`
	JourneyType string   `json:"journey_type"`
}

// LookupResult is what the remote toll service reports for a trip.
type LookupResult struct {
	TollCount      int     `json:"toll_count"`
	TotalTollPrice float64 `json:"total_toll_price"`
}

// LookupFunc prices a single trip. It must be safe to call again after a
// failure.
type LookupFunc func(ctx context.Context, req TripRequest) (LookupResult, error)

// ProgressFunc is invoked once per processed row with the 1-based index of
// that row and the total number of data rows.
type ProgressFunc func(current, total int)

// RowStatus is the outcome of processing one row.
type RowStatus string

const (
	StatusSuccess RowStatus = "SUCCESS"
	StatusError   RowStatus = "ERROR"
)

// RowOutcome is the processed result of one data row.
type RowOutcome struct {
	Cells          []string
	TollCount      int
	TotalTollPrice float64
	Status         RowStatus
	ErrorMessage   string
	Attempts       int
}

// RowValidationResult lists the problems found in one data row.
// Row is 1-based and excludes the header.
type RowValidationResult struct {
	Row    int      `json:"row"`
	Errors []string `json:"errors"`
}

// ValidationReport is the outcome of validating a whole table.
type ValidationReport struct {
	Valid        bool                  `json:"valid"`
	HeaderErrors []string              `json:"header_errors,omitempty"`
	InvalidRows  []RowValidationResult `json:"invalid_rows,omitempty"`
}

// InvalidRowSet returns the invalid rows keyed by row number.
func (r ValidationReport) InvalidRowSet() map[int][]string {
	m := make(map[int][]string, len(r.InvalidRows))
	for _, row := range r.InvalidRows {
		m[row.Row] = row.Errors
	}
	return m
}

// RunPhase indicates the current stage of a bulk run.
type RunPhase string

const (
	PhaseQueued     RunPhase = "queued"
	PhaseProcessing RunPhase = "processing"
	PhaseComplete   RunPhase = "complete"
	PhaseFailed     RunPhase = "failed"
	PhaseCancelled  RunPhase = "cancelled"
)

// Finished reports whether the phase is terminal.
func (p RunPhase) Finished() bool {
	return p == PhaseComplete || p == PhaseFailed || p == PhaseCancelled
}

// RunProgress is a snapshot of a bulk run.
type RunProgress struct {
	RunID     string   `json:"run_id"`
	FileName  string   `json:"file_name"`
	Phase     RunPhase `json:"phase"`
	Current   int      `json:"current"`
	Total     int      `json:"total"`
	Succeeded int      `json:"succeeded"`
	Failed    int      `json:"failed"`
	Error     string   `json:"error,omitempty"`
}

// Percent returns the progress as a percentage (0-100).
func (p RunProgress) Percent() int {
	if p.Total <= 0 {
		return 0
	}
	return (p.Current * 100) / p.Total
}

// RunResult is the final state of a bulk run.
type RunResult struct {
	RunID     string
	FileName  string
	Phase     RunPhase
	Output    csvcodec.Table // results table, partial when cancelled
	Rows      int
	Processed int
	Succeeded int
	Failed    int
	Duration  time.Duration
	Error     string
}

// RunSummary is the persisted record of a finished run.
type RunSummary struct {
	RunID      string        `json:"run_id"`
	FileName   string        `json:"file_name"`
	Status     RunPhase      `json:"status"`
	Rows       int           `json:"rows"`
	Succeeded  int           `json:"succeeded"`
	Failed     int           `json:"failed"`
	Duration   time.Duration `json:"duration_ns"`
	ClientIP   string        `json:"client_ip,omitempty"`
	Error      string        `json:"error,omitempty"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
}

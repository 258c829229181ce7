package core

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/JonMunkholm/tollbatch/internal/csvcodec"
	"github.com/JonMunkholm/tollbatch/internal/retry"
)

// Result columns appended to the original header.
const (
	ColNumberOfTolls  = "number_of_tolls"
	ColTotalTollPrice = "total_toll_price"
	ColStatus         = "status"
	ColErrorMessage   = "error_message"
)

// ResultColumns lists the result columns in output order.
var ResultColumns = []string{ColNumberOfTolls, ColTotalTollPrice, ColStatus, ColErrorMessage}

// Processor prices every row of a validated table, one row at a time.
type Processor struct {
	lookup LookupFunc
	policy retry.Policy
	logger *slog.Logger
	onRow  func(RowOutcome)
}

// NewProcessor creates a Processor that calls lookup for each row and
// retries failures according to policy.
func NewProcessor(lookup LookupFunc, policy retry.Policy, logger *slog.Logger) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{lookup: lookup, policy: policy, logger: logger}
}

// OnRow registers fn to receive each outcome as soon as its row finishes,
// before the progress callback runs.
func (p *Processor) OnRow(fn func(RowOutcome)) *Processor {
	p.onRow = fn
	return p
}

// Process looks up every data row of t in input order and returns the
// results table along with the per-row outcomes.
//
// A row that still fails after the last attempt is recorded as ERROR and
// processing moves on. progress, when non-nil, is called after each row.
// Cancellation is checked between rows; on cancellation the rows finished
// so far are returned together with the context error.
func (p *Processor) Process(ctx context.Context, t csvcodec.Table, progress ProgressFunc) (csvcodec.Table, []RowOutcome, error) {
	header := t.Header()
	idx := MakeColumnIndex(header)

	var rows [][]string
	for _, row := range t.DataRows() {
		if !csvcodec.IsBlankRow(row) {
			rows = append(rows, row)
		}
	}
	total := len(rows)

	outHeader := make([]string, 0, len(header)+len(ResultColumns))
	outHeader = append(outHeader, header...)
	out := csvcodec.Table{append(outHeader, ResultColumns...)}
	outcomes := make([]RowOutcome, 0, total)

	for i, row := range rows {
		if err := ctx.Err(); err != nil {
			return out, outcomes, err
		}

		outcome, err := p.processRow(ctx, row, idx)
		if err != nil {
			// cancelled while waiting between attempts
			return out, outcomes, err
		}

		outcomes = append(outcomes, outcome)
		out = append(out, outcome.Row())
		if p.onRow != nil {
			p.onRow(outcome)
		}

		if progress != nil {
			progress(i+1, total)
		}
	}

	return out, outcomes, nil
}

func (p *Processor) processRow(ctx context.Context, row []string, idx ColumnIndex) (RowOutcome, error) {
	req := TripRequestFromRow(row, idx)

	var res LookupResult
	attempts, err := retry.Do(ctx, p.policy, func(ctx context.Context, attempt int) error {
		r, err := p.lookup(ctx, req)
		if err != nil {
			p.logger.Debug("toll lookup failed",
				"origin", req.Origin,
				"destination", req.Destination,
				"attempt", attempt,
				"error", err,
			)
			return err
		}
		res = r
		return nil
	})

	outcome := RowOutcome{
		Cells:    row,
		Attempts: attempts,
	}

	if err != nil {
		if ctx.Err() != nil {
			return RowOutcome{}, ctx.Err()
		}
		outcome.Status = StatusError
		outcome.ErrorMessage = err.Error()
		return outcome, nil
	}

	outcome.Status = StatusSuccess
	outcome.TollCount = max(res.TollCount, 0)
	outcome.TotalTollPrice = max(res.TotalTollPrice, 0)
	return outcome, nil
}

// TripRequestFromRow builds the request for one validated data row.
// Via points are split on commas outside quoted spans.
func TripRequestFromRow(row []string, idx ColumnIndex) TripRequest {
	return TripRequest{
		Origin:      idx.Cell(row, ColOrigin),
		Destination: idx.Cell(row, ColDestination),
		Waypoints:   csvcodec.SplitQuoted(idx.Cell(row, ColWayPoints)),
		JourneyType: idx.Cell(row, ColJourneyType),
	}
}

// Row returns the original cells followed by the result columns.
func (o RowOutcome) Row() []string {
	cells := make([]string, 0, len(o.Cells)+len(ResultColumns))
	cells = append(cells, o.Cells...)
	return append(cells,
		strconv.Itoa(o.TollCount),
		FormatPrice(o.TotalTollPrice),
		string(o.Status),
		o.ErrorMessage,
	)
}

// FormatPrice renders a price with the shortest exact decimal form, so 350
// is written as "350" and 102.5 as "102.5".
func FormatPrice(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

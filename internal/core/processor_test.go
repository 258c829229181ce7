package core

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/JonMunkholm/tollbatch/internal/csvcodec"
	"github.com/JonMunkholm/tollbatch/internal/retry"
)

// fakeLookup replays scripted responses per origin.
type fakeLookup struct {
	mu       sync.Mutex
	calls    map[string]int
	requests []TripRequest
	script   func(req TripRequest, call int) (LookupResult, error)
}

func newFakeLookup(script func(req TripRequest, call int) (LookupResult, error)) *fakeLookup {
	return &fakeLookup{calls: make(map[string]int), script: script}
}

func (f *fakeLookup) Lookup(ctx context.Context, req TripRequest) (LookupResult, error) {
	f.mu.Lock()
	f.calls[req.Origin]++
	call := f.calls[req.Origin]
	f.requests = append(f.requests, req)
	f.mu.Unlock()
	return f.script(req, call)
}

type delayRecorder struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (d *delayRecorder) Sleep(ctx context.Context, delay time.Duration) error {
	d.mu.Lock()
	d.delays = append(d.delays, delay)
	d.mu.Unlock()
	return ctx.Err()
}

func testPolicy(rec *delayRecorder) retry.Policy {
	return retry.Policy{MaxAttempts: 3, Delay: time.Second, Sleep: rec.Sleep}
}

func twoRowTable() csvcodec.Table {
	return csvcodec.Table{
		validHeader,
		{"Delhi", "Jaipur", "4TO6AX_SJ", "Gurgaon"},
		{"Pune", "Mumbai", "7AX_RJ", "Lonavala"},
	}
}

func TestProcess_RetriesThenSucceeds(t *testing.T) {
	lookup := newFakeLookup(func(req TripRequest, call int) (LookupResult, error) {
		if req.Origin == "Delhi" && call < 3 {
			return LookupResult{}, fmt.Errorf("attempt %d failed", call)
		}
		if req.Origin == "Delhi" {
			return LookupResult{TollCount: 4, TotalTollPrice: 350}, nil
		}
		return LookupResult{TollCount: 2, TotalTollPrice: 120.5}, nil
	})
	rec := &delayRecorder{}

	out, outcomes, err := NewProcessor(lookup.Lookup, testPolicy(rec), nil).
		Process(context.Background(), twoRowTable(), nil)
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}

	if len(rec.delays) != 2 {
		t.Errorf("delays = %v, want exactly two", rec.delays)
	}
	for _, d := range rec.delays {
		if d != time.Second {
			t.Errorf("delay = %v, want 1s", d)
		}
	}

	if outcomes[0].Status != StatusSuccess || outcomes[0].Attempts != 3 {
		t.Errorf("row 1 outcome = %+v", outcomes[0])
	}

	want := csvcodec.Table{
		{"origin", "destination", "journey_type", "way_points", "number_of_tolls", "total_toll_price", "status", "error_message"},
		{"Delhi", "Jaipur", "4TO6AX_SJ", "Gurgaon", "4", "350", "SUCCESS", ""},
		{"Pune", "Mumbai", "7AX_RJ", "Lonavala", "2", "120.5", "SUCCESS", ""},
	}
	if !reflect.DeepEqual(out, want) {
		t.Errorf("output = %q\nwant %q", out, want)
	}
}

func TestProcess_FailureIsRowScoped(t *testing.T) {
	lookup := newFakeLookup(func(req TripRequest, call int) (LookupResult, error) {
		if req.Origin == "Pune" {
			return LookupResult{}, fmt.Errorf("toll service down (%d)", call)
		}
		return LookupResult{TollCount: 1, TotalTollPrice: 65}, nil
	})
	rec := &delayRecorder{}

	out, outcomes, err := NewProcessor(lookup.Lookup, testPolicy(rec), nil).
		Process(context.Background(), twoRowTable(), nil)
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}

	if outcomes[0].Status != StatusSuccess || outcomes[0].TollCount != 1 {
		t.Errorf("row 1 outcome = %+v, want unaffected success", outcomes[0])
	}
	if outcomes[1].Status != StatusError {
		t.Errorf("row 2 status = %s, want ERROR", outcomes[1].Status)
	}
	if outcomes[1].ErrorMessage != "toll service down (3)" {
		t.Errorf("row 2 message = %q, want final failure", outcomes[1].ErrorMessage)
	}
	if got := out[2][4:]; !reflect.DeepEqual(got, []string{"0", "0", "ERROR", "toll service down (3)"}) {
		t.Errorf("row 2 result cells = %q", got)
	}
	if lookup.calls["Pune"] != 3 {
		t.Errorf("Pune lookups = %d, want 3", lookup.calls["Pune"])
	}
}

func TestProcess_ProgressAndOrder(t *testing.T) {
	lookup := newFakeLookup(func(req TripRequest, call int) (LookupResult, error) {
		return LookupResult{}, nil
	})

	table := csvcodec.Table{validHeader}
	for i := 0; i < 5; i++ {
		table = append(table, []string{fmt.Sprintf("City%d", i), "Jaipur", "4TO6AX_SJ", "Agra"})
	}

	type tick struct{ current, total int }
	var ticks []tick

	out, _, err := NewProcessor(lookup.Lookup, testPolicy(&delayRecorder{}), nil).
		Process(context.Background(), table, func(current, total int) {
			ticks = append(ticks, tick{current, total})
		})
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}

	for i, tk := range ticks {
		if tk.current != i+1 || tk.total != 5 {
			t.Errorf("tick %d = %+v, want {%d 5}", i, tk, i+1)
		}
	}
	if len(ticks) != 5 {
		t.Errorf("ticks = %d, want 5", len(ticks))
	}
	for i, req := range lookup.requests {
		if req.Origin != fmt.Sprintf("City%d", i) {
			t.Errorf("request %d origin = %q, out of order", i, req.Origin)
		}
		if out[i+1][0] != req.Origin {
			t.Errorf("output row %d = %q, out of order", i+1, out[i+1][0])
		}
	}
}

func TestProcess_QuotedWaypoints(t *testing.T) {
	lookup := newFakeLookup(func(req TripRequest, call int) (LookupResult, error) {
		return LookupResult{TollCount: 1}, nil
	})

	table := csvcodec.Decode("origin,destination,journey_type,way_points\n" +
		`Delhi,Jaipur,4TO6AX_SJ,"Agra, ""Mathura, UP"", 27.1,78.0"`)

	if _, _, err := NewProcessor(lookup.Lookup, testPolicy(&delayRecorder{}), nil).
		Process(context.Background(), table, nil); err != nil {
		t.Fatalf("Process() error = %v", err)
	}

	want := []string{"Agra", "Mathura, UP", "27.1", "78.0"}
	if got := lookup.requests[0].Waypoints; !reflect.DeepEqual(got, want) {
		t.Errorf("Waypoints = %q, want %q", got, want)
	}
}

func TestProcess_CancelBetweenRows(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	lookup := newFakeLookup(func(req TripRequest, call int) (LookupResult, error) {
		if req.Origin == "Delhi" {
			cancel()
		}
		return LookupResult{TollCount: 1}, nil
	})

	out, outcomes, err := NewProcessor(lookup.Lookup, testPolicy(&delayRecorder{}), nil).
		Process(ctx, twoRowTable(), nil)

	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if len(outcomes) != 1 || len(out) != 2 {
		t.Errorf("kept %d outcomes and %d rows, want the first row only", len(outcomes), len(out)-1)
	}
	if lookup.calls["Pune"] != 0 {
		t.Error("second row was looked up after cancellation")
	}
}

func TestProcess_ClampsNegativeValues(t *testing.T) {
	lookup := newFakeLookup(func(req TripRequest, call int) (LookupResult, error) {
		return LookupResult{TollCount: -1, TotalTollPrice: -5}, nil
	})

	_, outcomes, _ := NewProcessor(lookup.Lookup, testPolicy(&delayRecorder{}), nil).
		Process(context.Background(), twoRowTable(), nil)

	if outcomes[0].TollCount != 0 || outcomes[0].TotalTollPrice != 0 {
		t.Errorf("outcome = %+v, want zero values", outcomes[0])
	}
}

func TestFormatPrice(t *testing.T) {
	tests := map[float64]string{
		0:      "0",
		350:    "350",
		102.5:  "102.5",
		95.2:   "95.2",
		1234.0: "1234",
	}
	for in, want := range tests {
		if got := FormatPrice(in); got != want {
			t.Errorf("FormatPrice(%v) = %q, want %q", in, got, want)
		}
	}
}

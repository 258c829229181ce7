package tollapi

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/JonMunkholm/tollbatch/internal/core"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(Config{
		TollURL: srv.URL + "/toll",
		FuelURL: srv.URL + "/fuel",
		APIKey:  "test-key",
	})
}

func TestCorrectCity(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Bombay", "mumbai"},
		{"bengaluru", "bangalore"},
		{"Belary", "bellary"},
		{"Delhi", "Delhi"},
		{"poona ", "poona "},
	}
	for _, tt := range tests {
		if got := CorrectCity(tt.in); got != tt.want {
			t.Errorf("CorrectCity(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestToll_SendsQuery(t *testing.T) {
	var gotQuery map[string]string
	var gotKey string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("x-api-key")
		gotQuery = map[string]string{}
		for k := range r.URL.Query() {
			gotQuery[k] = r.URL.Query().Get(k)
		}
		w.Write([]byte(`{"toll_booths": []}`))
	})

	_, err := c.Toll(context.Background(), core.TripRequest{
		Origin:      " Bombay ",
		Destination: "Pune",
		Waypoints:   []string{" Lonavala ", "", "Banglore", "Khopoli"},
		JourneyType: "SJ",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if gotKey != "test-key" {
		t.Errorf("x-api-key = %q", gotKey)
	}
	want := map[string]string{
		"origin":                   "mumbai",
		"destination":              "Pune",
		"journey_type":             "SJ",
		"waypoints":                "Lonavala|bangalore|Khopoli",
		"include_route":            "true",
		"include_route_metadata":   "true",
		"include_booths":           "true",
		"include_booths_locations": "true",
	}
	for k, v := range want {
		if gotQuery[k] != v {
			t.Errorf("query %s = %q, want %q", k, gotQuery[k], v)
		}
	}
}

func TestToll_NoWaypointsParam(t *testing.T) {
	var has bool
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		has = r.URL.Query().Has("waypoints")
		w.Write([]byte(`{}`))
	})
	if _, err := c.Toll(context.Background(), core.TripRequest{Origin: "A", Destination: "B"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if has {
		t.Error("waypoints param should be omitted")
	}
}

func TestToll_ParsesBoothsAndRoute(t *testing.T) {
	body := `{
		"toll_booths": [
			{"name": "Plaza A", "price": 50, "latitude": 19.0, "longitude": 73.0, "route_name": "NH48"},
			{"name": "", "price": "25.5", "latitude": "18.9", "longitude": "73.2"},
			{"name": "No Location", "price": 10}
		],
		"route": [[73.0, 19.0], [73.5, 18.5]]
	}`
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(body))
	})

	d, err := c.Toll(context.Background(), core.TripRequest{Origin: "A", Destination: "B"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if d.TollCount != 2 {
		t.Errorf("TollCount = %d, want 2", d.TollCount)
	}
	if d.TotalTollPrice != 85.5 {
		t.Errorf("TotalTollPrice = %v, want 85.5", d.TotalTollPrice)
	}
	if d.TollBooths[0].Address != "NH48" || d.TollBooths[0].Coords != (LatLng{19.0, 73.0}) {
		t.Errorf("booth 0 = %+v", d.TollBooths[0])
	}
	if d.TollBooths[1].Name != "Unknown Toll Booth" {
		t.Errorf("booth 1 name = %q", d.TollBooths[1].Name)
	}
	if len(d.RouteCoordinates) != 2 || d.RouteCoordinates[0] != (LatLng{19.0, 73.0}) {
		t.Errorf("route = %v", d.RouteCoordinates)
	}
	if *d.OriginCoords != (LatLng{19.0, 73.0}) || *d.DestinationCoords != (LatLng{18.5, 73.5}) {
		t.Errorf("endpoints = %v %v", *d.OriginCoords, *d.DestinationCoords)
	}
	if d.WaypointCoords == nil || len(d.WaypointCoords) != 0 {
		t.Errorf("WaypointCoords = %v, want empty", d.WaypointCoords)
	}
}

func TestToll_PolylineFallback(t *testing.T) {
	// "_p~iF~ps|U_ulLnnqC_mqNvxq`@" is the reference polyline for
	// (38.5,-120.2) (40.7,-120.95) (43.252,-126.453).
	tests := []struct {
		name string
		body string
	}{
		{"overview", `{"routes": [{"overview_polyline": {"points": "_p~iF~ps|U_ulLnnqC_mqNvxq` + "`" + `@"}}]}`},
		{"steps", `{"routes": [{"legs": [{"steps": [
			{"polyline": {"points": "_p~iF~ps|U"}},
			{"polyline": {"points": "_p~iF~ps|U"}}
		]}]}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(tt.body))
			})
			d, err := c.Toll(context.Background(), core.TripRequest{Origin: "A", Destination: "B"})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(d.RouteCoordinates) < 2 {
				t.Fatalf("route = %v, want at least 2 points", d.RouteCoordinates)
			}
			first := d.RouteCoordinates[0]
			if first[0] < 38.4 || first[0] > 38.6 || first[1] > -120.1 || first[1] < -120.3 {
				t.Errorf("first point = %v, want about (38.5,-120.2)", first)
			}
			if d.OriginCoords == nil || d.DestinationCoords == nil {
				t.Error("endpoints should be set")
			}
		})
	}
}

func TestToll_RouteFromBooths(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"toll_booths": [{"name": "X", "price": 1, "latitude": 10, "longitude": 20}]}`))
	})
	d, err := c.Toll(context.Background(), core.TripRequest{Origin: "A", Destination: "B"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(d.RouteCoordinates) != 1 || d.RouteCoordinates[0] != (LatLng{10, 20}) {
		t.Errorf("route = %v", d.RouteCoordinates)
	}
}

func TestToll_NoRoute(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"toll_booths": []}`))
	})
	d, err := c.Toll(context.Background(), core.TripRequest{Origin: "A", Destination: "B"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.OriginCoords != nil || d.DestinationCoords != nil {
		t.Error("endpoints should be nil without a route")
	}
	if d.RouteCoordinates == nil {
		t.Error("RouteCoordinates should be an empty slice")
	}
}

func TestToll_Errors(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantStatus int
		wantMsg    string
	}{
		{"empty body", 200, "  \n", 500, "Empty response received from API"},
		{"bad json", 200, "{not json", 500, "Failed to parse API response"},
		{"remote message", 400, `{"message": "Invalid journey type"}`, 400, "Invalid journey type"},
		{"remote no message", 502, `{}`, 502, "API request failed"},
		{"remote non json", 503, `oops`, 503, "API request failed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			})
			_, err := c.Toll(context.Background(), core.TripRequest{Origin: "A", Destination: "B"})
			var le *LookupError
			if !errors.As(err, &le) {
				t.Fatalf("error = %v, want *LookupError", err)
			}
			if le.Status != tt.wantStatus || le.Message != tt.wantMsg {
				t.Errorf("got (%d, %q), want (%d, %q)", le.Status, le.Message, tt.wantStatus, tt.wantMsg)
			}
		})
	}
}

func TestToll_MissingEndpoints(t *testing.T) {
	c := New(Config{APIKey: "k"})
	for _, req := range []core.TripRequest{
		{Origin: "", Destination: "B"},
		{Origin: "A", Destination: "  "},
	} {
		if _, err := c.Toll(context.Background(), req); !errors.Is(err, ErrMissingEndpoints) {
			t.Errorf("Toll(%+v) error = %v, want ErrMissingEndpoints", req, err)
		}
	}
}

func TestToll_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	c := New(Config{TollURL: srv.URL, APIKey: "k", Timeout: 50 * time.Millisecond})
	_, err := c.Toll(context.Background(), core.TripRequest{Origin: "A", Destination: "B"})
	var le *LookupError
	if !errors.As(err, &le) || le.Status != http.StatusGatewayTimeout {
		t.Fatalf("error = %v, want 504 LookupError", err)
	}
}

func TestToll_SampleMode(t *testing.T) {
	c := New(Config{})
	if !c.SampleMode() {
		t.Fatal("client without key should be in sample mode")
	}
	d, err := c.Toll(context.Background(), core.TripRequest{Origin: "Delhi", Destination: "Jaipur"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.TollCount != 4 || d.TotalTollPrice != 350 {
		t.Errorf("got (%d, %v), want (4, 350)", d.TollCount, d.TotalTollPrice)
	}
	if d.TollBooths[0].Coords != (LatLng{28.5000, 77.3200}) {
		t.Errorf("booth coords = %v, want lat first", d.TollBooths[0].Coords)
	}
	if *d.OriginCoords != (LatLng{28.6139, 77.2090}) {
		t.Errorf("origin = %v", *d.OriginCoords)
	}
}

func TestLookup(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"toll_booths": [{"price": 40, "latitude": 1, "longitude": 2}, {"price": 60}]}`))
	})
	res, err := c.Lookup(context.Background(), core.TripRequest{Origin: "A", Destination: "B"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.TollCount != 1 || res.TotalTollPrice != 100 {
		t.Errorf("got %+v", res)
	}
}

func TestClient_RateLimitRespectsContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()
	c := New(Config{TollURL: srv.URL, APIKey: "k", RequestsPerSecond: 0.001, Burst: 1})

	ctx := context.Background()
	if _, err := c.Toll(ctx, core.TripRequest{Origin: "A", Destination: "B"}); err != nil {
		t.Fatalf("first call: %v", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	_, err := c.Toll(ctx, core.TripRequest{Origin: "A", Destination: "B"})
	if err == nil || !strings.Contains(err.Error(), "rate limit") {
		t.Errorf("error = %v, want rate limit error", err)
	}
}

package tollapi

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"googlemaps.github.io/maps"

	"github.com/JonMunkholm/tollbatch/internal/core"
)

// ErrMissingEndpoints is returned when origin or destination is empty.
var ErrMissingEndpoints = &LookupError{Status: http.StatusBadRequest, Message: "Origin and destination are required"}

// cityCorrections fixes common misspellings and old names before they reach
// the toll service.
var cityCorrections = map[string]string{
	"belary":    "bellary",
	"banglore":  "bangalore",
	"bengaluru": "bangalore",
	"bombay":    "mumbai",
	"calcutta":  "kolkata",
	"poona":     "pune",
}

// CorrectCity returns the corrected spelling of a place name, or name
// unchanged when no correction applies.
func CorrectCity(name string) string {
	if fixed, ok := cityCorrections[strings.ToLower(name)]; ok {
		return fixed
	}
	return name
}

// LatLng is a [latitude, longitude] pair.
type LatLng [2]float64

// Booth is a toll plaza on the route.
type Booth struct {
	Name    string  `json:"name"`
	Price   float64 `json:"price"`
	Address string  `json:"address"`
	Coords  LatLng  `json:"coords"`
}

// TollDetails is the full answer for a single trip.
type TollDetails struct {
	TollCount         int      `json:"toll_count"`
	TotalTollPrice    float64  `json:"total_toll_price"`
	TollBooths        []Booth  `json:"toll_booths"`
	RouteCoordinates  []LatLng `json:"route_coordinates"`
	WaypointCoords    []LatLng `json:"waypoint_coords"`
	OriginCoords      *LatLng  `json:"origin_coords"`
	DestinationCoords *LatLng  `json:"destination_coords"`
}

type rawBooth struct {
	Name      string     `json:"name"`
	Price     flexFloat  `json:"price"`
	Latitude  *flexFloat `json:"latitude"`
	Longitude *flexFloat `json:"longitude"`
	RouteName string     `json:"route_name"`
}

type rawRoute struct {
	OverviewPolyline struct {
		Points string `json:"points"`
	} `json:"overview_polyline"`
	Legs []struct {
		Steps []struct {
			Polyline struct {
				Points string `json:"points"`
			} `json:"polyline"`
		} `json:"steps"`
	} `json:"legs"`
}

type rawTollResponse struct {
	TollBooths []rawBooth      `json:"toll_booths"`
	Route      json.RawMessage `json:"route"`
	Routes     []rawRoute      `json:"routes"`
	Message    string          `json:"message"`
}

// Lookup prices a trip for the bulk processor.
func (c *Client) Lookup(ctx context.Context, req core.TripRequest) (core.LookupResult, error) {
	d, err := c.Toll(ctx, req)
	if err != nil {
		return core.LookupResult{}, err
	}
	return core.LookupResult{TollCount: d.TollCount, TotalTollPrice: d.TotalTollPrice}, nil
}

// Toll fetches booths, route and totals for one trip.
func (c *Client) Toll(ctx context.Context, req core.TripRequest) (*TollDetails, error) {
	origin := strings.TrimSpace(req.Origin)
	destination := strings.TrimSpace(req.Destination)
	if origin == "" || destination == "" {
		return nil, ErrMissingEndpoints
	}

	if c.SampleMode() {
		slog.Warn("no lookup API key configured, serving sample toll data")
		return SampleToll(), nil
	}

	params := url.Values{}
	params.Set("origin", CorrectCity(origin))
	params.Set("destination", CorrectCity(destination))
	params.Set("journey_type", req.JourneyType)
	params.Set("include_route", "true")
	params.Set("include_route_metadata", "true")
	params.Set("include_booths", "true")
	params.Set("include_booths_locations", "true")

	var wps []string
	for _, wp := range req.Waypoints {
		if wp = strings.TrimSpace(wp); wp != "" {
			wps = append(wps, CorrectCity(wp))
		}
	}
	if len(wps) > 0 {
		params.Set("waypoints", strings.Join(wps, "|"))
	}

	status, body, err := c.get(ctx, c.cfg.TollURL, params)
	if err != nil {
		return nil, err
	}

	return parseTollResponse(status, body)
}

func parseTollResponse(status int, body []byte) (*TollDetails, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, &LookupError{Status: http.StatusInternalServerError, Message: "Empty response received from API"}
	}

	var raw rawTollResponse
	if err := json.Unmarshal(body, &raw); err != nil {
		if status != http.StatusOK {
			return nil, &LookupError{Status: status, Message: "API request failed"}
		}
		return nil, &LookupError{Status: http.StatusInternalServerError, Message: "Failed to parse API response"}
	}

	if status != http.StatusOK {
		msg := raw.Message
		if msg == "" {
			msg = "API request failed"
		}
		return nil, &LookupError{Status: status, Message: msg}
	}

	d := &TollDetails{
		TollBooths:     []Booth{},
		WaypointCoords: []LatLng{},
	}

	for _, b := range raw.TollBooths {
		d.TotalTollPrice += float64(b.Price)

		if b.Latitude == nil || b.Longitude == nil {
			continue
		}
		name := b.Name
		if name == "" {
			name = "Unknown Toll Booth"
		}
		d.TollBooths = append(d.TollBooths, Booth{
			Name:    name,
			Price:   float64(b.Price),
			Address: b.RouteName,
			Coords:  LatLng{float64(*b.Latitude), float64(*b.Longitude)},
		})
	}
	d.TollCount = len(d.TollBooths)

	d.RouteCoordinates = routeCoordinates(raw)
	if len(d.RouteCoordinates) == 0 {
		for _, b := range d.TollBooths {
			d.RouteCoordinates = append(d.RouteCoordinates, b.Coords)
		}
	}
	if n := len(d.RouteCoordinates); n > 0 {
		first, last := d.RouteCoordinates[0], d.RouteCoordinates[n-1]
		d.OriginCoords, d.DestinationCoords = &first, &last
	}
	if d.RouteCoordinates == nil {
		d.RouteCoordinates = []LatLng{}
	}

	return d, nil
}

// routeCoordinates reads the route as [lng, lat] pairs, falling back to
// encoded polylines in a Google-style routes list.
func routeCoordinates(raw rawTollResponse) []LatLng {
	var pairs [][]flexFloat
	if len(raw.Route) > 0 && json.Unmarshal(raw.Route, &pairs) == nil && len(pairs) > 0 {
		out := make([]LatLng, 0, len(pairs))
		for _, p := range pairs {
			if len(p) >= 2 {
				out = append(out, LatLng{float64(p[1]), float64(p[0])})
			}
		}
		return out
	}

	if len(raw.Routes) == 0 {
		return nil
	}
	route := raw.Routes[0]

	if pts := route.OverviewPolyline.Points; pts != "" {
		return decodePolyline(pts)
	}

	var out []LatLng
	for _, leg := range route.Legs {
		for _, step := range leg.Steps {
			out = append(out, decodePolyline(step.Polyline.Points)...)
		}
	}
	return out
}

func decodePolyline(points string) []LatLng {
	if points == "" {
		return nil
	}
	decoded, err := maps.DecodePolyline(points)
	if err != nil {
		slog.Warn("failed to decode route polyline", "error", err)
		return nil
	}
	out := make([]LatLng, 0, len(decoded))
	for _, ll := range decoded {
		out = append(out, LatLng{ll.Lat, ll.Lng})
	}
	return out
}

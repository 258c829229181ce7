package tollapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
)

// DefaultFuelType is used when a query leaves FuelType empty.
const DefaultFuelType = "petrol"

// FuelQuery asks for fuel prices at a place.
type FuelQuery struct {
	Location      string `json:"location"`
	FuelType      string `json:"fuel_type"`
	IsCoordinates bool   `json:"is_coordinates"`
}

var (
	ErrMissingLocation     = &LookupError{Status: http.StatusBadRequest, Message: "Location is required"}
	ErrGeocoderUnavailable = &LookupError{Status: http.StatusServiceUnavailable, Message: "Geocoding service unavailable"}
	ErrLocationNotFound    = &LookupError{Status: http.StatusBadRequest, Message: "Could not find coordinates for this location"}
)

// FuelPrice returns today's prices for q, keyed by the lower-cased location
// the caller asked for.
func (c *Client) FuelPrice(ctx context.Context, q FuelQuery) (map[string]any, error) {
	location := strings.TrimSpace(q.Location)
	if location == "" {
		return nil, ErrMissingLocation
	}
	fuelType := strings.TrimSpace(q.FuelType)
	if fuelType == "" {
		fuelType = DefaultFuelType
	}
	key := strings.ToLower(location)

	if c.SampleMode() {
		slog.Warn("no lookup API key configured, serving sample fuel data")
		return SampleFuel(location, fuelType), nil
	}

	query := location
	if !q.IsCoordinates {
		if c.geocoder == nil {
			return nil, ErrGeocoderUnavailable
		}
		coord, err := c.geocoder.Geocode(ctx, location)
		if err != nil {
			slog.Warn("geocoding failed", "location", location, "error", err)
			return nil, ErrLocationNotFound
		}
		query = fmt.Sprintf("%g,%g", coord.Lat, coord.Lng)
	}

	params := url.Values{}
	params.Set("query", query)
	params.Set("date", c.now().Format("2006-01-02"))
	params.Set("fuel_type", fuelType)

	status, body, err := c.get(ctx, c.cfg.FuelURL, params)
	if err != nil {
		return nil, err
	}

	switch status {
	case http.StatusOK:
	case http.StatusUnprocessableEntity:
		return nil, &LookupError{Status: status, Message: "Invalid location. Please check the coordinates or city name."}
	default:
		return nil, &LookupError{Status: status, Message: "No fuel price data available for this location"}
	}

	return rekeyFuelResponse(body, key)
}

// rekeyFuelResponse files the first entry of the response under key when
// the service used a different name for the place.
func rekeyFuelResponse(body []byte, key string) (map[string]any, error) {
	parseErr := &LookupError{Status: http.StatusInternalServerError, Message: "Failed to parse API response"}

	var data map[string]json.RawMessage
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, parseErr
	}

	first, err := firstKey(body)
	if err != nil {
		return nil, parseErr
	}

	if first != "" && first != key {
		return map[string]any{key: data[first]}, nil
	}

	out := make(map[string]any, len(data))
	for k, v := range data {
		out[k] = v
	}
	return out, nil
}

// firstKey returns the first key of a JSON object in document order.
func firstKey(body []byte) (string, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	if _, err := dec.Token(); err != nil {
		return "", err
	}
	if !dec.More() {
		return "", nil
	}
	tok, err := dec.Token()
	if err != nil {
		return "", err
	}
	k, _ := tok.(string)
	return k, nil
}

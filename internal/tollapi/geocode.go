package tollapi

import (
	"context"
	"errors"
	"fmt"

	"googlemaps.github.io/maps"

	"github.com/JonMunkholm/tollbatch/internal/core"
)

// ErrNoGeocodeResult is returned when a geocoder finds nothing for an address.
var ErrNoGeocodeResult = errors.New("no geocoding result")

// Geocoder resolves a free-text place to coordinates.
type Geocoder interface {
	Geocode(ctx context.Context, address string) (core.Coordinate, error)
}

// MapsGeocoder geocodes with the Google Maps Geocoding API.
type MapsGeocoder struct {
	client  *maps.Client
	region  string
	country string
}

// NewMapsGeocoder creates a geocoder biased to region and restricted to
// country, both given as ISO codes such as "in" and "IN".
func NewMapsGeocoder(apiKey, region, country string) (*MapsGeocoder, error) {
	c, err := maps.NewClient(maps.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("create maps client: %w", err)
	}
	return &MapsGeocoder{client: c, region: region, country: country}, nil
}

func (g *MapsGeocoder) Geocode(ctx context.Context, address string) (core.Coordinate, error) {
	req := &maps.GeocodingRequest{
		Address: address,
		Region:  g.region,
	}
	if g.country != "" {
		req.Components = map[maps.Component]string{maps.ComponentCountry: g.country}
	}

	results, err := g.client.Geocode(ctx, req)
	if err != nil {
		return core.Coordinate{}, fmt.Errorf("geocode %q: %w", address, err)
	}
	if len(results) == 0 {
		return core.Coordinate{}, ErrNoGeocodeResult
	}

	loc := results[0].Geometry.Location
	return core.Coordinate{Lat: loc.Lat, Lng: loc.Lng}, nil
}

package tollapi

import "strings"

type sampleBooth struct {
	name    string
	price   float64
	address string
	lngLat  [2]float64
}

var sampleRoute = [][2]float64{
	{77.2090, 28.6139},
	{77.4700, 28.4400},
	{77.3000, 27.9500},
	{76.8500, 27.2000},
	{76.7800, 26.9200},
}

var sampleBooths = []sampleBooth{
	{"Delhi-Faridabad Toll Plaza", 65, "NH-2, Delhi-Faridabad Border", [2]float64{77.3200, 28.5000}},
	{"Faridabad-Mathura Toll Plaza", 95, "NH-2, Faridabad-Mathura Road", [2]float64{77.4000, 28.1500}},
	{"Mathura-Bharatpur Toll Plaza", 85, "NH-2, Mathura-Bharatpur Border", [2]float64{77.0500, 27.5000}},
	{"Bharatpur-Jaipur Toll Plaza", 105, "NH-11, Bharatpur-Jaipur Road", [2]float64{76.8000, 27.0500}},
}

// SampleToll returns a fixed Delhi to Jaipur quote.
func SampleToll() *TollDetails {
	d := &TollDetails{
		TollBooths:       make([]Booth, 0, len(sampleBooths)),
		RouteCoordinates: make([]LatLng, 0, len(sampleRoute)),
		WaypointCoords:   []LatLng{},
	}

	for _, p := range sampleRoute {
		d.RouteCoordinates = append(d.RouteCoordinates, LatLng{p[1], p[0]})
	}
	for _, b := range sampleBooths {
		d.TollBooths = append(d.TollBooths, Booth{
			Name:    b.name,
			Price:   b.price,
			Address: b.address,
			Coords:  LatLng{b.lngLat[1], b.lngLat[0]},
		})
		d.TotalTollPrice += b.price
	}
	d.TollCount = len(d.TollBooths)

	first, last := d.RouteCoordinates[0], d.RouteCoordinates[len(d.RouteCoordinates)-1]
	d.OriginCoords, d.DestinationCoords = &first, &last

	return d
}

// SampleFuel returns fixed prices keyed by the lower-cased location.
func SampleFuel(location, fuelType string) map[string]any {
	entry := map[string]any{
		fuelType + "_price": 102.50,
	}
	if fuelType == "petrol" {
		entry["diesel_price"] = nil
	} else {
		entry["diesel_price"] = 95.20
	}
	if fuelType == "diesel" {
		entry["petrol_price"] = nil
	} else {
		entry["petrol_price"] = 102.50
	}
	return map[string]any{strings.ToLower(location): entry}
}

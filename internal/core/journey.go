package core

import (
	"regexp"
	"strconv"
	"strings"
)

// JourneyTypes are the vehicle and route-class codes accepted by the toll
// service: axle class followed by single, return or multi-pass journey.
var JourneyTypes = []string{
	"4TO6AX_SJ", "4TO6AX_RJ", "4TO6AX_MP",
	"HCM_EME_SJ", "HCM_EME_RJ", "HCM_EME_MP",
	"7AX_SJ", "7AX_RJ", "7AX_MP",
}

// IsValidJourneyType reports whether code is one of JourneyTypes.
// The comparison is exact.
func IsValidJourneyType(code string) bool {
	for _, jt := range JourneyTypes {
		if jt == code {
			return true
		}
	}
	return false
}

var coordPattern = regexp.MustCompile(`^\s*([-+]?\d+(?:\.\d+)?)\s*,\s*([-+]?\d+(?:\.\d+)?)\s*$`)

// Coordinate is a latitude/longitude pair.
type Coordinate struct {
	Lat float64
	Lng float64
}

// ParseCoordinate reports whether s is shaped like "lat,lng" and returns the
// parsed values. Range is not checked.
func ParseCoordinate(s string) (Coordinate, bool) {
	m := coordPattern.FindStringSubmatch(s)
	if m == nil {
		return Coordinate{}, false
	}
	lat, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return Coordinate{}, false
	}
	lng, err := strconv.ParseFloat(m[2], 64)
	if err != nil {
		return Coordinate{}, false
	}
	return Coordinate{Lat: lat, Lng: lng}, true
}

// InRange reports whether the latitude is within [-90, 90] and the longitude
// within [-180, 180].
func (c Coordinate) InRange() bool {
	return c.Lat >= -90 && c.Lat <= 90 && c.Lng >= -180 && c.Lng <= 180
}

// checkLocation validates one location value. Free text is accepted as is;
// coordinate-shaped values must be in range.
func checkLocation(field, value string) []string {
	v := strings.TrimSpace(value)
	if v == "" {
		return []string{field + " is required"}
	}
	if c, ok := ParseCoordinate(v); ok && !c.InRange() {
		return []string{field + " has invalid coordinates: " + v +
			" (latitude must be between -90 and 90, longitude between -180 and 180)"}
	}
	return nil
}

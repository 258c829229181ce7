package core

import "testing"

func TestParseCoordinate(t *testing.T) {
	tests := []struct {
		in      string
		wantOK  bool
		wantLat float64
		wantLng float64
		inRange bool
	}{
		{in: "28.61,77.20", wantOK: true, wantLat: 28.61, wantLng: 77.20, inRange: true},
		{in: " -33.9 , 151.2 ", wantOK: true, wantLat: -33.9, wantLng: 151.2, inRange: true},
		{in: "45,200", wantOK: true, wantLat: 45, wantLng: 200, inRange: false},
		{in: "90,-180", wantOK: true, wantLat: 90, wantLng: -180, inRange: true},
		{in: "Delhi", wantOK: false},
		{in: "28.61", wantOK: false},
		{in: "+28.61,77.2", wantOK: true, wantLat: 28.61, wantLng: 77.2, inRange: true},
		{in: "1.2.3,4", wantOK: false},
	}

	for _, tt := range tests {
		c, ok := ParseCoordinate(tt.in)
		if ok != tt.wantOK {
			t.Errorf("ParseCoordinate(%q) ok = %v, want %v", tt.in, ok, tt.wantOK)
			continue
		}
		if !ok {
			continue
		}
		if c.Lat != tt.wantLat || c.Lng != tt.wantLng {
			t.Errorf("ParseCoordinate(%q) = %+v", tt.in, c)
		}
		if c.InRange() != tt.inRange {
			t.Errorf("ParseCoordinate(%q).InRange() = %v, want %v", tt.in, c.InRange(), tt.inRange)
		}
	}
}

func TestIsValidJourneyType(t *testing.T) {
	for _, jt := range JourneyTypes {
		if !IsValidJourneyType(jt) {
			t.Errorf("IsValidJourneyType(%q) = false", jt)
		}
	}
	for _, jt := range []string{"", "BOGUS", "7ax_sj", " 7AX_SJ"} {
		if IsValidJourneyType(jt) {
			t.Errorf("IsValidJourneyType(%q) = true", jt)
		}
	}
	if len(JourneyTypes) != 9 {
		t.Errorf("len(JourneyTypes) = %d, want 9", len(JourneyTypes))
	}
}

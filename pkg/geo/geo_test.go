package geo

import (
	"math"
	"testing"
)

func TestDistance(t *testing.T) {
	tests := []struct {
		name string
		p1   Point
		p2   Point
		want float64
	}{
		{
			name: "Same Point",
			p1:   Point{Lat: 0, Lon: 0},
			p2:   Point{Lat: 0, Lon: 0},
			want: 0,
		},
		{
			name: "London to Paris",
			p1:   Point{Lat: 51.5074, Lon: -0.1278},
			p2:   Point{Lat: 48.8566, Lon: 2.3522},
			want: 344000, // Approx 344km
		},
		{
			name: "Equator 1 degree",
			p1:   Point{Lat: 0, Lon: 0},
			p2:   Point{Lat: 0, Lon: 1},
			want: 111319, // Approx 111km
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Distance(tt.p1, tt.p2)
			// Allow 1% margin of error due to float precision/earth radius var
			margin := tt.want * 0.01
			if math.Abs(got-tt.want) > margin && tt.want != 0 {
				t.Errorf("Distance() = %v, want %v (+/- %v)", got, tt.want, margin)
			}
		})
	}
}

func TestDistanceNM(t *testing.T) {
	// One minute of latitude is one nautical mile.
	got := DistanceNM(Point{Lat: 50, Lon: 8}, Point{Lat: 50 + 1.0/60, Lon: 8})
	if math.Abs(got-1.0) > 0.01 {
		t.Errorf("DistanceNM() = %v, want ~1.0", got)
	}
}

func TestDestinationPointRoundTrip(t *testing.T) {
	start := Point{Lat: 47.4, Lon: 8.5}
	dst := DestinationPoint(start, 20*MetersPerNM, 90)

	if d := DistanceNM(start, dst); math.Abs(d-20) > 0.1 {
		t.Errorf("distance = %v nm, want 20", d)
	}
	if b := Bearing(start, dst); math.Abs(b-90) > 1 {
		t.Errorf("bearing = %v, want ~90", b)
	}
}

func TestNearNullIsland(t *testing.T) {
	tests := []struct {
		lat, lon float64
		want     bool
	}{
		{0, 0, true},
		{0.44, -0.44, true},
		{0.46, 0, false}, // rounds to 0.5
		{47.4, 8.5, false},
	}
	for _, tt := range tests {
		if got := NearNullIsland(tt.lat, tt.lon); got != tt.want {
			t.Errorf("NearNullIsland(%v, %v) = %v, want %v", tt.lat, tt.lon, got, tt.want)
		}
	}
}

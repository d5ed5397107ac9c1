package geo

import (
	"math"

	"github.com/paulmach/orb"
	orbgeo "github.com/paulmach/orb/geo"
)

// MetersPerNM is the length of one nautical mile in meters.
const MetersPerNM = 1852.0

// Point represents a geographic coordinate.
type Point struct {
	Lat float64
	Lon float64
}

func (p Point) orb() orb.Point {
	return orb.Point{p.Lon, p.Lat}
}

// Distance calculates the Haversine distance between two points in meters.
func Distance(p1, p2 Point) float64 {
	return orbgeo.DistanceHaversine(p1.orb(), p2.orb())
}

// DistanceNM is Distance in nautical miles.
func DistanceNM(p1, p2 Point) float64 {
	return Distance(p1, p2) / MetersPerNM
}

// DestinationPoint calculates the destination point from a start point, given distance (in meters) and bearing (in degrees).
func DestinationPoint(start Point, distMeters, bearing float64) Point {
	p := orbgeo.PointAtBearingAndDistance(start.orb(), bearing, distMeters)
	return Point{Lat: p.Lat(), Lon: p.Lon()}
}

// Bearing calculates the initial bearing (forward azimuth) from p1 to p2 in degrees.
func Bearing(p1, p2 Point) float64 {
	return math.Mod(orbgeo.Bearing(p1.orb(), p2.orb())+360.0, 360.0)
}

// NormalizeAngle normalizes an angle difference to the range [-180, 180].
func NormalizeAngle(angleDeg float64) float64 {
	for angleDeg > 180 {
		angleDeg -= 360
	}
	for angleDeg < -180 {
		angleDeg += 360
	}
	return angleDeg
}

// NearNullIsland reports whether the position rounds to within half a degree
// of 0/0, where simulators park the aircraft while in the main menu.
func NearNullIsland(lat, lon float64) bool {
	round := func(v float64) float64 { return math.Round(v*10) / 10 }
	return math.Abs(round(lat)) < 0.5 && math.Abs(round(lon)) < 0.5
}

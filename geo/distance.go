package geo

import "math"

const (
	// EarthRadiusKm is Earth's mean radius used by the Haversine formula.
	EarthRadiusKm = 6371.0088
	// AverageSpeedKmh is the assumed travel speed of a worker in the city.
	AverageSpeedKmh = 40.0
)

// Point is a WGS84 coordinate in degrees.
type Point struct {
	Lat float64
	Lng float64
}

// Valid reports whether p lies inside the latitude and longitude ranges.
func (p Point) Valid() bool {
	return p.Lat >= -90 && p.Lat <= 90 && p.Lng >= -180 && p.Lng <= 180 &&
		!math.IsNaN(p.Lat) && !math.IsNaN(p.Lng)
}

// HaversineKm returns the great-circle distance between two points in kilometres.
func HaversineKm(a, b Point) float64 {
	const degToRad = math.Pi / 180
	dLat := (b.Lat - a.Lat) * degToRad
	dLng := (b.Lng - a.Lng) * degToRad
	h := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(a.Lat*degToRad)*math.Cos(b.Lat*degToRad)*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return EarthRadiusKm * c
}

// Interpolate returns the point a fraction t of the way from a to b.
// Straight-line interpolation is close enough over city distances.
func Interpolate(a, b Point, t float64) Point {
	if t <= 0 {
		return a
	}
	if t >= 1 {
		return b
	}
	return Point{
		Lat: a.Lat + (b.Lat-a.Lat)*t,
		Lng: a.Lng + (b.Lng-a.Lng)*t,
	}
}

// ETAMinutes estimates whole minutes to cover distanceKm at speedKmh,
// rounding up. Any remaining distance yields at least one minute.
func ETAMinutes(distanceKm, speedKmh float64) int {
	if distanceKm <= 0 {
		return 0
	}
	if speedKmh <= 0 {
		speedKmh = AverageSpeedKmh
	}
	return int(math.Ceil(distanceKm / speedKmh * 60))
}

package geo

import "math"

// earthRadiusKm is the mean Earth radius used for great-circle math.
const earthRadiusKm = 6371

// Point is a geographic coordinate pair in decimal degrees.
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Distance returns the great-circle distance between two points in
// kilometers using the haversine formula. Inputs are not validated;
// out-of-range coordinates yield a mathematically defined but
// meaningless result rather than an error.
func Distance(a, b Point) float64 {
	return DistanceCoords(a.Lat, a.Lng, b.Lat, b.Lng)
}

// DistanceCoords is Distance over bare coordinates.
func DistanceCoords(lat1, lng1, lat2, lng2 float64) float64 {
	dLat := toRadians(lat2 - lat1)
	dLng := toRadians(lng2 - lng1)

	sinLat := math.Sin(dLat / 2)
	sinLng := math.Sin(dLng / 2)

	h := sinLat*sinLat +
		math.Cos(toRadians(lat1))*math.Cos(toRadians(lat2))*sinLng*sinLng
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return earthRadiusKm * c
}

func toRadians(degrees float64) float64 {
	return degrees * math.Pi / 180
}

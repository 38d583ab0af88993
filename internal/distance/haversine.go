package distance

import "math"

const earthRadiusKm = 6371.0

// Haversine returns the great-circle distance in kilometres, rounded to 2 dp.
func Haversine(a, b Point) float64 {
	lat1 := toRadians(a.Lat)
	lat2 := toRadians(b.Lat)
	dLat := toRadians(b.Lat - a.Lat)
	dLng := toRadians(b.Lng - a.Lng)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return round2(earthRadiusKm * c)
}

// EstimateMinutes converts a distance into whole minutes at speedKmh.
func EstimateMinutes(km, speedKmh float64) float64 {
	if speedKmh <= 0 {
		return 0
	}
	return math.Round(km / speedKmh * 60)
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

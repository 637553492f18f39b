// README: Great-circle distance used to filter search candidates by coordinates.
package ride

import (
	"math"

	"carpool/internal/types"
)

const earthRadiusKm = 6371.0

// distanceKm is the haversine distance between a and b.
func distanceKm(a, b types.Point) float64 {
	dLat := radians(b.Lat - a.Lat)
	dLng := radians(b.Lng - a.Lng)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(radians(a.Lat))*math.Cos(radians(b.Lat))*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusKm * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180.0
}

// within reports whether p is known and no further than radiusKm from center.
// Places stored without coordinates never match a coordinate filter.
func within(p, center types.Point, radiusKm float64) bool {
	if p == (types.Point{}) {
		return false
	}
	return distanceKm(p, center) <= radiusKm
}

package geo

import (
	"math"
	"math/rand"

	"github.com/trigo/dispatch/internal/models"
)

const (
	earthRadiusKm = 6371.0
	// degree/km approximations used consistently for offset conversion:
	// 1 degree of latitude spans ~111 km everywhere, 1 degree of longitude
	// spans 111*cos(lat) km.
	kmPerDegreeLat = 111.0
)

// DistanceKm returns the haversine great-circle distance in kilometres.
func DistanceKm(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := toRadians(lat2 - lat1)
	dLon := toRadians(lon2 - lon1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRadians(lat1))*math.Cos(toRadians(lat2))*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusKm * c
}

// PointInCircle reports whether p lies within radiusKm of center.
// NaN inputs propagate: any NaN comparison is false, so the point is
// reported outside.
func PointInCircle(p, center models.Coordinates, radiusKm float64) bool {
	return DistanceKm(p.Latitude, p.Longitude, center.Latitude, center.Longitude) <= radiusKm
}

// RandomPointInCircle samples a point uniformly by area within the disc.
// Radius is drawn as radiusKm*sqrt(U) so samples do not cluster at the
// center the way naive polar sampling does.
func RandomPointInCircle(rng *rand.Rand, center models.Coordinates, radiusKm float64) models.Coordinates {
	r := radiusKm * math.Sqrt(rng.Float64())
	theta := rng.Float64() * 2 * math.Pi

	dLat := (r * math.Sin(theta)) / kmPerDegreeLat
	kmPerDegreeLon := kmPerDegreeLat * math.Cos(toRadians(center.Latitude))
	dLon := (r * math.Cos(theta)) / kmPerDegreeLon

	return models.Coordinates{
		Latitude:  center.Latitude + dLat,
		Longitude: center.Longitude + dLon,
	}
}

func toRadians(deg float64) float64 { return deg * math.Pi / 180.0 }

package zones

import "github.com/trigo/dispatch/internal/models"

// Seed returns the built-in TODA zone list for the Las Piñas / Talon area.
// Centers and radii are approximate operating circles, not legal boundaries.
func Seed() []models.TodaZone {
	return []models.TodaZone{
		{ID: "toda-apt", Name: "APT TODA", Center: models.Coordinates{Latitude: 14.4445, Longitude: 120.9938}, RadiusKm: 1.2, AreaOfOperation: "Aniban, Pamplona Tres"},
		{ID: "toda-tmt", Name: "TMT TODA", Center: models.Coordinates{Latitude: 14.4333, Longitude: 121.0000}, RadiusKm: 1.0, AreaOfOperation: "Talon Meñcias, Talon Tres"},
		{ID: "toda-p1", Name: "P1 TODA", Center: models.Coordinates{Latitude: 14.4517, Longitude: 120.9832}, RadiusKm: 1.5, AreaOfOperation: "Pamplona Uno"},
		{ID: "toda-bfmt", Name: "BFMT TODA", Center: models.Coordinates{Latitude: 14.4202, Longitude: 121.0113}, RadiusKm: 1.3, AreaOfOperation: "BF Resort, Talon Dos"},
		{ID: "toda-pplt", Name: "PPLT TODA", Center: models.Coordinates{Latitude: 14.4608, Longitude: 120.9769}, RadiusKm: 1.1, AreaOfOperation: "Pulang Lupa"},
		{ID: "toda-zpt", Name: "ZPT TODA", Center: models.Coordinates{Latitude: 14.4389, Longitude: 120.9851}, RadiusKm: 0.9, AreaOfOperation: "Zapote, Pamplona Dos"},
		{ID: "toda-mvt", Name: "MVT TODA", Center: models.Coordinates{Latitude: 14.4270, Longitude: 120.9944}, RadiusKm: 1.0, AreaOfOperation: "Manuela, Vergonville"},
	}
}

package registry

import (
	"fmt"
	"math/rand"

	"github.com/trigo/dispatch/internal/geo"
	"github.com/trigo/dispatch/internal/models"
)

var triderNames = []string{
	"Mang Ben", "Ka Edong", "Totoy", "Boyet", "Ismael", "Carding",
	"Dodong", "Rene", "Popoy", "Berto", "Lito", "Amang",
}

// SeedTriders builds the fixed session-start fleet: a few triders per zone,
// parked at random in-zone points, most available and a couple offline.
func SeedTriders(zs []models.TodaZone, perZone int, rng *rand.Rand) []models.Trider {
	if perZone <= 0 {
		perZone = 3
	}
	out := make([]models.Trider, 0, len(zs)*perZone)
	n := 0
	for _, z := range zs {
		for i := 0; i < perZone; i++ {
			n++
			status := models.TriderAvailable
			if rng.Float64() < 0.15 {
				status = models.TriderOffline
			}
			out = append(out, models.Trider{
				ID:          fmt.Sprintf("trider-%03d", n),
				Name:        fmt.Sprintf("%s %d", triderNames[rng.Intn(len(triderNames))], n),
				Location:    geo.RandomPointInCircle(rng, z.Center, z.RadiusKm*0.9),
				Status:      status,
				VehicleType: "tricycle",
				TodaZoneID:  z.ID,
			})
		}
	}
	return out
}

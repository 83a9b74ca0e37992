package zones

import (
	"github.com/trigo/dispatch/internal/geo"
	"github.com/trigo/dispatch/internal/models"
)

// Registry holds the immutable TODA zone reference data. Zones are read-only
// after construction so no locking is needed.
type Registry struct {
	ordered []models.TodaZone
	byID    map[string]models.TodaZone
}

func NewRegistry(zs []models.TodaZone) *Registry {
	r := &Registry{
		ordered: make([]models.TodaZone, len(zs)),
		byID:    make(map[string]models.TodaZone, len(zs)),
	}
	copy(r.ordered, zs)
	for _, z := range zs {
		r.byID[z.ID] = z
	}
	return r
}

// Resolve returns the first zone in registration order containing p, or nil
// when the point is outside every zone. Zones may overlap; first match wins,
// not nearest center.
func (r *Registry) Resolve(p models.Coordinates) *models.TodaZone {
	for i := range r.ordered {
		z := r.ordered[i]
		if geo.PointInCircle(p, z.Center, z.RadiusKm) {
			return &z
		}
	}
	return nil
}

func (r *Registry) ByID(id string) (models.TodaZone, bool) {
	z, ok := r.byID[id]
	return z, ok
}

// All returns a copy of the zone list in registration order.
func (r *Registry) All() []models.TodaZone {
	out := make([]models.TodaZone, len(r.ordered))
	copy(out, r.ordered)
	return out
}

func (r *Registry) Count() int { return len(r.ordered) }

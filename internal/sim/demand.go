package sim

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/trigo/dispatch/internal/geo"
	"github.com/trigo/dispatch/internal/models"
	"github.com/trigo/dispatch/internal/observability"
	"github.com/trigo/dispatch/internal/registry"
	"github.com/trigo/dispatch/internal/storage"
	"github.com/trigo/dispatch/internal/zones"
)

// FareTable prices a synthetic request. Per-zone base overrides fall back to
// the default base fare; the convenience fee is global.
type FareTable struct {
	DefaultBase    float64
	PerKm          float64
	ConvenienceFee float64
	ZoneBase       map[string]float64
}

func (f FareTable) Quote(pickupZoneID string, distanceKm float64) float64 {
	base := f.DefaultBase
	if v, ok := f.ZoneBase[pickupZoneID]; ok {
		base = v
	}
	return base + f.PerKm*distanceKm + f.ConvenienceFee
}

var passengerNames = []string{
	"Maria Santos", "Jose Reyes", "Ana Cruz", "Paolo Garcia", "Liza Mendoza",
	"Ramon Bautista", "Grace Dela Cruz", "Nico Villanueva", "Cess Aquino", "Jun Ocampo",
}

// DemandGenerator synthesizes pending ride requests at random zones.
// Synthetic requests follow the same archive trail as API-created ones.
type DemandGenerator struct {
	*loop
	rides    *registry.RideStore
	zones    *zones.Registry
	fares    FareTable
	archive  storage.RequestArchive
	rng      *rand.Rand
	notifier Notifier
	logger   *slog.Logger
	seq      int
}

func NewDemandGenerator(interval time.Duration, rides *registry.RideStore, zr *zones.Registry, fares FareTable, archive storage.RequestArchive, rng *rand.Rand, notifier Notifier, logger *slog.Logger) *DemandGenerator {
	return &DemandGenerator{
		loop:     newLoop("demand", interval, logger),
		rides:    rides,
		zones:    zr,
		fares:    fares,
		archive:  archive,
		rng:      rng,
		notifier: notifier,
		logger:   logger,
	}
}

func (d *DemandGenerator) Run(ctx context.Context) { d.loop.run(ctx, d.Tick) }

// Tick creates one synthetic pending request. Pickup and dropoff zones are
// distinct whenever more than one zone exists.
func (d *DemandGenerator) Tick(ctx context.Context) {
	all := d.zones.All()
	if len(all) == 0 {
		return
	}
	pickupZone := all[d.rng.Intn(len(all))]
	dropoffZone := pickupZone
	if len(all) > 1 {
		for dropoffZone.ID == pickupZone.ID {
			dropoffZone = all[d.rng.Intn(len(all))]
		}
	}

	// sample slightly inside the radius so the membership lookup below cannot
	// land a synthetic pickup exactly on the boundary
	pickup := geo.RandomPointInCircle(d.rng, pickupZone.Center, pickupZone.RadiusKm*0.95)
	dropoff := geo.RandomPointInCircle(d.rng, dropoffZone.Center, dropoffZone.RadiusKm*0.95)

	// resolve via membership rather than trusting the sampled zone, the same
	// lookup a real passenger request goes through
	zoneID := ""
	if z := d.zones.Resolve(pickup); z != nil {
		zoneID = z.ID
	}

	dist := geo.DistanceKm(pickup.Latitude, pickup.Longitude, dropoff.Latitude, dropoff.Longitude)
	fare := d.fares.Quote(zoneID, dist) * (0.9 + 0.2*d.rng.Float64())

	d.seq++
	req := models.RideRequest{
		ID:               uuid.NewString(),
		PassengerName:    fmt.Sprintf("%s (sim %d)", passengerNames[d.rng.Intn(len(passengerNames))], d.seq),
		PickupLocation:   pickup,
		DropoffLocation:  dropoff,
		PickupTodaZoneID: zoneID,
		Status:           models.RidePending,
		Fare:             fare,
		RequestedAt:      time.Now(),
	}
	d.rides.Add(req)
	if d.archive != nil {
		if err := d.archive.SaveRequest(&req); err != nil {
			d.logger.Warn("archive save failed", "request_id", req.ID, "error", err)
		}
	}
	observability.SyntheticRequests.Inc()
	d.logger.Debug("synthetic request created", "request_id", req.ID, "zone", zoneID, "fare", fare)

	if d.notifier != nil {
		d.notifier.Broadcast("requests", d.rides.All())
	}
}

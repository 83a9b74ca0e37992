package sim

import (
	"context"
	"log/slog"
	"math/rand"
	"time"

	"github.com/trigo/dispatch/internal/geo"
	"github.com/trigo/dispatch/internal/models"
	"github.com/trigo/dispatch/internal/observability"
	"github.com/trigo/dispatch/internal/registry"
	"github.com/trigo/dispatch/internal/zones"
)

// LocationSource computes the next position for a trider each tick. The
// simulated implementation below is cosmetic; a real GPS feed can replace it
// without touching the matcher or the stores.
type LocationSource interface {
	Next(t models.Trider, target *models.Coordinates, zone models.TodaZone) models.Coordinates
}

// LocationPublisher mirrors trider positions into the telemetry pipeline.
type LocationPublisher interface {
	PublishLocation(t models.Trider) error
}

const (
	// stepFraction of the remaining vector covered per tick with a ride.
	stepFraction = 0.10
	// jitterDeg is the +-degree noise added to each active-ride step.
	jitterDeg = 0.0005
)

// SimulatedLocations is the Math.random-style movement model: active rides
// step 10% of the remaining vector toward the target with small jitter, idle
// triders wander to a fresh random point in their zone. Positions outside the
// trider's zone snap back to a random in-zone point.
type SimulatedLocations struct {
	rng *rand.Rand
}

func NewSimulatedLocations(rng *rand.Rand) *SimulatedLocations {
	return &SimulatedLocations{rng: rng}
}

func (s *SimulatedLocations) Next(t models.Trider, target *models.Coordinates, zone models.TodaZone) models.Coordinates {
	if target == nil {
		return geo.RandomPointInCircle(s.rng, zone.Center, zone.RadiusKm)
	}
	next := models.Coordinates{
		Latitude:  t.Location.Latitude + (target.Latitude-t.Location.Latitude)*stepFraction + (s.rng.Float64()-0.5)*jitterDeg,
		Longitude: t.Location.Longitude + (target.Longitude-t.Location.Longitude)*stepFraction + (s.rng.Float64()-0.5)*jitterDeg,
	}
	if !geo.PointInCircle(next, zone.Center, zone.RadiusKm) {
		return geo.RandomPointInCircle(s.rng, zone.Center, zone.RadiusKm)
	}
	return next
}

// MotionSimulator advances every non-offline trider once per tick.
type MotionSimulator struct {
	*loop
	triders   *registry.TriderStore
	rides     *registry.RideStore
	zones     *zones.Registry
	source    LocationSource
	publisher LocationPublisher
	notifier  Notifier
	logger    *slog.Logger
}

func NewMotionSimulator(interval time.Duration, triders *registry.TriderStore, rides *registry.RideStore, zr *zones.Registry, source LocationSource, publisher LocationPublisher, notifier Notifier, logger *slog.Logger) *MotionSimulator {
	return &MotionSimulator{
		loop:      newLoop("motion", interval, logger),
		triders:   triders,
		rides:     rides,
		zones:     zr,
		source:    source,
		publisher: publisher,
		notifier:  notifier,
		logger:    logger,
	}
}

func (m *MotionSimulator) Run(ctx context.Context) { m.loop.run(ctx, m.Tick) }

// Tick applies one motion step as a whole-fleet functional replacement.
// Exported so tests (and a manual "advance" control) can drive it directly.
func (m *MotionSimulator) Tick(ctx context.Context) {
	requests := m.rides.All()
	active := 0

	m.triders.ApplyMotionTick(func(fleet []models.Trider) []models.Trider {
		for i := range fleet {
			t := fleet[i]
			if t.Status == models.TriderOffline {
				continue
			}
			active++
			zone, ok := m.zones.ByID(t.TodaZoneID)
			if !ok {
				continue
			}
			fleet[i].Location = m.source.Next(t, rideTarget(t, requests), zone)
			fleet[i].UpdatedAt = time.Now()
		}
		return fleet
	})
	observability.TridersActive.Set(float64(active))

	if m.publisher != nil {
		for _, t := range m.triders.All() {
			if t.Status == models.TriderOffline {
				continue
			}
			if err := m.publisher.PublishLocation(t); err != nil {
				m.logger.Warn("location publish failed", "trider_id", t.ID, "error", err)
			}
		}
	}
	if m.notifier != nil {
		m.notifier.Broadcast("triders", m.triders.All())
	}
}

// rideTarget returns the current movement target for a trider with an active
// ride: the pickup while the ride is assigned, the dropoff once in progress.
// Idle triders have no target and wander.
func rideTarget(t models.Trider, requests []models.RideRequest) *models.Coordinates {
	if t.Status != models.TriderAssigned && t.Status != models.TriderBusy {
		return nil
	}
	for _, r := range requests {
		if r.AssignedTriderID != t.ID {
			continue
		}
		switch r.Status {
		case models.RideAssigned:
			p := r.PickupLocation
			return &p
		case models.RideInProgress:
			p := r.DropoffLocation
			return &p
		}
	}
	return nil
}

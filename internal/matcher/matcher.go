// Package matcher implements zone-constrained candidate selection and the
// dispatch state transition.
package matcher

import (
	"fmt"

	"github.com/trigo/dispatch/internal/models"
	"github.com/trigo/dispatch/internal/observability"
	"github.com/trigo/dispatch/internal/registry"
)

// Reason identifies which dispatch precondition failed, so callers can show
// a specific message instead of a generic "dispatch failed".
type Reason string

const (
	ReasonZoneMismatch      Reason = "zone_mismatch"
	ReasonTriderUnavailable Reason = "trider_unavailable"
	ReasonRequestNotPending Reason = "request_not_pending"
	ReasonUnserviceableArea Reason = "unserviceable_area"
)

type Error struct {
	Reason Reason
	msg    string
}

func (e *Error) Error() string { return e.msg }

func newError(r Reason, format string, args ...any) *Error {
	return &Error{Reason: r, msg: fmt.Sprintf(format, args...)}
}

// Candidates filters triders down to those eligible for the request: status
// available and registered to the request's pickup zone. A request whose
// pickup resolved to no zone is unserviceable, reported as such rather than
// as an empty candidate list, so the dispatcher never sees a misleading
// "no triders available".
func Candidates(req models.RideRequest, triders []models.Trider) ([]models.Trider, error) {
	if req.PickupTodaZoneID == "" {
		return nil, newError(ReasonUnserviceableArea, "pickup for request %s is outside all TODA zones", req.ID)
	}
	out := make([]models.Trider, 0, len(triders))
	for _, t := range triders {
		if t.Status == models.TriderAvailable && t.TodaZoneID == req.PickupTodaZoneID {
			out = append(out, t)
		}
	}
	return out, nil
}

// Service performs dispatch against the live registries.
type Service struct {
	Triders *registry.TriderStore
	Rides   *registry.RideStore
}

func NewService(triders *registry.TriderStore, rides *registry.RideStore) *Service {
	return &Service{Triders: triders, Rides: rides}
}

// Dispatch assigns a trider to a pending ride request. Preconditions: the
// request's pickup zone matches the trider's zone, the trider is available,
// the request is pending. On any failure nothing is mutated; the trider CAS
// runs first and is rolled back if the ride CAS then loses a race. A repeat
// dispatch of the same pair fails with trider_unavailable because the first
// call already moved the trider off available.
func (s *Service) Dispatch(triderID, requestID string) (models.Trider, models.RideRequest, error) {
	req, err := s.Rides.Get(requestID)
	if err != nil {
		return models.Trider{}, models.RideRequest{}, err
	}
	t, err := s.Triders.Get(triderID)
	if err != nil {
		return models.Trider{}, models.RideRequest{}, err
	}

	if req.PickupTodaZoneID == "" {
		return s.fail(newError(ReasonUnserviceableArea, "pickup for request %s is outside all TODA zones", req.ID))
	}
	if t.TodaZoneID != req.PickupTodaZoneID {
		return s.fail(newError(ReasonZoneMismatch, "trider %s serves zone %s, pickup is in %s", t.ID, t.TodaZoneID, req.PickupTodaZoneID))
	}
	if t.Status != models.TriderAvailable {
		return s.fail(newError(ReasonTriderUnavailable, "trider %s is %s", t.ID, t.Status))
	}
	if req.Status != models.RidePending {
		return s.fail(newError(ReasonRequestNotPending, "request %s is %s", req.ID, req.Status))
	}

	assignedTrider, err := s.Triders.SetStatus(triderID, models.TriderAvailable, models.TriderAssigned)
	if err != nil {
		// lost a race since the snapshot above
		return s.fail(newError(ReasonTriderUnavailable, "trider %s is no longer available", triderID))
	}
	assignedReq, err := s.Rides.MarkAssigned(requestID, triderID)
	if err != nil {
		// roll the trider back so the failure leaves no partial mutation
		_, _ = s.Triders.SetStatus(triderID, models.TriderAssigned, models.TriderAvailable)
		return s.fail(newError(ReasonRequestNotPending, "request %s is no longer pending", requestID))
	}

	observability.DispatchesTotal.Inc()
	return assignedTrider, assignedReq, nil
}

func (s *Service) fail(e *Error) (models.Trider, models.RideRequest, error) {
	observability.DispatchFailures.WithLabelValues(string(e.Reason)).Inc()
	return models.Trider{}, models.RideRequest{}, e
}

package registry

import (
	"fmt"
	"sync"

	"github.com/trigo/dispatch/internal/models"
)

// MaxRequests caps the ride request list; the demand generator prepends and
// the oldest entries fall off.
const MaxRequests = 20

type RideStore struct {
	mu       sync.RWMutex
	requests []models.RideRequest
	cap      int
}

func NewRideStore() *RideStore {
	return &RideStore{cap: MaxRequests}
}

// All returns requests most-recent-first.
func (s *RideStore) All() []models.RideRequest {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.RideRequest, len(s.requests))
	copy(out, s.requests)
	return out
}

func (s *RideStore) Get(id string) (models.RideRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.requests {
		if r.ID == id {
			return r, nil
		}
	}
	return models.RideRequest{}, fmt.Errorf("ride request %s: %w", id, ErrNotFound)
}

// Add prepends a request and evicts beyond the cap.
func (s *RideStore) Add(r models.RideRequest) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := make([]models.RideRequest, 0, len(s.requests)+1)
	next = append(next, r)
	next = append(next, s.requests...)
	if len(next) > s.cap {
		next = next[:s.cap]
	}
	s.requests = next
}

// Transition moves a request between statuses with a CAS on the from status.
func (s *RideStore) Transition(id string, from, to models.RideStatus) (models.RideRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transitionLocked(id, from, to, "")
}

// MarkAssigned is the dispatch transition: pending -> assigned with the
// trider recorded. CAS on pending so a raced second dispatch fails.
func (s *RideStore) MarkAssigned(id, triderID string) (models.RideRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transitionLocked(id, models.RidePending, models.RideAssigned, triderID)
}

func (s *RideStore) transitionLocked(id string, from, to models.RideStatus, triderID string) (models.RideRequest, error) {
	for i := range s.requests {
		if s.requests[i].ID != id {
			continue
		}
		if s.requests[i].Status != from {
			return models.RideRequest{}, fmt.Errorf("ride request %s is %s: %w", id, s.requests[i].Status, ErrStatusChanged)
		}
		s.requests[i].Status = to
		if triderID != "" {
			s.requests[i].AssignedTriderID = triderID
		}
		return s.requests[i], nil
	}
	return models.RideRequest{}, fmt.Errorf("ride request %s: %w", id, ErrNotFound)
}

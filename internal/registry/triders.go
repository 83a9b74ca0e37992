// Package registry holds the in-memory trider and ride-request stores.
//
// Each store is a single-writer, mutex-guarded container: every mutation runs
// under the lock as a read-snapshot/compute/replace step, and every read hands
// out copies. Timers and HTTP handlers never touch a shared slice directly,
// which is what prevents lost updates when ticks overlap manual dispatch.
package registry

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/trigo/dispatch/internal/models"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrStatusChanged = errors.New("status changed concurrently")
)

type TriderStore struct {
	mu      sync.RWMutex
	triders []models.Trider
	index   map[string]int
}

func NewTriderStore() *TriderStore {
	return &TriderStore{index: make(map[string]int)}
}

// Seed replaces the whole fleet. Used once at startup from the fixed list;
// there is no deletion path, triders live until process end.
func (s *TriderStore) Seed(ts []models.Trider) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.triders = make([]models.Trider, len(ts))
	copy(s.triders, ts)
	s.index = make(map[string]int, len(ts))
	for i, t := range ts {
		s.index[t.ID] = i
	}
}

func (s *TriderStore) All() []models.Trider {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Trider, len(s.triders))
	copy(out, s.triders)
	return out
}

func (s *TriderStore) Get(id string) (models.Trider, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.index[id]
	if !ok {
		return models.Trider{}, fmt.Errorf("trider %s: %w", id, ErrNotFound)
	}
	return s.triders[i], nil
}

// SetStatus transitions a trider from one status to another. The from check
// makes the operation a compare-and-swap: a concurrent change between the
// caller's snapshot and this call fails with ErrStatusChanged instead of
// silently clobbering.
func (s *TriderStore) SetStatus(id string, from, to models.TriderStatus) (models.Trider, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.index[id]
	if !ok {
		return models.Trider{}, fmt.Errorf("trider %s: %w", id, ErrNotFound)
	}
	if s.triders[i].Status != from {
		return models.Trider{}, fmt.Errorf("trider %s is %s: %w", id, s.triders[i].Status, ErrStatusChanged)
	}
	s.triders[i].Status = to
	s.triders[i].UpdatedAt = time.Now()
	return s.triders[i], nil
}

func (s *TriderStore) SetLocation(id string, loc models.Coordinates) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.index[id]
	if !ok {
		return fmt.Errorf("trider %s: %w", id, ErrNotFound)
	}
	s.triders[i].Location = loc
	s.triders[i].UpdatedAt = time.Now()
	return nil
}

// ApplyMotionTick replaces the whole fleet with step's output, the functional
// whole-array update the motion simulator relies on. step receives a copy and
// must return the full new slice.
func (s *TriderStore) ApplyMotionTick(step func([]models.Trider) []models.Trider) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot := make([]models.Trider, len(s.triders))
	copy(snapshot, s.triders)
	next := step(snapshot)
	s.triders = next
	s.index = make(map[string]int, len(next))
	for i, t := range next {
		s.index[t.ID] = i
	}
}

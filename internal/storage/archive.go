package storage

import (
	"sync"

	"github.com/trigo/dispatch/internal/models"
)

// RequestArchive persists ride request history. The live registries stay
// in memory; the archive is the durable trail of what was dispatched.
type RequestArchive interface {
	SaveRequest(r *models.RideRequest) error
	UpdateRequest(r *models.RideRequest) error
}

type MemoryArchive struct {
	mu       sync.RWMutex
	requests map[string]models.RideRequest
}

func NewMemoryArchive() *MemoryArchive {
	return &MemoryArchive{requests: make(map[string]models.RideRequest)}
}

func (m *MemoryArchive) SaveRequest(r *models.RideRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests[r.ID] = *r
	return nil
}

func (m *MemoryArchive) UpdateRequest(r *models.RideRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests[r.ID] = *r
	return nil
}

func (m *MemoryArchive) Get(id string) (models.RideRequest, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.requests[id]
	return r, ok
}

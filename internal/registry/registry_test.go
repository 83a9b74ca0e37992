package registry

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/trigo/dispatch/internal/models"
)

func TestTriderStoreSetStatusCAS(t *testing.T) {
	s := NewTriderStore()
	s.Seed([]models.Trider{{ID: "t1", Status: models.TriderAvailable}})

	got, err := s.SetStatus("t1", models.TriderAvailable, models.TriderAssigned)
	if err != nil {
		t.Fatalf("SetStatus: %v", err)
	}
	if got.Status != models.TriderAssigned {
		t.Fatalf("expected assigned, got %s", got.Status)
	}

	// Second CAS from available must fail: the status already moved.
	if _, err := s.SetStatus("t1", models.TriderAvailable, models.TriderAssigned); !errors.Is(err, ErrStatusChanged) {
		t.Fatalf("expected ErrStatusChanged, got %v", err)
	}

	if _, err := s.SetStatus("ghost", models.TriderAvailable, models.TriderBusy); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestTriderStoreSnapshotsAreCopies(t *testing.T) {
	s := NewTriderStore()
	s.Seed([]models.Trider{{ID: "t1", Status: models.TriderAvailable}})
	all := s.All()
	all[0].Status = models.TriderOffline
	got, _ := s.Get("t1")
	if got.Status != models.TriderAvailable {
		t.Fatal("mutating a snapshot leaked into the store")
	}
}

func TestApplyMotionTickReplacesFleet(t *testing.T) {
	s := NewTriderStore()
	s.Seed([]models.Trider{
		{ID: "t1", Location: models.Coordinates{Latitude: 1}},
		{ID: "t2", Location: models.Coordinates{Latitude: 2}},
	})
	s.ApplyMotionTick(func(ts []models.Trider) []models.Trider {
		for i := range ts {
			ts[i].Location.Latitude += 10
		}
		return ts
	})
	got, _ := s.Get("t2")
	if got.Location.Latitude != 12 {
		t.Fatalf("expected 12, got %f", got.Location.Latitude)
	}
}

func TestApplyMotionTickConcurrentWithDispatch(t *testing.T) {
	s := NewTriderStore()
	s.Seed([]models.Trider{{ID: "t1", Status: models.TriderAvailable}})
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			s.ApplyMotionTick(func(ts []models.Trider) []models.Trider { return ts })
		}()
		go func() {
			defer wg.Done()
			_, _ = s.Get("t1")
		}()
	}
	wg.Wait()
	if _, err := s.Get("t1"); err != nil {
		t.Fatalf("trider lost during concurrent ticks: %v", err)
	}
}

func TestRideStoreCapEvictsOldest(t *testing.T) {
	s := NewRideStore()
	for i := 0; i < 25; i++ {
		s.Add(models.RideRequest{ID: fmt.Sprintf("r%02d", i), Status: models.RidePending})
	}
	all := s.All()
	if len(all) != MaxRequests {
		t.Fatalf("expected %d requests, got %d", MaxRequests, len(all))
	}
	if all[0].ID != "r24" {
		t.Fatalf("expected most-recent-first, got %s", all[0].ID)
	}
	// r00..r04 were evicted.
	for _, old := range []string{"r00", "r01", "r02", "r03", "r04"} {
		if _, err := s.Get(old); !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected %s evicted", old)
		}
	}
	if _, err := s.Get("r05"); err != nil {
		t.Fatalf("r05 should survive: %v", err)
	}
}

func TestRideStoreMarkAssignedCAS(t *testing.T) {
	s := NewRideStore()
	s.Add(models.RideRequest{ID: "r1", Status: models.RidePending})

	got, err := s.MarkAssigned("r1", "t1")
	if err != nil {
		t.Fatalf("MarkAssigned: %v", err)
	}
	if got.Status != models.RideAssigned || got.AssignedTriderID != "t1" {
		t.Fatalf("unexpected result %+v", got)
	}
	if _, err := s.MarkAssigned("r1", "t2"); !errors.Is(err, ErrStatusChanged) {
		t.Fatalf("expected ErrStatusChanged on double assign, got %v", err)
	}
}

package main

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/trigo/dispatch/internal/models"
)

type fakeMirror struct {
	failGeo  int // number of times to fail GeoAdd before succeeding
	failH    int // number of times to fail HSet before succeeding
	geoCalls int
	hCalls   int
	lastGeo  *redis.GeoLocation
	lastMeta map[string]interface{}
}

func (f *fakeMirror) GeoAdd(ctx context.Context, key string, loc *redis.GeoLocation) error {
	f.geoCalls++
	if f.geoCalls <= f.failGeo {
		return errors.New("geo fail")
	}
	f.lastGeo = loc
	return nil
}

func (f *fakeMirror) HSet(ctx context.Context, key string, values map[string]interface{}) error {
	f.hCalls++
	if f.hCalls <= f.failH {
		return errors.New("hset fail")
	}
	f.lastMeta = values
	return nil
}

func sampleTrider() *models.Trider {
	return &models.Trider{
		ID:         "trider-001",
		Name:       "Mang Ben 1",
		Location:   models.Coordinates{Latitude: 14.4445, Longitude: 120.9939},
		Status:     models.TriderAvailable,
		TodaZoneID: "toda-apt",
	}
}

func TestMirrorWithRetrySucceedsAfterRetries(t *testing.T) {
	f := &fakeMirror{failGeo: 1, failH: 1}
	start := time.Now()
	if err := mirrorWithRetry(context.Background(), f, sampleTrider(), 3, 10*time.Millisecond); err != nil {
		t.Fatalf("expected success, got err=%v", err)
	}
	if f.geoCalls < 2 || f.hCalls < 2 {
		t.Fatalf("expected retries, got geo=%d h=%d", f.geoCalls, f.hCalls)
	}
	if time.Since(start) < 10*time.Millisecond {
		t.Fatalf("expected at least one backoff")
	}
	if f.lastGeo == nil || f.lastGeo.Name != "trider-001" {
		t.Fatalf("geo location not written: %+v", f.lastGeo)
	}
	if f.lastMeta["zone"] != "toda-apt" {
		t.Fatalf("meta not written: %+v", f.lastMeta)
	}
}

func TestMirrorWithRetryFailsWhenExhausted(t *testing.T) {
	f := &fakeMirror{failGeo: 5}
	if err := mirrorWithRetry(context.Background(), f, sampleTrider(), 3, 5*time.Millisecond); err == nil {
		t.Fatalf("expected error after retries")
	}
}

// Package settings persists operator-facing app state as JSON values keyed by
// name. Writes are debounced per key so a slider dragged in the settings UI
// coalesces into one store write, and each write replaces the whole value
// atomically: a failed write leaves the previously stored JSON intact.
package settings

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/trigo/dispatch/internal/models"
)

// Well-known keys used by the application shell.
const (
	KeyAppSettings    = "app:settings"
	KeyCurrentUser    = "current:user"
	KeyPaymentMethods = "payment:methods"
)

// DefaultDebounce coalesces rapid successive writes to the same key.
const DefaultDebounce = 500 * time.Millisecond

var ErrNotFound = errors.New("settings key not found")

// AppSettings is the operator configuration consumed by the dispatch core.
type AppSettings struct {
	Theme                  string             `json:"theme"`
	MapCenter              models.Coordinates `json:"map_center"`
	MapZoom                float64            `json:"map_zoom"`
	ShowHeatmap            bool               `json:"show_heatmap"`
	TriderUpdateIntervalMs int                `json:"trider_update_interval_ms"`
	RideRequestIntervalMs  int                `json:"ride_request_interval_ms"`
	AIInsightIntervalMs    int                `json:"ai_insight_interval_ms"`
	DefaultBaseFare        float64            `json:"default_base_fare"`
	PerKmCharge            float64            `json:"per_km_charge"`
	ConvenienceFee         float64            `json:"convenience_fee"`
	ZoneBaseFares          map[string]float64 `json:"zone_base_fares,omitempty"`
}

// KV is the storage seam; satisfied by RedisKV in production and fakes in
// tests.
type KV interface {
	Set(ctx context.Context, key string, value []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
}

type RedisKV struct {
	Client *redis.Client
}

func (r *RedisKV) Set(ctx context.Context, key string, value []byte) error {
	return r.Client.Set(ctx, key, value, 0).Err()
}

func (r *RedisKV) Get(ctx context.Context, key string) ([]byte, error) {
	b, err := r.Client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	return b, err
}

// Store debounces writes per key on top of a KV backend.
type Store struct {
	kv       KV
	debounce time.Duration
	logger   *slog.Logger

	mu      sync.Mutex
	pending map[string][]byte
	timers  map[string]*time.Timer
}

func NewStore(kv KV, debounce time.Duration, logger *slog.Logger) *Store {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Store{
		kv:       kv,
		debounce: debounce,
		logger:   logger,
		pending:  make(map[string][]byte),
		timers:   make(map[string]*time.Timer),
	}
}

// Put marshals v immediately (so an unmarshalable value fails fast and never
// reaches the backend) and schedules a debounced write. Successive Puts to
// the same key within the debounce window collapse into one write of the
// newest value.
func (s *Store) Put(key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending[key] = b
	if t, ok := s.timers[key]; ok {
		t.Reset(s.debounce)
		return nil
	}
	s.timers[key] = time.AfterFunc(s.debounce, func() { s.flushKey(key) })
	return nil
}

func (s *Store) flushKey(key string) {
	s.mu.Lock()
	b, ok := s.pending[key]
	if ok {
		delete(s.pending, key)
	}
	delete(s.timers, key)
	s.mu.Unlock()
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.kv.Set(ctx, key, b); err != nil {
		// the backend keeps the prior value; the write is simply lost until
		// the next Put or Flush
		s.logger.Warn("settings write failed", "key", key, "error", err)
		s.mu.Lock()
		if _, exists := s.pending[key]; !exists {
			s.pending[key] = b
		}
		s.mu.Unlock()
	}
}

// Get reads and unmarshals the stored value for key into dest.
func (s *Store) Get(ctx context.Context, key string, dest any) error {
	s.mu.Lock()
	if b, ok := s.pending[key]; ok {
		s.mu.Unlock()
		return json.Unmarshal(b, dest)
	}
	s.mu.Unlock()
	b, err := s.kv.Get(ctx, key)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, dest)
}

// Flush writes every pending value immediately. Called on shutdown so a
// debounce window in flight is not dropped.
func (s *Store) Flush(ctx context.Context) error {
	s.mu.Lock()
	pending := s.pending
	s.pending = make(map[string][]byte)
	for k, t := range s.timers {
		t.Stop()
		delete(s.timers, k)
	}
	s.mu.Unlock()

	var errs []error
	for k, b := range pending {
		if err := s.kv.Set(ctx, k, b); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

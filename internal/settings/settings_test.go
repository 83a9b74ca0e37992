package settings

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"
)

// fakeKV implements KV in memory and can be told to fail writes.
type fakeKV struct {
	mu      sync.Mutex
	data    map[string][]byte
	sets    int
	failSet bool
}

func newFakeKV() *fakeKV { return &fakeKV{data: make(map[string][]byte)} }

func (f *fakeKV) Set(ctx context.Context, key string, value []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sets++
	if f.failSet {
		return errors.New("backend down")
	}
	f.data[key] = value
	return nil
}

func (f *fakeKV) Get(ctx context.Context, key string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.data[key]
	if !ok {
		return nil, ErrNotFound
	}
	return b, nil
}

func (f *fakeKV) setCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sets
}

func testLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestPutDebouncesRapidWrites(t *testing.T) {
	kv := newFakeKV()
	s := NewStore(kv, 20*time.Millisecond, testLogger())

	for i := 0; i < 5; i++ {
		if err := s.Put(KeyAppSettings, map[string]int{"v": i}); err != nil {
			t.Fatalf("Put: %v", err)
		}
	}
	time.Sleep(80 * time.Millisecond)

	if got := kv.setCount(); got != 1 {
		t.Fatalf("expected 1 coalesced write, got %d", got)
	}
	var out map[string]int
	if err := s.Get(context.Background(), KeyAppSettings, &out); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if out["v"] != 4 {
		t.Fatalf("expected newest value 4, got %d", out["v"])
	}
}

func TestFailedWriteKeepsPriorValue(t *testing.T) {
	kv := newFakeKV()
	s := NewStore(kv, 10*time.Millisecond, testLogger())

	if err := s.Put(KeyCurrentUser, map[string]string{"name": "dispatcher"}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	time.Sleep(50 * time.Millisecond)

	kv.mu.Lock()
	kv.failSet = true
	kv.mu.Unlock()

	if err := s.Put(KeyCurrentUser, map[string]string{"name": "broken"}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	time.Sleep(50 * time.Millisecond)

	// read straight from the backend: the old value must survive the failure
	b, err := kv.Get(context.Background(), KeyCurrentUser)
	if err != nil {
		t.Fatalf("backend Get: %v", err)
	}
	if string(b) != `{"name":"dispatcher"}` {
		t.Fatalf("stored value corrupted: %s", b)
	}
}

func TestGetServesPendingBeforeFlush(t *testing.T) {
	kv := newFakeKV()
	s := NewStore(kv, time.Hour, testLogger())
	if err := s.Put(KeyAppSettings, AppSettings{Theme: "dark"}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	var out AppSettings
	if err := s.Get(context.Background(), KeyAppSettings, &out); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if out.Theme != "dark" {
		t.Fatalf("pending value not served: %+v", out)
	}
}

func TestFlushWritesPending(t *testing.T) {
	kv := newFakeKV()
	s := NewStore(kv, time.Hour, testLogger())
	_ = s.Put(KeyAppSettings, AppSettings{Theme: "light"})
	_ = s.Put(KeyPaymentMethods, []string{"gcash"})

	if err := s.Flush(context.Background()); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if got := kv.setCount(); got != 2 {
		t.Fatalf("expected 2 writes on flush, got %d", got)
	}
}

func TestGetMissingKey(t *testing.T) {
	s := NewStore(newFakeKV(), time.Hour, testLogger())
	var out AppSettings
	if err := s.Get(context.Background(), "nope", &out); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

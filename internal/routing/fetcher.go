package routing

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/trigo/dispatch/internal/models"
	"github.com/trigo/dispatch/internal/observability"
)

// Directions is the provider seam, satisfied by *Client.
type Directions interface {
	Directions(ctx context.Context, waypoints ...models.Coordinates) (models.Route, error)
}

// Fetcher serializes route lookups with last-request-wins semantics: when the
// dispatcher changes selection mid-flight, the older fetch is cancelled and
// its result discarded, so a slow stale response can never overwrite a newer
// route. The previously delivered route stays visible until a newer fetch
// succeeds.
type Fetcher struct {
	client Directions

	mu     sync.Mutex
	gen    uint64
	cancel context.CancelFunc
	last   atomic.Pointer[models.Route]
}

func NewFetcher(client Directions) *Fetcher {
	return &Fetcher{client: client}
}

// Fetch runs a directions lookup for the given waypoints. It returns the
// route, or an error when the provider fails or the fetch was superseded by
// a newer one. On failure the prior route is left untouched.
func (f *Fetcher) Fetch(ctx context.Context, waypoints ...models.Coordinates) (models.Route, error) {
	f.mu.Lock()
	if f.cancel != nil {
		f.cancel()
	}
	ctx, cancel := context.WithCancel(ctx)
	f.cancel = cancel
	f.gen++
	gen := f.gen
	f.mu.Unlock()

	route, err := f.client.Directions(ctx, waypoints...)
	if err != nil {
		observability.RouteFetchErrors.Inc()
		return models.Route{}, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if gen != f.gen {
		// a newer fetch started while this one was in flight
		return models.Route{}, context.Canceled
	}
	f.last.Store(&route)
	return route, nil
}

// Last returns the most recently delivered route, if any.
func (f *Fetcher) Last() (models.Route, bool) {
	if r := f.last.Load(); r != nil {
		return *r, true
	}
	return models.Route{}, false
}

// Package sim contains the three periodic simulators behind the dispatcher
// dashboard: trider motion, synthetic demand, and advisory insights. Each one
// runs its own ticker so operators can retune one interval without disturbing
// the others, and all of them stop mutating the registries the moment their
// context is cancelled.
package sim

import (
	"context"
	"log/slog"
	"time"

	"github.com/trigo/dispatch/internal/observability"
)

// Notifier pushes live events to connected dispatcher clients. Optional; a
// nil Notifier disables pushes.
type Notifier interface {
	Broadcast(event string, payload any)
}

// loop drives one simulator ticker. SetInterval restarts only this loop's
// ticker, never a sibling's.
type loop struct {
	name     string
	interval time.Duration
	change   chan time.Duration
	logger   *slog.Logger
}

func newLoop(name string, interval time.Duration, logger *slog.Logger) *loop {
	return &loop{
		name:     name,
		interval: interval,
		change:   make(chan time.Duration, 1),
		logger:   logger,
	}
}

// SetInterval requests a new tick interval. Non-positive values are ignored.
func (l *loop) SetInterval(d time.Duration) {
	if d <= 0 {
		return
	}
	select {
	case l.change <- d:
	default:
		// a pending change is already queued; drop the older one
		select {
		case <-l.change:
		default:
		}
		l.change <- d
	}
}

func (l *loop) Interval() time.Duration { return l.interval }

// run blocks until ctx is cancelled. tick is never invoked after cancellation.
func (l *loop) run(ctx context.Context, tick func(ctx context.Context)) {
	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	l.logger.Info("simulator started", "simulator", l.name, "interval", l.interval)
	for {
		select {
		case <-ctx.Done():
			l.logger.Info("simulator stopped", "simulator", l.name)
			return
		case d := <-l.change:
			l.interval = d
			ticker.Reset(d)
			l.logger.Info("simulator interval changed", "simulator", l.name, "interval", d)
		case <-ticker.C:
			start := time.Now()
			tick(ctx)
			observability.TickDuration.WithLabelValues(l.name).Observe(time.Since(start).Seconds())
		}
	}
}

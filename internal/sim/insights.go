package sim

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/trigo/dispatch/internal/insight"
	"github.com/trigo/dispatch/internal/models"
	"github.com/trigo/dispatch/internal/observability"
	"github.com/trigo/dispatch/internal/registry"
	"github.com/trigo/dispatch/internal/zones"
)

// InsightTicker periodically asks a generator for an advisory and appends it
// to the capped insight log.
type InsightTicker struct {
	*loop
	generator insight.Generator
	insights  *registry.InsightLog
	triders   *registry.TriderStore
	rides     *registry.RideStore
	zones     *zones.Registry
	notifier  Notifier
	logger    *slog.Logger
}

func NewInsightTicker(interval time.Duration, gen insight.Generator, log *registry.InsightLog, triders *registry.TriderStore, rides *registry.RideStore, zr *zones.Registry, notifier Notifier, logger *slog.Logger) *InsightTicker {
	return &InsightTicker{
		loop:      newLoop("insight", interval, logger),
		generator: gen,
		insights:  log,
		triders:   triders,
		rides:     rides,
		zones:     zr,
		notifier:  notifier,
		logger:    logger,
	}
}

func (t *InsightTicker) Run(ctx context.Context) { t.loop.run(ctx, t.Tick) }

func (t *InsightTicker) Tick(ctx context.Context) {
	snap := insight.Snapshot{}
	for _, z := range t.zones.All() {
		snap.ZoneNames = append(snap.ZoneNames, z.Name)
	}
	for _, tr := range t.triders.All() {
		if tr.Status != models.TriderOffline {
			snap.TridersActive++
		}
	}
	for _, r := range t.rides.All() {
		if r.Status == models.RidePending {
			snap.PendingRequests++
		}
	}

	notice, err := t.generator.Generate(ctx, snap)
	if err != nil {
		t.logger.Warn("insight generation failed", "error", err)
		return
	}
	in := models.Insight{
		ID:        uuid.NewString(),
		Title:     notice.Title,
		Message:   notice.Message,
		Severity:  notice.Severity,
		CreatedAt: time.Now(),
	}
	t.insights.Add(in)
	observability.InsightsTotal.Inc()
	if t.notifier != nil {
		t.notifier.Broadcast("insight", in)
	}
}
